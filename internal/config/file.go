package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/roelfdiedericks/docsum/internal/logging"
)

// DefaultBackupCount is the number of config backups kept by Write.
const DefaultBackupCount = 3

// Encode renders cfg as TOML. The api_key is replaced unless showSecrets is set.
func Encode(cfg Config, showSecrets bool) ([]byte, error) {
	if !showSecrets && cfg.Hosted.APIKey != "" {
		cfg.Hosted.APIKey = "********"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write saves cfg as TOML at path. An existing file is rotated into
// path.bak, path.bak.1, ... keeping at most maxBackups copies.
func Write(path string, cfg Config, maxBackups int) error {
	data, err := Encode(cfg, true)
	if err != nil {
		return err
	}
	if maxBackups <= 0 {
		maxBackups = DefaultBackupCount
	}
	if _, err := os.Stat(path); err == nil {
		rotateBackups(path, maxBackups)
		if err := os.Rename(path, path+".bak"); err != nil {
			logging.L_warn("config: backup failed, overwriting", "path", path, "error", err)
		}
	}
	if err := atomicWrite(path, data, 0600); err != nil {
		return err
	}
	logging.L_info("config: written", "path", path)
	return nil
}

// atomicWrite writes data to path through a temp file and rename.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".docsum-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp to target: %w", err)
	}
	success = true
	return nil
}

// rotateBackups shifts .bak.N-1 -> .bak.N down to .bak -> .bak.1, dropping the oldest.
func rotateBackups(path string, maxBackups int) {
	base := path + ".bak"
	if maxBackups <= 1 {
		os.Remove(base)
		return
	}
	oldest := fmt.Sprintf("%s.%d", base, maxBackups-1)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		logging.L_trace("config: failed to remove oldest backup", "path", oldest, "error", err)
	}
	for i := maxBackups - 2; i >= 1; i-- {
		src := fmt.Sprintf("%s.%d", base, i)
		if err := os.Rename(src, fmt.Sprintf("%s.%d", base, i+1)); err != nil && !os.IsNotExist(err) {
			logging.L_trace("config: failed to rotate backup", "src", src, "error", err)
		}
	}
	if err := os.Rename(base, base+".1"); err != nil && !os.IsNotExist(err) {
		logging.L_trace("config: failed to rotate .bak", "error", err)
	}
}
