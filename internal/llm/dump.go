package llm

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	. "github.com/roelfdiedericks/docsum/internal/logging"
)

const (
	maxDumpFiles    = 20
	maxDumpBodySize = 50000
)

// CapturingTransport is an http.RoundTripper that captures request/response bodies
// for debugging purposes. Thread-safe.
type CapturingTransport struct {
	Base http.RoundTripper

	mu           sync.RWMutex
	lastRequest  []byte
	lastResponse []byte
	lastStatus   int
	lastURL      string
}

// RoundTrip implements http.RoundTripper, capturing request and response bodies
func (t *CapturingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	t.mu.Lock()
	t.lastRequest = reqBody
	t.lastResponse = nil
	t.lastStatus = 0
	t.lastURL = req.URL.String()
	t.mu.Unlock()

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	// re-wrap so the caller can still read it
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	t.mu.Lock()
	t.lastResponse = respBody
	t.lastStatus = resp.StatusCode
	t.mu.Unlock()

	return resp, nil
}

// LastCapture returns the last captured request/response data
func (t *CapturingTransport) LastCapture() (reqBody, respBody []byte, status int, url string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastRequest, t.lastResponse, t.lastStatus, t.lastURL
}

// Dumper writes failed hosted requests, with their HTTP exchange, to Dir.
// Only the newest maxDumpFiles dumps are kept. A nil Dumper does nothing.
type Dumper struct {
	Dir       string
	Transport *CapturingTransport
}

// newHTTPClient returns the provider's HTTP client and, when dumpDir is set,
// the Dumper capturing its traffic.
func newHTTPClient(timeout time.Duration, dumpDir string) (*http.Client, *Dumper) {
	client := &http.Client{Timeout: timeout}
	if dumpDir == "" {
		return client, nil
	}
	capture := &CapturingTransport{}
	client.Transport = capture
	return client, &Dumper{Dir: dumpDir, Transport: capture}
}

// sanitizeFilename replaces characters that are problematic in filenames
func sanitizeFilename(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_").Replace(s)
}

func writeBody(sb *strings.Builder, title string, body []byte) {
	if len(body) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n--- %s ---\n", title)
	if len(body) > maxDumpBodySize {
		sb.Write(body[:maxDumpBodySize])
		fmt.Fprintf(sb, "\n... (truncated, total %d bytes)\n", len(body))
		return
	}
	sb.Write(body)
	sb.WriteString("\n")
}

// DumpError writes err and the last captured exchange to a new file and
// returns its path ("" when nothing was written).
func (d *Dumper) DumpError(provider, model string, err error) string {
	if d == nil || d.Dir == "" {
		return ""
	}
	if mkErr := os.MkdirAll(d.Dir, 0750); mkErr != nil {
		L_warn("dump: failed to create dump dir", "dir", d.Dir, "error", mkErr)
		return ""
	}

	now := time.Now()
	var sb strings.Builder
	sb.WriteString("=== LLM REQUEST DUMP ===\n")
	fmt.Fprintf(&sb, "Timestamp: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Provider: %s\n", provider)
	fmt.Fprintf(&sb, "Model: %s\n", model)
	sb.WriteString("\n=== ERROR ===\n")
	fmt.Fprintf(&sb, "Error Type: %s\n", ClassifyError(err.Error()))
	fmt.Fprintf(&sb, "Error Message: %v\n", err)

	if d.Transport != nil {
		reqBody, respBody, status, url := d.Transport.LastCapture()
		sb.WriteString("\n=== HTTP CAPTURE ===\n")
		fmt.Fprintf(&sb, "URL: %s\n", url)
		fmt.Fprintf(&sb, "Status: %d\n", status)
		writeBody(&sb, "Request Body", reqBody)
		writeBody(&sb, "Response Body", respBody)
	}

	name := fmt.Sprintf("%s_%s_%s_error.txt", sanitizeFilename(provider), sanitizeFilename(model), now.Format("20060102-150405.000"))
	path := filepath.Join(d.Dir, name)
	if wErr := os.WriteFile(path, []byte(sb.String()), 0600); wErr != nil {
		L_warn("dump: failed to write dump", "path", path, "error", wErr)
		return ""
	}
	L_info("dump: LLM error captured", "path", path)
	d.cleanup()
	return path
}

// cleanup keeps only the most recent maxDumpFiles files
func (d *Dumper) cleanup() {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return
	}

	type fileInfo struct {
		name    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_error.txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), modTime: info.ModTime()})
	}
	if len(files) <= maxDumpFiles {
		return
	}

	// oldest first
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	for _, f := range files[:len(files)-maxDumpFiles] {
		path := filepath.Join(d.Dir, f.name)
		if err := os.Remove(path); err != nil {
			L_warn("dump: failed to cleanup old dump", "path", path, "error", err)
		} else {
			L_debug("dump: cleaned up old dump", "path", path)
		}
	}
}
