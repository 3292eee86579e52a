// Package extract turns uploaded documents into plain text for summarization.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-shiori/go-readability"

	. "github.com/roelfdiedericks/docsum/internal/logging"
)

// MaxBytes caps the size of a document accepted for extraction.
const MaxBytes = 20 * 1024 * 1024

// ErrNoText is returned when a document yields no text.
var ErrNoText = errors.New("no text could be extracted")

// ErrUnsupportedType is returned for document types this package cannot read.
type ErrUnsupportedType struct {
	MIME string
}

func (e ErrUnsupportedType) Error() string {
	return "unsupported document type: " + e.MIME
}

// Document is the extracted text of one file.
type Document struct {
	Name   string `json:"name" yaml:"name"`
	MIME   string `json:"mime" yaml:"mime"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Method string `json:"method" yaml:"method"` // plain, markdown, readability or html-to-markdown
	Text   string `json:"text" yaml:"text"`
}

// FromFile reads and extracts path.
func FromFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return FromReader(filepath.Base(path), f)
}

// FromReader reads at most MaxBytes from r and extracts it.
func FromReader(name string, r io.Reader) (Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > MaxBytes {
		return Document{}, fmt.Errorf("%s: document larger than %d bytes", name, MaxBytes)
	}
	return FromBytes(name, data)
}

// FromBytes detects the type of data from its content and extracts its text.
// Plain text and markdown pass through; HTML goes through readability with
// html-to-markdown as the fallback.
func FromBytes(name string, data []byte) (Document, error) {
	mt := mimetype.Detect(data)
	doc := Document{Name: name, MIME: mt.String()}
	L_debug("extract: detected", "name", name, "mime", doc.MIME, "bytes", len(data))

	var err error
	switch {
	case mt.Is("text/html"):
		err = fromHTML(&doc, data)
	case isText(mt):
		if !utf8.Valid(data) {
			return doc, fmt.Errorf("%s: text is not valid UTF-8", name)
		}
		doc.Method = "plain"
		if isMarkdown(name) {
			doc.Method = "markdown"
		}
		doc.Text = string(data)
	default:
		return doc, ErrUnsupportedType{MIME: doc.MIME}
	}
	if err != nil {
		return doc, err
	}

	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return doc, ErrNoText
	}
	L_debug("extract: done", "name", name, "method", doc.Method, "chars", utf8.RuneCountInString(doc.Text))
	return doc, nil
}

// isText reports whether mt is text/plain or one of its descendants (csv, json, ...).
func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func fromHTML(doc *Document, data []byte) error {
	pageURL, _ := url.Parse("file:///" + url.PathEscape(doc.Name))

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		doc.Title = article.Title
		doc.Method = "readability"
		doc.Text = article.TextContent
		return nil
	}
	if err != nil {
		L_debug("extract: readability failed, converting to markdown", "name", doc.Name, "error", err)
	}

	markdown, err := htmltomd.ConvertString(string(data))
	if err != nil {
		return fmt.Errorf("%s: html conversion failed: %w", doc.Name, err)
	}
	doc.Method = "html-to-markdown"
	doc.Text = markdown
	return nil
}
