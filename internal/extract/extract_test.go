package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const article = `<!DOCTYPE html>
<html><head><title>Master Services Agreement</title></head>
<body>
<nav><a href="/">Home</a> | <a href="/contracts">Contracts</a></nav>
<article>
<h1>Master Services Agreement</h1>
<p>This Master Services Agreement is entered into by Acme Holdings and Globex Corporation.
The Supplier shall provide the services described in each Statement of Work with due care and skill.</p>
<p>The Term of this Agreement is twelve months from the Effective Date and renews automatically
unless either party gives written notice of termination at least thirty days before renewal.</p>
<p>Each party shall indemnify the other against third party claims arising from its breach of
confidentiality, and liability is capped at the fees paid in the preceding twelve months.</p>
</article>
<footer>Copyright 2024</footer>
</body></html>`

func TestPlainText(t *testing.T) {
	doc, err := FromBytes("lease.txt", []byte("  The Term is 12 months.\nRent is due monthly.\n"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Method != "plain" || doc.Text != "The Term is 12 months.\nRent is due monthly." {
		t.Errorf("doc = %+v", doc)
	}
	if !strings.HasPrefix(doc.MIME, "text/plain") {
		t.Errorf("MIME = %q", doc.MIME)
	}
}

func TestMarkdown(t *testing.T) {
	doc, err := FromBytes("notes.md", []byte("# Terms\n\n- Payment within 30 days\n"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Method != "markdown" || !strings.Contains(doc.Text, "Payment within 30 days") {
		t.Errorf("doc = %+v", doc)
	}
}

func TestHTML(t *testing.T) {
	doc, err := FromBytes("msa.html", []byte(article))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(doc.MIME, "text/html") {
		t.Errorf("MIME = %q", doc.MIME)
	}
	if doc.Method != "readability" && doc.Method != "html-to-markdown" {
		t.Errorf("Method = %q", doc.Method)
	}
	for _, want := range []string{"Acme Holdings", "twelve months", "indemnify"} {
		if !strings.Contains(doc.Text, want) {
			t.Errorf("text is missing %q:\n%s", want, doc.Text)
		}
	}
	if strings.Contains(doc.Text, "<p>") {
		t.Error("markup leaked into extracted text")
	}
}

func TestUnsupportedType(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	_, err := FromBytes("contract.pdf", pdf)
	var unsupported ErrUnsupportedType
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
	if unsupported.MIME != "application/pdf" {
		t.Errorf("MIME = %q", unsupported.MIME)
	}
}

func TestEmptyAndInvalid(t *testing.T) {
	if _, err := FromBytes("blank.txt", []byte("   \n\t ")); !errors.Is(err, ErrNoText) {
		t.Errorf("blank err = %v", err)
	}
	if _, err := FromBytes("latin1.txt", []byte{'c', 'a', 'f', 0xe9, ' ', 'o', 'k'}); err == nil {
		t.Error("expected an error for invalid UTF-8")
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nda.txt")
	if err := os.WriteFile(path, []byte("Confidential Information must not be disclosed."), 0600); err != nil {
		t.Fatal(err)
	}
	doc, err := FromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "nda.txt" || doc.Text != "Confidential Information must not be disclosed." {
		t.Errorf("doc = %+v", doc)
	}
	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
