package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/roelfdiedericks/docsum/internal/analyzer"
	"github.com/roelfdiedericks/docsum/internal/pipeline"
)

//go:embed html/*.html
var htmlFS embed.FS

var (
	loadOnce  sync.Once
	templates *template.Template
	loadErr   error
)

func reportTemplate() (*template.Template, error) {
	loadOnce.Do(func() {
		templates, loadErr = template.ParseFS(htmlFS, "html/*.html")
	})
	return templates, loadErr
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

type htmlSection struct {
	Heading string
	Notes   []string
	Error   string
	Body    template.HTML
}

type htmlMetrics struct {
	Backend  string
	Original int
	Summary  int
	Density  string
	Grade    string
	Retained string
	Risk     string
}

type htmlPage struct {
	Title    string
	Sections []htmlSection
	Metrics  []htmlMetrics
	Raw      string
}

// Markdown converts a summary to HTML. Raw HTML in the input is escaped.
func Markdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func metricsRow(name string, m analyzer.Report) htmlMetrics {
	return htmlMetrics{
		Backend:  name,
		Original: m.WordCountOriginal,
		Summary:  m.WordCountSummary,
		Density:  fmt.Sprintf("%.2f", m.InformationDensity),
		Grade:    fmt.Sprintf("%.2f", m.ReadabilityGrade),
		Retained: strconv.Itoa(m.Retention.EntityCountRetained) + "/" + strconv.Itoa(m.Retention.EntityCountTotal),
		Risk:     m.Retention.RiskRating,
	}
}

// HTML renders v as a standalone page. Summaries are rendered from markdown;
// types without a page layout are shown as indented JSON.
func HTML(v any) (string, error) {
	page := htmlPage{Title: "docsum"}
	switch r := v.(type) {
	case pipeline.SummaryResult:
		page.Title = "Summary (" + r.Backend + ")"
		sec := htmlSection{Heading: r.Backend}
		if r.Failed {
			sec.Error = r.Summary
		} else {
			body, err := Markdown(r.Summary)
			if err != nil {
				return "", err
			}
			sec.Body = body
			if r.FellBack {
				sec.Notes = append(sec.Notes, "local model failed, hosted fallback used")
			}
		}
		page.Sections = append(page.Sections, sec)
		if r.Metrics != nil {
			page.Metrics = append(page.Metrics, metricsRow(r.Backend, *r.Metrics))
		}
	case pipeline.ComparisonSet:
		page.Title = "Comparison " + r.ID
		for _, e := range r.Results {
			sec := htmlSection{Heading: e.Backend}
			if e.Failed() {
				sec.Error = e.Error
				page.Sections = append(page.Sections, sec)
				continue
			}
			body, err := Markdown(e.Summary)
			if err != nil {
				return "", err
			}
			sec.Body = body
			if e.FellBack {
				sec.Notes = append(sec.Notes, "local model failed, hosted fallback used")
			}
			page.Sections = append(page.Sections, sec)
			if e.Metrics != nil {
				page.Metrics = append(page.Metrics, metricsRow(e.Backend, *e.Metrics))
			}
		}
	case analyzer.Report:
		page.Title = "Metrics"
		page.Metrics = append(page.Metrics, metricsRow("summary", r))
	default:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		page.Raw = string(raw)
	}

	tmpl, err := reportTemplate()
	if err != nil {
		return "", fmt.Errorf("failed to parse templates: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "report.html", page); err != nil {
		return "", err
	}
	return buf.String(), nil
}
