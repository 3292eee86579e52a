package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/roelfdiedericks/docsum/internal/analyzer"
	"github.com/roelfdiedericks/docsum/internal/backend"
	"github.com/roelfdiedericks/docsum/internal/chunker"
	"github.com/roelfdiedericks/docsum/internal/extract"
	"github.com/roelfdiedericks/docsum/internal/metrics"
	"github.com/roelfdiedericks/docsum/internal/pipeline"
	"github.com/roelfdiedericks/docsum/internal/session"
)

// Colors
var (
	primaryColor   = lipgloss.Color("39")  // Blue
	secondaryColor = lipgloss.Color("245") // Gray
	errorColor     = lipgloss.Color("196") // Red
	successColor   = lipgloss.Color("82")  // Green
	warningColor   = lipgloss.Color("214") // Orange
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")) // Light yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")). // Cyan
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	riskStyles = map[string]lipgloss.Style{
		analyzer.RiskLow:    lipgloss.NewStyle().Foreground(successColor),
		analyzer.RiskMedium: lipgloss.NewStyle().Foreground(warningColor),
		analyzer.RiskHigh:   lipgloss.NewStyle().Foreground(errorColor).Bold(true),
	}
)

// Text renders v for a terminal. Unknown types fall back to %+v.
func Text(v any) string {
	var b strings.Builder
	switch r := v.(type) {
	case pipeline.SummaryResult:
		summaryText(&b, r)
	case *pipeline.SummaryResult:
		summaryText(&b, *r)
	case pipeline.ComparisonSet:
		comparisonText(&b, r)
	case *pipeline.ComparisonSet:
		comparisonText(&b, *r)
	case analyzer.Report:
		reportText(&b, r)
	case chunker.Result:
		chunksText(&b, r)
	case extract.Document:
		line(&b, titleStyle.Render(r.Name))
		field(&b, "type", r.MIME)
		field(&b, "method", r.Method)
		if r.Title != "" {
			field(&b, "title", r.Title)
		}
		field(&b, "chars", strconv.Itoa(chunker.Len(r.Text)))
		line(&b, "")
		line(&b, r.Text)
	case session.Context:
		sessionText(&b, r)
	case *session.Context:
		sessionText(&b, *r)
	case []session.Context:
		sessionsTable(&b, r)
	case backend.AskResult:
		if r.Exhausted {
			line(&b, errorStyle.Render(r.Text))
			break
		}
		line(&b, summaryStyle.Render(r.Text))
		if r.Model != "" {
			line(&b, labelStyle.Render("("+r.Model+")"))
		}
	case []pipeline.BackendInfo:
		backendsTable(&b, r)
	case []metrics.MetricSnapshot:
		metricsTable(&b, r)
	case string:
		line(&b, r)
	default:
		line(&b, fmt.Sprintf("%+v", v))
	}
	return b.String()
}

func line(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

func field(b *strings.Builder, label, value string) {
	line(b, labelStyle.Render(label+":")+" "+value)
}

func summaryText(b *strings.Builder, r pipeline.SummaryResult) {
	line(b, titleStyle.Render("Summary ("+r.Backend+")"))
	if r.Failed {
		line(b, errorStyle.Render(r.Summary))
		return
	}
	if r.FellBack {
		line(b, warnStyle.Render("local model failed, hosted fallback used"))
	}
	line(b, summaryStyle.Render(r.Summary))
	if r.Dropped > 0 {
		line(b, warnStyle.Render(fmt.Sprintf("%d of %d chunks were not summarized", r.Dropped, r.Chunks+r.Dropped)))
	}
	if r.Metrics != nil {
		line(b, "")
		reportText(b, *r.Metrics)
	}
}

func reportText(b *strings.Builder, r analyzer.Report) {
	line(b, titleStyle.Render("Metrics"))
	field(b, "words", fmt.Sprintf("%d -> %d", r.WordCountOriginal, r.WordCountSummary))
	field(b, "information density", fmt.Sprintf("%.2f%%", r.InformationDensity))
	field(b, "readability grade", fmt.Sprintf("%.2f", r.ReadabilityGrade))
	field(b, "entities retained", fmt.Sprintf("%d/%d", r.Retention.EntityCountRetained, r.Retention.EntityCountTotal))
	field(b, "risk", riskText(r.Retention.RiskRating))
	if r.RetentionError != "" {
		field(b, "analysis", errorStyle.Render(r.RetentionError))
	}
}

func riskText(risk string) string {
	if s, ok := riskStyles[risk]; ok {
		return s.Render(risk)
	}
	return errorStyle.Render(risk)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(secondaryColor)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func comparisonText(b *strings.Builder, set pipeline.ComparisonSet) {
	line(b, titleStyle.Render("Comparison "+set.ID))
	for _, e := range set.Results {
		line(b, "")
		line(b, titleStyle.Render(e.Backend))
		if e.Failed() {
			line(b, errorStyle.Render(e.Error))
			continue
		}
		if e.FellBack {
			line(b, warnStyle.Render("local model failed, hosted fallback used"))
		}
		line(b, summaryStyle.Render(e.Summary))
	}
	line(b, "")

	t := newTable("Model", "Words", "Density %", "Grade", "Retained", "Risk")
	for _, e := range set.Results {
		if e.Failed() || e.Metrics == nil {
			t.Row(e.Backend, "-", "-", "-", "-", "failed")
			continue
		}
		m := e.Metrics
		t.Row(
			e.Backend,
			strconv.Itoa(m.WordCountSummary),
			fmt.Sprintf("%.2f", m.InformationDensity),
			fmt.Sprintf("%.2f", m.ReadabilityGrade),
			fmt.Sprintf("%d/%d", m.Retention.EntityCountRetained, m.Retention.EntityCountTotal),
			m.Retention.RiskRating,
		)
	}
	line(b, t.String())
}

func chunksText(b *strings.Builder, r chunker.Result) {
	t := newTable("#", "Words", "Tokens", "Text")
	for _, c := range r.Chunks {
		t.Row(strconv.Itoa(c.Index), strconv.Itoa(c.Words), strconv.Itoa(c.Tokens), chunker.Truncate(c.Text, 60))
	}
	line(b, t.String())
	if r.Truncated {
		line(b, warnStyle.Render("input was truncated before chunking"))
	}
	if r.Dropped > 0 {
		line(b, warnStyle.Render(fmt.Sprintf("%d chunks dropped by the chunk limit", r.Dropped)))
	}
}

func sessionText(b *strings.Builder, c session.Context) {
	line(b, titleStyle.Render("Session "+c.ID))
	if c.Source != "" {
		field(b, "source", c.Source)
	}
	field(b, "updated", c.UpdatedAt.Format("2006-01-02 15:04:05"))
	field(b, "text", fmt.Sprintf("%d chars", chunker.Len(c.Text)))
	if c.Summary != "" {
		line(b, "")
		if c.Backend != "" {
			line(b, labelStyle.Render("Summary ("+c.Backend+"):"))
		}
		line(b, summaryStyle.Render(c.Summary))
	}
}

func sessionsTable(b *strings.Builder, list []session.Context) {
	if len(list) == 0 {
		line(b, labelStyle.Render("no sessions"))
		return
	}
	t := newTable("ID", "Source", "Chars", "Summary", "Updated")
	for _, c := range list {
		summarized := "no"
		if c.Summary != "" {
			summarized = c.Backend
			if summarized == "" {
				summarized = "yes"
			}
		}
		t.Row(c.ID, c.Source, strconv.Itoa(chunker.Len(c.Text)), summarized, c.UpdatedAt.Format("2006-01-02 15:04"))
	}
	line(b, t.String())
}

func backendsTable(b *strings.Builder, list []pipeline.BackendInfo) {
	t := newTable("ID", "Kind", "Model")
	for _, info := range list {
		t.Row(info.ID, string(info.Kind), info.Model)
	}
	line(b, t.String())
}

func metricsTable(b *strings.Builder, list []metrics.MetricSnapshot) {
	t := newTable("Metric", "Type", "Value")
	for _, m := range list {
		t.Row(m.Path, string(m.Type), fmt.Sprintf("%+v", m.Data))
	}
	line(b, t.String())
}
