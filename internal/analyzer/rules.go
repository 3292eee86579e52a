package analyzer

import (
	"context"
	"regexp"
	"strings"
)

var (
	entityPatterns = []*regexp.Regexp{
		// capitalised multi-word names: "Acme Holdings", "Governing Law"
		regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`),
		// dates
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)(?:\s+\d{1,2})?(?:,?\s+\d{4})?\b`),
		// money
		regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand))?`),
		regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?\s?(?:USD|EUR|GBP|dollars)\b`),
		// percentages
		regexp.MustCompile(`\b\d+(?:\.\d+)?\s?%`),
	}
	clausePattern = regexp.MustCompile(`(?i)\b(?:term|indemnification|termination|confidentiality|liability|governing law|payment|warranty)\b`)

	leadingWords = []string{"The ", "This ", "That ", "Each ", "Any ", "All ", "Such "}
	riskKeywords = []string{"indemnif", "liabilit", "penalt", "breach", "terminat"}
)

// RuleExtractor is a deterministic, offline Extractor.
type RuleExtractor struct{}

// Name returns "rules"
func (RuleExtractor) Name() string {
	return "rules"
}

// Entities returns the distinct entities of text in first-seen order,
// compared case-insensitively.
func Entities(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(e string) {
		e = strings.TrimSpace(e)
		k := strings.ToLower(e)
		if e == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, e)
	}

	for i, re := range entityPatterns {
		for _, m := range re.FindAllString(text, -1) {
			if i == 0 {
				m = trimLeadingWord(m)
			}
			add(m)
		}
	}
	for _, m := range clausePattern.FindAllString(text, -1) {
		add(m)
	}
	return out
}

func trimLeadingWord(name string) string {
	for _, w := range leadingWords {
		if strings.HasPrefix(name, w) {
			return strings.TrimSpace(name[len(w):])
		}
	}
	return name
}

// Extract counts entities of original that appear in summary and rates risk:
// High when a risk keyword occurs and under half the entities survive,
// Medium when only one of those holds, Low otherwise.
func (RuleExtractor) Extract(_ context.Context, original, summary string) (Retention, error) {
	entities := Entities(original)
	lowerSummary := strings.ToLower(summary)

	retained := 0
	for _, e := range entities {
		if strings.Contains(lowerSummary, strings.ToLower(e)) {
			retained++
		}
	}

	lowerOriginal := strings.ToLower(original)
	risky := false
	for _, k := range riskKeywords {
		if strings.Contains(lowerOriginal, k) {
			risky = true
			break
		}
	}
	lowRetention := len(entities) > 0 && retained*2 < len(entities)

	risk := RiskLow
	switch {
	case risky && lowRetention:
		risk = RiskHigh
	case risky || lowRetention:
		risk = RiskMedium
	}
	return Retention{EntityCountTotal: len(entities), EntityCountRetained: retained, RiskRating: risk}, nil
}
