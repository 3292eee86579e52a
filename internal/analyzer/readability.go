package analyzer

import (
	"errors"
	"math"

	"github.com/jdkato/prose/summarize"
)

// ErrNoWords is returned by graders for text without words.
var ErrNoWords = errors.New("readability: text has no words")

// Grader scores text on a US school-grade readability scale.
type Grader interface {
	Grade(text string) (float64, error)
}

// FleschKincaid is the Flesch-Kincaid grade level computed by prose:
// 0.39*(words/sentences) + 11.8*(syllables/words) - 15.59.
type FleschKincaid struct{}

// Grade scores text, rounded to two decimals.
func (FleschKincaid) Grade(text string) (float64, error) {
	doc := summarize.NewDocument(text)
	if doc.NumWords == 0 || doc.NumSentences == 0 {
		return 0, ErrNoWords
	}
	grade := doc.FleschKincaid()
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return 0, errors.New("readability: grade is not a number")
	}
	return round2(grade), nil
}
