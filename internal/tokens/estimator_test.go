package tokens

import (
	"strings"
	"testing"
)

func TestFallbackCount(t *testing.T) {
	var e *Estimator
	if got := e.Count("abcdefgh"); got != 2 {
		t.Errorf("nil estimator Count = %d, want 2", got)
	}
	empty := &Estimator{}
	if got := empty.Count(strings.Repeat("x", 40)); got != 10 {
		t.Errorf("fallback Count = %d, want 10", got)
	}
}

func TestEstimateGrowsWithText(t *testing.T) {
	short := Estimate("The Agreement shall terminate.")
	long := Estimate(strings.Repeat("The Agreement shall terminate. ", 20))
	if short <= 0 {
		t.Fatalf("Estimate returned %d for non-empty text", short)
	}
	if long <= short {
		t.Errorf("long estimate %d not greater than short %d", long, short)
	}
}

func TestExceedsBudget(t *testing.T) {
	text := strings.Repeat("indemnification ", 200)
	if ExceedsBudget(text, 0) {
		t.Error("zero budget should mean unlimited")
	}
	if !ExceedsBudget(text, 10) {
		t.Error("expected 200 words to exceed a 10 token budget")
	}
	if ExceedsBudget("short clause", 1024) {
		t.Error("short text should fit in 1024 tokens")
	}
}
