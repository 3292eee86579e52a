package fallback

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type recorder struct {
	sleeps []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return nil
}

func strategy(name string, value string, err error, calls *[]string) Strategy[string] {
	return Strategy[string]{
		Name: name,
		Run: func(context.Context) (string, error) {
			*calls = append(*calls, name)
			return value, err
		},
	}
}

var errQuota = errors.New("429 quota exceeded")

func isQuota(err error) bool {
	return strings.Contains(err.Error(), "429")
}

func TestRunFirstSuccess(t *testing.T) {
	var calls []string
	rec := &recorder{}
	out, err := Run(context.Background(), Policy{Backoff: 2 * time.Second, Sleep: rec.sleep}, []Strategy[string]{
		strategy("pro", "ok", nil, &calls),
		strategy("flash", "unused", nil, &calls),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Value != "ok" || out.Winner != "pro" {
		t.Errorf("outcome = %+v", out)
	}
	if len(calls) != 1 || len(rec.sleeps) != 0 {
		t.Errorf("calls = %v, sleeps = %v", calls, rec.sleeps)
	}
}

func TestRunRetryableAdvancesWithBackoff(t *testing.T) {
	var calls []string
	rec := &recorder{}
	policy := Policy{Backoff: 2 * time.Second, Retryable: isQuota, Sleep: rec.sleep}
	out, err := Run(context.Background(), policy, []Strategy[string]{
		strategy("pro", "", errQuota, &calls),
		strategy("flash", "answer", nil, &calls),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Winner != "flash" || out.Value != "answer" {
		t.Errorf("outcome = %+v", out)
	}
	if len(rec.sleeps) != 1 || rec.sleeps[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want one 2s backoff", rec.sleeps)
	}
	if len(out.Failures()) != 1 {
		t.Errorf("failures = %v", out.Failures())
	}
}

func TestRunNonRetryableAbortsImmediately(t *testing.T) {
	var calls []string
	rec := &recorder{}
	fatal := errors.New("invalid api key")
	_, err := Run(context.Background(), Policy{Backoff: time.Second, Retryable: isQuota, Sleep: rec.sleep}, []Strategy[string]{
		strategy("pro", "", fatal, &calls),
		strategy("flash", "never", nil, &calls),
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want %v", err, fatal)
	}
	if len(calls) != 1 {
		t.Errorf("second strategy should not run, calls = %v", calls)
	}
	if len(rec.sleeps) != 0 {
		t.Errorf("no backoff expected, got %v", rec.sleeps)
	}
}

func TestRunExhausted(t *testing.T) {
	var calls []string
	rec := &recorder{}
	out, err := Run(context.Background(), Policy{Backoff: time.Second, Retryable: isQuota, Sleep: rec.sleep}, []Strategy[string]{
		strategy("pro", "", errQuota, &calls),
		strategy("flash", "", errQuota, &calls),
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) || len(ex.Attempts) != 2 {
		t.Fatalf("exhausted error = %#v", err)
	}
	if len(out.Attempts) != 2 {
		t.Errorf("attempts = %d", len(out.Attempts))
	}
	if len(rec.sleeps) != 1 {
		t.Errorf("backoff should only happen between attempts, got %v", rec.sleeps)
	}
	if !strings.Contains(err.Error(), "pro: 429") || !strings.Contains(err.Error(), "flash: 429") {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestRunMaxAttempts(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	_, err := Run(context.Background(), Policy{MaxAttempts: 2}, []Strategy[string]{
		strategy("a", "", boom, &calls),
		strategy("b", "", boom, &calls),
		strategy("c", "ok", nil, &calls),
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v", err)
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v, want 2", calls)
	}
}

func TestRunContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	s := Strategy[string]{Name: "pro", Run: func(context.Context) (string, error) {
		calls = append(calls, "pro")
		cancel()
		return "", errQuota
	}}
	_, err := Run(ctx, Policy{Backoff: time.Hour, Retryable: isQuota}, []Strategy[string]{s, strategy("flash", "x", nil, &calls)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v", calls)
	}
}

func TestRunEmpty(t *testing.T) {
	_, err := Run[string](context.Background(), Policy{}, nil)
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v", err)
	}
}
