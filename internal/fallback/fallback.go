// Package fallback runs an ordered list of strategies under a declarative
// retry policy. It backs both the hosted model-tier sequence and the
// local-model-to-hosted escalation.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/roelfdiedericks/docsum/internal/logging"
)

// ErrExhausted is returned when every strategy failed with a retryable error.
var ErrExhausted = errors.New("all strategies failed")

// Strategy is one named way of producing a T.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Policy decides how failures move through the strategy list.
type Policy struct {
	// MaxAttempts caps the number of strategies tried (0 = all of them).
	MaxAttempts int
	// Backoff is slept after a retryable failure, before the next strategy.
	// No sleep follows the last attempt.
	Backoff time.Duration
	// Retryable reports whether err should advance to the next strategy.
	// A non-retryable error stops the run and is returned as is.
	// Nil means every error is retryable.
	Retryable func(err error) bool
	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Label names the run in logs.
	Label string
}

// Attempt records one strategy invocation.
type Attempt struct {
	Strategy string
	Err      error
	Duration time.Duration
}

// Outcome is the result of Run. On success Winner names the strategy that produced Value.
type Outcome[T any] struct {
	Value    T
	Winner   string
	Attempts []Attempt
}

// Failures returns the errors of every failed attempt, in order.
func (o Outcome[T]) Failures() []error {
	var errs []error
	for _, a := range o.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}

// ExhaustedError carries the attempts of a run where every strategy failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return ErrExhausted.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}

// Run tries strategies in order until one succeeds, a non-retryable error
// occurs, or the attempt budget is spent.
func Run[T any](ctx context.Context, policy Policy, strategies []Strategy[T]) (Outcome[T], error) {
	var out Outcome[T]
	if len(strategies) == 0 {
		return out, &ExhaustedError{}
	}

	limit := len(strategies)
	if policy.MaxAttempts > 0 && policy.MaxAttempts < limit {
		limit = policy.MaxAttempts
	}
	label := policy.Label
	if label == "" {
		label = "fallback"
	}

	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		s := strategies[i]

		start := time.Now()
		value, err := s.Run(ctx)
		out.Attempts = append(out.Attempts, Attempt{Strategy: s.Name, Err: err, Duration: time.Since(start)})

		if err == nil {
			out.Value = value
			out.Winner = s.Name
			if i > 0 {
				L_info(label+": recovered", "strategy", s.Name, "attempt", i+1)
			}
			return out, nil
		}

		if policy.Retryable != nil && !policy.Retryable(err) {
			L_debug(label+": non-retryable failure", "strategy", s.Name, "error", err)
			return out, err
		}

		if i == limit-1 {
			break
		}
		L_warn(label+": attempt failed, trying next", "strategy", s.Name, "next", strategies[i+1].Name, "backoff", policy.Backoff, "error", err)
		if policy.Backoff > 0 {
			if err := sleep(ctx, policy, policy.Backoff); err != nil {
				return out, err
			}
		}
	}

	return out, &ExhaustedError{Attempts: out.Attempts}
}

func sleep(ctx context.Context, policy Policy, d time.Duration) error {
	if policy.Sleep != nil {
		return policy.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
