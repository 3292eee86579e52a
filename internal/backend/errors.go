package backend

import (
	"errors"
	"fmt"
)

// ErrorKind tags a backend failure so callers can branch on it.
type ErrorKind string

const (
	KindUnsupported  ErrorKind = "unsupported"   // unknown backend or model id; not retried
	KindInvalidInput ErrorKind = "invalid_input" // nothing to summarize
	KindQuota        ErrorKind = "quota"         // hosted rate limit / quota signature
	KindRemote       ErrorKind = "remote"        // any other hosted failure
	KindLocal        ErrorKind = "local"         // local inference failed, no fallback available
	KindCritical     ErrorKind = "critical"      // local inference and hosted fallback both failed
	KindExtraction   ErrorKind = "extraction"    // structured retention extraction failed
)

// HostedLabel names the hosted model family in user-visible messages.
const HostedLabel = "Gemini"

// Error is the tagged failure returned by every backend.
type Error struct {
	Kind    ErrorKind
	Backend string
	Msg     string
	Cause   error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of err, or "" when err is not a backend error.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsKind reports whether err is a backend error of kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Unsupported builds the error for an unknown backend id.
func Unsupported(id string) *Error {
	return &Error{
		Kind:    KindUnsupported,
		Backend: id,
		Msg:     fmt.Sprintf("unsupported backend %q", id),
	}
}

// FailureText renders err as the summary text shown to the user when a
// summarization fails.
func FailureText(err error) string {
	var be *Error
	if !errors.As(err, &be) {
		return fmt.Sprintf("Summarization error: %v", err)
	}
	switch be.Kind {
	case KindRemote, KindQuota:
		return fmt.Sprintf("%s error: %s", HostedLabel, be.Msg)
	case KindLocal:
		return fmt.Sprintf("Local summarization error: %s", be.Msg)
	default:
		return be.Msg
	}
}
