package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes LLM errors for fallback and user messaging decisions.
type ErrorType string

const (
	ErrorTypeUnknown     ErrorType = "unknown"
	ErrorTypeQuota       ErrorType = "quota"
	ErrorTypeOverloaded  ErrorType = "overloaded"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeFormat      ErrorType = "format"
	ErrorTypeUnavailable ErrorType = "unavailable"
)

// IsQuotaError checks if an error carries a quota signature.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	return IsQuotaMessage(err.Error())
}

// IsQuotaMessage reports whether msg contains "429" or, in any case, "quota".
// This is the only signal that moves a hosted request to the next model tier;
// every other failure stops the tier sequence.
func IsQuotaMessage(msg string) bool {
	if msg == "" {
		return false
	}
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "quota")
}

// IsOverloadedMessage checks if a message indicates the service is overloaded.
func IsOverloadedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "503") && (strings.Contains(lower, "service") || strings.Contains(lower, "unavailable")) {
		return true
	}
	return strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "server is busy") ||
		strings.Contains(lower, "temporarily unavailable")
}

// IsAuthMessage checks if a message indicates authentication failure.
func IsAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "401") || strings.Contains(lower, "403") {
		return true
	}
	return strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "invalid_api_key") ||
		strings.Contains(lower, "api key not valid") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "permission_denied") ||
		strings.Contains(lower, "authentication")
}

// IsTimeoutMessage checks if a message indicates a timeout.
func IsTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded")
}

// IsFormatMessage checks if a message indicates a malformed request or response.
func IsFormatMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "malformed") ||
		strings.Contains(lower, "invalid_request_error") ||
		strings.Contains(lower, "empty structured response")
}

// ClassifyError determines the error type from an error message.
// Quota is checked first: it is the one type with its own control flow.
func ClassifyError(msg string) ErrorType {
	if msg == "" {
		return ErrorTypeUnknown
	}
	switch {
	case IsQuotaMessage(msg):
		return ErrorTypeQuota
	case IsOverloadedMessage(msg):
		return ErrorTypeOverloaded
	case IsAuthMessage(msg):
		return ErrorTypeAuth
	case IsTimeoutMessage(msg):
		return ErrorTypeTimeout
	case IsFormatMessage(msg):
		return ErrorTypeFormat
	case strings.Contains(strings.ToLower(msg), "unavailable"):
		return ErrorTypeUnavailable
	}
	return ErrorTypeUnknown
}

// Classify is ClassifyError for error values. Typed errors win over text.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}
	var unavailable ErrUnavailable
	if errors.As(err, &unavailable) {
		return ErrorTypeUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	return ClassifyError(err.Error())
}

// FormatErrorForUser returns a user-friendly error message based on error type.
func FormatErrorForUser(msg string, errType ErrorType) string {
	switch errType {
	case ErrorTypeQuota:
		return "Quota exceeded on the hosted model. Please wait a moment and try again."
	case ErrorTypeOverloaded:
		return "The hosted model is temporarily overloaded. Please try again in a moment."
	case ErrorTypeAuth:
		return "Authentication failed. Check your API key configuration."
	case ErrorTypeTimeout:
		return "Request timed out. Please try again."
	case ErrorTypeFormat:
		return "The model returned a malformed response."
	case ErrorTypeUnavailable:
		return fmt.Sprintf("Model unavailable: %s", msg)
	default:
		return fmt.Sprintf("LLM error: %s", msg)
	}
}
