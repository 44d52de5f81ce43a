package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Outcome codes for a single attempt. Retryable and fatal codes are kept
// distinct so the retry controller can apply independent delay policies.
const (
	CodeModelLoading     = "model_loading"
	CodeRateLimited      = "rate_limited"
	CodeUpstreamError    = "upstream_error"
	CodeTimeout          = "timeout"
	CodeNetworkError     = "network_error"
	CodeCanceled         = "canceled"
	CodeUnauthorized     = "unauthorized"
	CodeInvalidRequest   = "invalid_request"
	CodeInvalidResponse  = "invalid_response"
	CodeDownloadError    = "download_error"
	CodeHTTPError        = "http_error"
	CodeRetriesExhausted = "retries_exhausted"
)

type Error struct {
	Provider  string
	Code      string
	Status    int
	Message   string
	Retryable bool

	// RetryAfter is the provider-suggested wait before the next attempt
	// (from an estimated_time body field or a Retry-After header). Zero
	// means the retry controller picks its per-code default.
	RetryAfter time.Duration

	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Provider != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: error", e.Provider)
	}
	return "error"
}

func (e *Error) Unwrap() error { return e.Cause }

// ClassifyNetwork converts a transport-level failure (DNS, connection
// refused, timeout) into an attempt error. Timeouts are retryable;
// cancellation is terminal.
func ClassifyNetwork(name string, err error) *Error {
	code := CodeNetworkError
	retryable := true
	switch {
	case errors.Is(err, context.Canceled):
		code, retryable = CodeCanceled, false
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			code = CodeTimeout
		}
	}
	return &Error{Provider: name, Code: code, Message: err.Error(), Retryable: retryable, Cause: err}
}
