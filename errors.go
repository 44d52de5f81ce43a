package imagine

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitop-dev/imagine/internal/provider"
)

// Terminal failure codes surfaced by Generate and SaveImage. Provider
// attempt codes (model_loading, rate_limited, ...) pass through from
// internal/provider unchanged.
const (
	CodeCredentialMissing = "credential_missing"
	CodeLocalIO           = "local_io"
	CodeInvalidRequest    = provider.CodeInvalidRequest
	CodeUnauthorized      = provider.CodeUnauthorized
	CodeRetriesExhausted  = provider.CodeRetriesExhausted
)

type Error struct {
	Provider  string
	Code      string
	Status    int
	Message   string
	Retryable bool

	// Alternate names a provider the caller may try manually. It is set
	// on automatic-mode failures and is informational only: the named
	// provider was not contacted and its credential was not checked.
	Alternate string

	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Provider != "" && e.Message != "" {
		return e.Provider + ": " + e.Message
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Provider != "" {
		return e.Provider + ": error"
	}
	return "error"
}

func (e *Error) Unwrap() error { return e.Cause }

func IsCredentialMissing(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeCredentialMissing
}

func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == 401 || e.Status == 403 || e.Code == CodeUnauthorized)
}

func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == 429 || e.Code == provider.CodeRateLimited)
}

func IsRetriesExhausted(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeRetriesExhausted
}

func IsLocalIO(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeLocalIO
}

func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Code == provider.CodeTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func IsCanceled(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Code == provider.CodeCanceled {
		return true
	}
	return errors.Is(err, context.Canceled)
}

func mapProviderError(err error) error {
	if err == nil {
		return nil
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		return &Error{
			Provider:  pe.Provider,
			Code:      pe.Code,
			Status:    pe.Status,
			Message:   pe.Message,
			Retryable: pe.Retryable,
			Cause:     pe.Cause,
		}
	}
	return err
}

func credentialMissing(name string) *Error {
	return &Error{
		Provider: name,
		Code:     CodeCredentialMissing,
		Message:  fmt.Sprintf("no credential found for %s (set %s)", name, credentialHint(name)),
	}
}

func credentialHint(name string) string {
	switch name {
	case provider.OpenAI:
		return "OPENAI_API_KEY"
	case provider.HuggingFace:
		return "HUGGINGFACE_API_KEY or HF_TOKEN"
	}
	return "the provider API key"
}
