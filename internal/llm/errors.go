package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConfigError is raised before any network call when a provider is not configured
type ConfigError struct {
	Provider Provider
	Message  string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func missingKey(p Provider, envName string) *ConfigError {
	return &ConfigError{
		Provider: p,
		Message:  fmt.Sprintf("%s is not configured in environment variables", envName),
	}
}

// EmptyResponseError means the provider answered without any text
type EmptyResponseError struct {
	Provider Provider
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("No text response received from %s", providerLabel(e.Provider))
}

// ErrorKind classifies upstream provider failures
type ErrorKind string

// ErrorKind constants
const (
	KindAuth       ErrorKind = "auth"
	KindPermission ErrorKind = "permission"
	KindRateLimit  ErrorKind = "rate_limit"
	KindBadRequest ErrorKind = "bad_request"
	KindUnknown    ErrorKind = "unknown"
)

// ProviderError is an upstream failure classified at the adapter boundary
type ProviderError struct {
	Provider Provider
	Kind     ErrorKind
	Status   int
	Detail   string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s API error (%d): %s", providerLabel(e.Provider), e.Status, e.Detail)
	}
	return fmt.Sprintf("%s API error: %s", providerLabel(e.Provider), e.Detail)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// AsProviderError unwraps err into a *ProviderError
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindFromStatus maps an HTTP status code to an ErrorKind
func KindFromStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindPermission
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusBadRequest:
		return KindBadRequest
	default:
		return KindUnknown
	}
}

// kindFromMessage is the fallback when an SDK error carries no status code
func kindFromMessage(msg string) ErrorKind {
	switch {
	case strings.Contains(msg, "401"), strings.Contains(msg, "API key not valid"), strings.Contains(msg, "UNAUTHENTICATED"):
		return KindAuth
	case strings.Contains(msg, "403"), strings.Contains(msg, "PERMISSION_DENIED"):
		return KindPermission
	case strings.Contains(msg, "429"), strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return KindRateLimit
	case strings.Contains(msg, "400"), strings.Contains(msg, "INVALID_ARGUMENT"):
		return KindBadRequest
	default:
		return KindUnknown
	}
}

func newProviderError(p Provider, status int, kind ErrorKind, cause error) *ProviderError {
	if kind == KindUnknown && status != 0 {
		kind = KindFromStatus(status)
	}
	if kind == KindUnknown && cause != nil {
		kind = kindFromMessage(cause.Error())
	}
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &ProviderError{Provider: p, Kind: kind, Status: status, Detail: detail, Cause: cause}
}

func providerLabel(p Provider) string {
	switch p {
	case ProviderGrok:
		return "Grok"
	case ProviderGemini:
		return "Gemini"
	case ProviderAnthropic:
		return "Anthropic"
	default:
		return string(p)
	}
}
