package parsing

import (
	"strings"

	"github.com/humexxx/tech9-parserdf/internal/llm"
)

// User-facing messages for classified provider failures
const (
	MsgAuthFailed     = "Authentication failed. Please check the API configuration."
	MsgAccessDenied   = "Access denied. Please check your API permissions."
	MsgServiceBusy    = "Service is busy. Please try again in a moment."
	MsgInvalidRequest = "Invalid request. The file format might not be supported or is corrupted."
	MsgServiceError   = "An error occurred with the AI service."
	MsgInvalidAPIKey  = "Invalid API Key configuration."
	MsgUnexpected     = "An unexpected error occurred."
)

// NormalizeError maps an error to a stable message safe to show to users.
// Provider errors map by kind; other errors pass through unless they look
// like a raw JSON dump.
func NormalizeError(err error) string {
	if err == nil {
		return MsgUnexpected
	}

	if pe, ok := llm.AsProviderError(err); ok {
		switch pe.Kind {
		case llm.KindAuth:
			return MsgAuthFailed
		case llm.KindPermission:
			return MsgAccessDenied
		case llm.KindRateLimit:
			return MsgServiceBusy
		case llm.KindBadRequest:
			return MsgInvalidRequest
		}
	}

	msg := err.Error()
	if msg == "" {
		return MsgUnexpected
	}
	if strings.Contains(msg, "{") && strings.Contains(msg, "}") {
		if strings.Contains(msg, "API key not valid") {
			return MsgInvalidAPIKey
		}
		return MsgServiceError
	}
	return msg
}
