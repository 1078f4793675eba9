package ai

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ProviderErrorKind classifies a failed Gemini call. Only KindRateLimited
// is recovered locally by key rotation; every other kind propagates.
type ProviderErrorKind string

const (
	KindBadRequest   ProviderErrorKind = "bad-request"
	KindUnauthorized ProviderErrorKind = "unauthorized"
	KindForbidden    ProviderErrorKind = "forbidden"
	KindRateLimited  ProviderErrorKind = "rate-limited"
	KindServerError  ProviderErrorKind = "server-error"
	KindMalformed    ProviderErrorKind = "malformed-response"
	KindUnknown      ProviderErrorKind = "unknown"
)

// ProviderError wraps a classified provider failure.
type ProviderError struct {
	Kind    ProviderErrorKind
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

// ErrEmptyMessage means the user-visible message component of the prompt is
// empty; the turn is rejected before any provider call.
var ErrEmptyMessage = errors.New("ai: message text is empty")

// Classify maps a provider call error to its kind, preferring the genai
// status code and falling back to sniffing the error text.
func Classify(err error) ProviderErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 400:
			return KindBadRequest
		case apiErr.Code == 401:
			return KindUnauthorized
		case apiErr.Code == 403:
			return KindForbidden
		case apiErr.Code == 429:
			return KindRateLimited
		case apiErr.Code >= 500:
			return KindServerError
		}
	}

	raw := err.Error()
	switch {
	case containsAny(raw, "429", "rate limit", "quota exceeded", "resource_exhausted", "resource has been exhausted"):
		return KindRateLimited
	case containsAny(raw, "401", "unauthorized", "api key not valid", "invalid api key"):
		return KindUnauthorized
	case containsAny(raw, "403", "forbidden", "permission denied"):
		return KindForbidden
	case containsAny(raw, "400", "bad request", "invalid argument"):
		return KindBadRequest
	case containsAny(raw, "500", "502", "503", "504", "internal error", "unavailable"):
		return KindServerError
	default:
		return KindUnknown
	}
}

func containsAny(s string, patterns ...string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
