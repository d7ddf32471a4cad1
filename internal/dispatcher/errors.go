package dispatcher

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed delivery attempt.
type Kind string

const (
	KindRateLimited  Kind = "rate_limited"
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindServerError  Kind = "server_error"
	KindUnexpected   Kind = "unexpected"
)

var (
	// ErrUnsupportedType means no client is configured for a message type.
	ErrUnsupportedType = errors.New("no provider client for message type")
	ErrCircuitOpen     = errors.New("provider circuit open")
	errMissingID       = errors.New("provider response has no id")
)

// ProviderError is returned by a Client for every failed attempt.
// StatusCode is zero when no HTTP response was observed.
type ProviderError struct {
	Provider   string
	StatusCode int
	Kind       Kind
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("provider=%s status=%d kind=%s", e.Provider, e.StatusCode, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("provider=%s kind=%s: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("provider=%s kind=%s", e.Provider, e.Kind)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Only rate limiting qualifies.
func (e *ProviderError) Retryable() bool { return e.Kind == KindRateLimited }

// Classify maps a non-2xx status onto a Kind.
func Classify(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status >= 400 && status < 500:
		return KindBadRequest
	case status >= 500 && status < 600:
		return KindServerError
	default:
		return KindUnexpected
	}
}
