package providers

import (
	"errors"
	"fmt"
)

// Reason classifies a provider failure the way the Tool Loop Engine needs
// to distinguish them: unreachable (no response at all), rejected (the
// provider replied with an error status), or malformed (a request this
// adapter could not convert to the provider's wire shape, or a 2xx reply
// it could not parse).
type Reason string

const (
	ReasonUnreachable Reason = "provider-unreachable"
	ReasonRejected    Reason = "provider-rejected"
	ReasonMalformed   Reason = "provider-malformed"
)

// Error is the structured failure an Adapter returns. It never triggers a
// retry itself — that decision belongs to the Tool Loop Engine, which is
// why this type carries enough detail (status, body excerpt) for the
// caller to decide.
type Error struct {
	Reason    Reason
	Provider  string
	Status    int
	BodyExcerpt string
	Cause     error
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonRejected:
		return fmt.Sprintf("%s: %s rejected the request (status %d): %s", e.Reason, e.Provider, e.Status, e.BodyExcerpt)
	case ReasonMalformed:
		return fmt.Sprintf("%s: could not parse %s response: %v", e.Reason, e.Provider, e.Cause)
	default:
		return fmt.Sprintf("%s: %s is unreachable: %v", e.Reason, e.Provider, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Unreachable wraps a transport-level failure (dial/timeout/connection
// reset) — the request never produced an HTTP response.
func Unreachable(provider string, cause error) *Error {
	return &Error{Reason: ReasonUnreachable, Provider: provider, Cause: cause}
}

// Rejected wraps a non-2xx response, keeping a short body excerpt rather
// than the full payload (which may carry sensitive echoed prompt content).
func Rejected(provider string, status int, bodyExcerpt string) *Error {
	const maxExcerpt = 512
	if len(bodyExcerpt) > maxExcerpt {
		bodyExcerpt = bodyExcerpt[:maxExcerpt]
	}
	return &Error{Reason: ReasonRejected, Provider: provider, Status: status, BodyExcerpt: bodyExcerpt}
}

// Malformed wraps a shape mismatch: a request that could not be converted
// to the provider's wire form, or a parse failure on an otherwise
// successful response. Error() renders both as "could not parse <provider>
// response", with the cause saying which it was.
func Malformed(provider string, cause error) *Error {
	return &Error{Reason: ReasonMalformed, Provider: provider, Cause: cause}
}

// Is lets errors.Is(err, providers.ErrRejected) match any *Error sharing
// the same Reason, without comparing Status/BodyExcerpt/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// Sentinel reason markers for errors.Is checks against a specific
// failure category (see Error.Is).
var (
	ErrUnreachable = &Error{Reason: ReasonUnreachable}
	ErrRejected    = &Error{Reason: ReasonRejected}
	ErrMalformed   = &Error{Reason: ReasonMalformed}
)

// As is a convenience wrapper around errors.As for callers that want the
// full *Error detail.
func As(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}
