// Package api implements the authenticated request pipeline of the Focusmate
// client core: building requests, attaching and refreshing bearer credentials,
// executing them through an injected transport, and classifying every failure
// into a closed error taxonomy.
package api

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a member of the closed error taxonomy. Every failure leaving
// the pipeline is exactly one of these.
type Kind int

const (
	// KindTimeout is a transport-level timeout, including context deadlines.
	KindTimeout Kind = iota
	// KindNoConnectivity covers DNS failures and unreachable or refusing hosts.
	KindNoConnectivity
	// KindTransport is any other transport failure, including connections
	// aborted by the certificate pinning policy.
	KindTransport
	// KindUnauthorized is a terminal 401 after the single refresh-and-retry
	// was exhausted or unavailable.
	KindUnauthorized
	// KindValidation is a 422 carrying field-level validation details.
	KindValidation
	// KindRateLimited is a 429 carrying a retry-after hint.
	KindRateLimited
	// KindServer is any 5xx response.
	KindServer
	// KindBadStatus is any other non-2xx response.
	KindBadStatus
	// KindDecoding is a failure to encode the request body or decode a 2xx
	// response body.
	KindDecoding
	// KindBadURL means the request URL could not be built.
	KindBadURL
)

// String returns the machine-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNoConnectivity:
		return "no_connectivity"
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server_error"
	case KindBadStatus:
		return "bad_status"
	case KindDecoding:
		return "decoding"
	case KindBadURL:
		return "bad_url"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type crossing the Execute boundary.
type Error struct {
	// Kind is the taxonomy member.
	Kind Kind
	// Status is the HTTP status code for status-derived kinds, 0 otherwise.
	Status int
	// Message is the best-effort server or transport message.
	Message string
	// Code is the machine-readable server error code when the body carried one.
	Code string
	// RequestID is the server-reported request identifier when present.
	RequestID string
	// RetryAfterSeconds is the backoff hint for KindRateLimited.
	RetryAfterSeconds int
	// FieldErrors maps field names to validation messages for KindValidation.
	FieldErrors map[string][]string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("api: ")
	b.WriteString(e.Kind.String())
	if e.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// UserMessage returns a short message suitable for direct display. Validation
// errors surface per-field messages; everything else degrades to a generic,
// taxonomy-derived sentence.
func (e *Error) UserMessage() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindTimeout:
		return "The request timed out. Please try again."
	case KindNoConnectivity:
		return "No network connection. Check your connectivity and try again."
	case KindUnauthorized:
		return "Your session has expired. Please sign in again."
	case KindValidation:
		var parts []string
		for field, messages := range e.FieldErrors {
			for _, msg := range messages {
				parts = append(parts, field+" "+msg)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
		return "Some fields are invalid."
	case KindRateLimited:
		return fmt.Sprintf("Too many requests. Try again in %d seconds.", e.RetryAfterSeconds)
	case KindServer:
		return "The server hit an unexpected problem. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// KindOf extracts the taxonomy kind from an error returned by the pipeline.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}
