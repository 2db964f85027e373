package api

import "net/url"

// Descriptor describes one logical API call. It is constructed per call and
// never mutated by the pipeline.
type Descriptor struct {
	// Method is the HTTP method, e.g. http.MethodGet.
	Method string
	// Path is the endpoint path relative to the client base URL.
	Path string
	// Query holds query parameters; ordering is irrelevant.
	Query url.Values
	// Body is the optional request payload, JSON-encoded when non-nil.
	Body any
	// IdempotencyKey is attached as an Idempotency-Key header when set.
	IdempotencyKey string
	// Public marks endpoints that neither require nor attach credentials,
	// e.g. sign-in. A 401 from a public endpoint never triggers a refresh or
	// the reauthentication signal.
	Public bool
}

// NoContent is the sentinel response type for endpoints whose success response
// carries no body.
type NoContent struct{}
