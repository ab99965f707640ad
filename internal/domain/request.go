package domain

import (
	"net/url"
)

// Request is the transport-agnostic view of an inbound HTTP request. The HTTP
// adapter fills it in; the engine only ever reads from it. Keeping the engine
// off the web framework makes every decision path unit-testable.
type Request struct {
	Method  string
	Secured bool // true when the transport is TLS (or a trusted proxy says so)

	// Authorization is the raw Authorization header value, if any.
	Authorization string

	Query url.Values
	Form  url.Values
}

// FormValue returns the named body parameter.
func (r *Request) FormValue(name string) string {
	if r.Form == nil {
		return ""
	}
	return r.Form.Get(name)
}

// QueryValue returns the named query parameter.
func (r *Request) QueryValue(name string) string {
	if r.Query == nil {
		return ""
	}
	return r.Query.Get(name)
}

// Param returns the named parameter, query taking precedence over body when
// both are present (the rule shared by introspection and revocation).
func (r *Request) Param(name string) string {
	if v := r.QueryValue(name); v != "" {
		return v
	}
	return r.FormValue(name)
}
