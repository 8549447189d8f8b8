package service

import (
	"fmt"
	"net/http"

	"microburbs-relay/internal/model"
)

// Kind classifies a relay failure.
type Kind int

const (
	// KindUnsupportedResource means the resource is not a whitelist key.
	KindUnsupportedResource Kind = iota + 1
	// KindUnsupportedEndpoint means the endpoint is not allowed for the resource.
	KindUnsupportedEndpoint
	// KindMissingToken means the token was empty after trimming.
	KindMissingToken
	// KindUpstream means the upstream answered with a non-2xx status.
	KindUpstream
	// KindRequestFailed covers network errors, timeouts and unparseable upstream bodies.
	KindRequestFailed
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedResource:
		return "unsupported_resource"
	case KindUnsupportedEndpoint:
		return "unsupported_endpoint"
	case KindMissingToken:
		return "missing_token"
	case KindUpstream:
		return "upstream_error"
	case KindRequestFailed:
		return "request_failed"
	default:
		return "unknown"
	}
}

// StatusCode returns the HTTP status the relay answers with for this kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindUnsupportedResource, KindUnsupportedEndpoint, KindMissingToken:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type returned by RelayService.Relay.
// Fields beyond Kind are populated only for the kinds that carry them.
type Error struct {
	Kind Kind

	// Resource and Endpoint are set for validation failures.
	Resource string
	Endpoint string

	// UpstreamStatus and Body are set for KindUpstream.
	UpstreamStatus int
	Body           string

	// Details is the diagnostic text for KindUpstream and KindRequestFailed.
	Details string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnsupportedResource:
		return fmt.Sprintf("Unsupported resource '%s'", e.Resource)
	case KindUnsupportedEndpoint:
		return fmt.Sprintf("Unsupported endpoint '%s' for resource '%s'", e.Endpoint, e.Resource)
	case KindMissingToken:
		return "Missing access token"
	case KindUpstream:
		return "Upstream error: " + e.Details
	default:
		return "Request failed: " + e.Details
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsValidation reports whether the error was raised before any upstream call.
func (e *Error) IsValidation() bool {
	return e.Kind.StatusCode() == http.StatusBadRequest
}

func requestFailed(err error) *Error {
	return &Error{Kind: KindRequestFailed, Details: err.Error(), Err: err}
}

// upstreamError builds a KindUpstream error whose details read like
// "404 Client Error: Not Found for url: https://...".
func upstreamError(resp *model.UpstreamResponse) *Error {
	class := "Server"
	if resp.StatusCode < 500 {
		class = "Client"
	}
	reason := http.StatusText(resp.StatusCode)
	if reason == "" {
		reason = resp.Status
	}
	return &Error{
		Kind:           KindUpstream,
		UpstreamStatus: resp.StatusCode,
		Details:        fmt.Sprintf("%d %s Error: %s for url: %s", resp.StatusCode, class, reason, resp.URL),
		Body:           string(resp.Body),
	}
}
