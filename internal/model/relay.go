// Package model defines shared types for the relay.
package model

import (
	"context"
	"net/http"
)

// RelayRequest is one inbound relay call after query parsing.
// Params holds every inbound query parameter, including resource, endpoint
// and token; repeated keys collapse to their last value.
type RelayRequest struct {
	Ctx      context.Context
	Resource string
	Endpoint string
	Token    string
	Params   map[string]string
}

// UpstreamResponse is a fully read response from the upstream API.
type UpstreamResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	URL        string
}
