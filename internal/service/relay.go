// Package service implements the relay's validation and upstream forwarding.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"microburbs-relay/internal/config"
	"microburbs-relay/internal/metrics"
	"microburbs-relay/internal/model"
)

// Reserved query parameters consumed by the relay and never forwarded.
const (
	ParamResource = "resource"
	ParamEndpoint = "endpoint"
	ParamToken    = "token"
)

var reservedParams = []string{ParamResource, ParamEndpoint, ParamToken}

const userAgent = "microburbs-relay/1.0"

// Upstream performs a single GET against the upstream API.
type Upstream interface {
	Get(ctx context.Context, url string, header http.Header) (*model.UpstreamResponse, error)
}

// RelayService validates relay calls and forwards them upstream.
type RelayService struct {
	upstream Upstream
	logger   *slog.Logger
	baseURL  *url.URL
	metrics  *metrics.Metrics
}

// NewRelayService creates a RelayService targeting cfg.Upstream.BaseURL.
// The metrics parameter is optional; pass nil to disable outcome counting.
func NewRelayService(up Upstream, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*RelayService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q has no host", cfg.Upstream.BaseURL)
	}

	return &RelayService{
		upstream: up,
		logger:   logger.With("component", "relay_service"),
		baseURL:  u,
		metrics:  m,
	}, nil
}

// Relay validates rr and, if it is acceptable, issues exactly one upstream GET.
// On success it returns the upstream JSON body unchanged. Every failure is a *Error.
func (s *RelayService) Relay(rr *model.RelayRequest) (json.RawMessage, error) {
	body, err := s.relay(rr)
	if s.metrics != nil {
		outcome := "ok"
		var re *Error
		if errors.As(err, &re) {
			outcome = re.Kind.String()
		}
		s.metrics.RelayOutcomes.WithLabelValues(outcome).Inc()
	}
	return body, err
}

func (s *RelayService) relay(rr *model.RelayRequest) (json.RawMessage, error) {
	resource, endpoint, token, err := Validate(rr.Resource, rr.Endpoint, rr.Token)
	if err != nil {
		return nil, err
	}

	target := s.buildUpstreamURL(resource, endpoint, rr.Params)
	header := buildHeaders(token)

	s.logger.Debug("relaying request",
		"resource", resource,
		"endpoint", endpoint,
	)

	ctx := rr.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := s.upstream.Get(ctx, target, header)
	if err != nil {
		return nil, requestFailed(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp)
	}

	if !json.Valid(resp.Body) {
		return nil, requestFailed(fmt.Errorf("decode upstream response from %s: body is not valid JSON", resp.URL))
	}

	return json.RawMessage(resp.Body), nil
}

// Validate trims the three relay parameters and checks them in order:
// resource, then endpoint, then token. It returns the trimmed values.
func Validate(resource, endpoint, token string) (string, string, string, error) {
	resource = strings.TrimSpace(resource)
	endpoint = strings.TrimSpace(endpoint)
	token = strings.TrimSpace(token)

	if !IsSupportedResource(resource) {
		return "", "", "", &Error{Kind: KindUnsupportedResource, Resource: resource}
	}
	if !IsSupportedEndpoint(resource, endpoint) {
		return "", "", "", &Error{Kind: KindUnsupportedEndpoint, Resource: resource, Endpoint: endpoint}
	}
	if token == "" {
		return "", "", "", &Error{Kind: KindMissingToken, Resource: resource, Endpoint: endpoint}
	}
	return resource, endpoint, token, nil
}

// buildUpstreamURL returns {base}/{resource}/{endpoint} with every
// non-reserved parameter as the query string.
func (s *RelayService) buildUpstreamURL(resource, endpoint string, params map[string]string) string {
	u := s.baseURL.JoinPath(resource, endpoint)

	q := make(url.Values)
	for k, v := range lo.OmitByKeys(params, reservedParams) {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func buildHeaders(token string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent)
	return h
}
