// Package client provides the upstream HTTP client for the Microburbs API.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"microburbs-relay/internal/config"
	"microburbs-relay/internal/metrics"
	"microburbs-relay/internal/model"
)

// maxBodyBytes caps how much of an upstream response is buffered.
const maxBodyBytes = 32 << 20

// UpstreamClient sends GET requests to the upstream API.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
// Every request is traced through tp; pass a no-op provider to disable tracing.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, tp trace.TracerProvider) *UpstreamClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport, otelhttp.WithTracerProvider(tp)),
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "upstream_client"),
		metrics: m,
	}
}

// Get issues a GET to url and reads the whole response body.
// The context and the client timeout both bound the call, including the body read.
func (c *UpstreamClient) Get(ctx context.Context, url string, header http.Header) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	c.logger.Debug("upstream request", "path", req.URL.Path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		c.observe("error", start)
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if len(body) > maxBodyBytes {
		c.observe("error", start)
		return nil, fmt.Errorf("read upstream response: body exceeds %d bytes", maxBodyBytes)
	}

	c.observe("response", start)
	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
		URL:        url,
	}, nil
}

func (c *UpstreamClient) observe(outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
