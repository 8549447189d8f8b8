package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"

	"microburbs-relay/internal/config"
	"microburbs-relay/internal/metrics"
)

func newTestClient(timeoutSeconds int, m *metrics.Metrics) *UpstreamClient {
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			TimeoutSeconds:  timeoutSeconds,
			IdleConnections: 10,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewUpstreamClient(cfg, logger, m, noop.NewTracerProvider())
}

func TestUpstreamClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abc123" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer abc123")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer srv.Close()

	c := newTestClient(10, nil)
	header := http.Header{"Authorization": {"Bearer abc123"}}

	resp, err := c.Get(context.Background(), srv.URL+"/property/summary", header)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if string(resp.Body) != `{"value":42}` {
		t.Errorf("body = %q, want %q", string(resp.Body), `{"value":42}`)
	}
	if resp.URL != srv.URL+"/property/summary" {
		t.Errorf("URL = %q, want %q", resp.URL, srv.URL+"/property/summary")
	}
}

func TestUpstreamClient_Get_NonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer srv.Close()

	m := metrics.New()
	c := newTestClient(10, m)

	resp, err := c.Get(context.Background(), srv.URL+"/suburb/zoning", http.Header{})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if string(resp.Body) != "not found" {
		t.Errorf("body = %q, want %q", string(resp.Body), "not found")
	}

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() != "microburbs_relay_upstream_responses_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "status_code" && lp.GetValue() == "404" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected microburbs_relay_upstream_responses_total with status_code=404")
	}
}

func TestUpstreamClient_Get_ConnectionRefused(t *testing.T) {
	c := newTestClient(1, nil)

	_, err := c.Get(context.Background(), "http://127.0.0.1:1/property/summary", http.Header{})
	if err == nil {
		t.Fatal("Get() expected error for unreachable host, got nil")
	}
	if !strings.Contains(err.Error(), "upstream request") {
		t.Errorf("error = %q, want it wrapped with %q", err, "upstream request")
	}
}

func TestUpstreamClient_Get_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(1, nil)

	_, err := c.Get(context.Background(), srv.URL+"/avm/estimate", http.Header{})
	if err == nil {
		t.Fatal("Get() expected timeout error, got nil")
	}
}

func TestUpstreamClient_Get_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(30, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := c.Get(ctx, srv.URL+"/cma/report", http.Header{})
	if err == nil {
		t.Fatal("Get() expected error for canceled context, got nil")
	}
}
