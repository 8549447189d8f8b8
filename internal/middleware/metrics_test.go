package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"microburbs-relay/internal/metrics"
)

// requestCounts returns microburbs_relay_http_requests_total keyed by
// "method status path_prefix".
func requestCounts(t *testing.T, m *metrics.Metrics) map[string]float64 {
	t.Helper()
	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	out := make(map[string]float64)
	for _, f := range families {
		if f.GetName() != "microburbs_relay_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			key := labels["method"] + " " + labels["status_code"] + " " + labels["path_prefix"]
			out[key] = metric.GetCounter().GetValue()
		}
	}
	return out
}

func TestMetricsMiddleware_Labels(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		handler echo.HandlerFunc
		wantKey string
	}{
		{
			name:   "relay success",
			method: http.MethodGet,
			path:   "/api/proxy?resource=cma&endpoint=report&token=abc",
			handler: func(c echo.Context) error {
				return c.JSON(http.StatusOK, map[string]int{"value": 42})
			},
			wantKey: "GET 200 /api/proxy",
		},
		{
			name:   "relay upstream error",
			method: http.MethodGet,
			path:   "/api/proxy",
			handler: func(c echo.Context) error {
				return c.JSON(http.StatusBadGateway, map[string]string{"error": "Upstream error"})
			},
			wantKey: "GET 502 /api/proxy",
		},
		{
			name:   "returned HTTPError",
			method: http.MethodGet,
			path:   "/api/proxy",
			handler: func(c echo.Context) error {
				return echo.NewHTTPError(http.StatusNotFound, "not found")
			},
			wantKey: "GET 404 /api/proxy",
		},
		{
			name:   "unknown method normalized",
			method: "XYZZY",
			path:   "/api/proxy",
			handler: func(c echo.Context) error {
				return c.String(http.StatusOK, "ok")
			},
			wantKey: "other 200 /api/proxy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			e := echo.New()
			e.Use(MetricsMiddleware(m))
			e.Any("/api/proxy", tt.handler)

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			counts := requestCounts(t, m)
			if counts[tt.wantKey] != 1 {
				t.Errorf("counts = %v, want %q = 1", counts, tt.wantKey)
			}
		})
	}
}

func TestMetricsMiddleware_RouterNotFound(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if counts := requestCounts(t, m); counts["GET 404 other"] != 1 {
		t.Errorf("counts = %v, want GET 404 other = 1", counts)
	}
}

func TestMetricsMiddleware_SkipsScrapePath(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m, "/metrics"))
	e.GET("/metrics", func(c echo.Context) error {
		return c.String(http.StatusOK, "# metrics")
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if counts := requestCounts(t, m); len(counts) != 0 {
		t.Errorf("counts = %v, want scrape requests unrecorded", counts)
	}
}

func TestMetricsMiddleware_RecordsDuration(t *testing.T) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "microburbs_relay_http_request_duration_seconds" {
			for _, metric := range f.GetMetric() {
				if metric.GetHistogram().GetSampleCount() > 0 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected microburbs_relay_http_request_duration_seconds with at least one sample")
	}
}
