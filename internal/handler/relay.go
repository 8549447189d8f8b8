package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"microburbs-relay/internal/model"
	"microburbs-relay/internal/service"
)

// tokenPattern matches bearer tokens and token query values in error text.
var tokenPattern = regexp.MustCompile(`(?i)(bearer\s+|token=)[^&\s"]+`)

// RelayHandler serves the /api/proxy relay and the whitelist listing.
type RelayHandler struct {
	service *service.RelayService
	logger  *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(svc *service.RelayService, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
	}
}

// Handle validates the query, relays it upstream and writes exactly one JSON response.
func (h *RelayHandler) Handle(c echo.Context) error {
	req := c.Request()
	params := flattenQuery(c.QueryParams())

	rr := &model.RelayRequest{
		Ctx:      req.Context(),
		Resource: params[service.ParamResource],
		Endpoint: params[service.ParamEndpoint],
		Token:    params[service.ParamToken],
		Params:   params,
	}

	body, err := h.service.Relay(rr)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSONBlob(http.StatusOK, body)
}

// Resources lists the supported resources and their endpoints.
func (h *RelayHandler) Resources(c echo.Context) error {
	return c.JSON(http.StatusOK, service.Resources())
}

func (h *RelayHandler) mapError(c echo.Context, err error) error {
	var re *service.Error
	if !errors.As(err, &re) {
		re = &service.Error{Kind: service.KindRequestFailed, Details: err.Error(), Err: err}
	}

	switch re.Kind {
	case service.KindUnsupportedResource, service.KindUnsupportedEndpoint, service.KindMissingToken:
		h.logger.Debug("rejected relay request",
			"kind", re.Kind.String(),
			"resource", re.Resource,
			"endpoint", re.Endpoint,
		)
		return c.JSON(re.Kind.StatusCode(), map[string]string{
			"error": re.Error(),
		})

	case service.KindUpstream:
		h.logger.Warn("upstream error",
			"status", re.UpstreamStatus,
			"details", sanitize(re.Details),
		)
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error":   "Upstream error",
			"details": re.Details,
			"body":    re.Body,
		})

	default:
		h.logger.Error("relay request failed",
			"err", sanitize(re.Details),
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Request failed",
			"details": re.Details,
		})
	}
}

// flattenQuery collapses repeated query keys to their last value.
func flattenQuery(q url.Values) map[string]string {
	out := make(map[string]string, len(q))
	for k, vals := range q {
		if len(vals) > 0 {
			out[k] = vals[len(vals)-1]
		}
	}
	return out
}

// sanitize redacts tokens from text that may be logged.
func sanitize(s string) string {
	return tokenPattern.ReplaceAllString(s, "${1}[REDACTED]")
}
