// Package httpapi is the HTTP transport surface for the Coordinator and
// the Alert Engine's foreground API (spec.md §1 "HTTP transport" is
// explicitly out of scope as a spec'd concern, but a multi-channel
// customer-service platform still needs a concrete front door; this
// mirrors the teacher's echo.Echo + middleware.CORS server shape from
// server/router/api/v1/v1.go, trimmed to REST handlers instead of
// Connect/gRPC-Gateway).
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/converge-ai/convergeai/coordinator"
	"github.com/converge-ai/convergeai/metrics"
	"github.com/converge-ai/convergeai/ops/alert"
	"github.com/converge-ai/convergeai/store"
)

// Server wraps an echo.Echo exposing the turn-processing and alert
// endpoints.
type Server struct {
	echo        *echo.Echo
	coordinator *coordinator.Coordinator
	alerts      *alert.Engine
	metrics     *metrics.Exporter
	addr        string
}

// New builds a Server bound to addr (":8080"-style), wiring coord and
// alerts into its route handlers. exporter may be nil, in which case
// /metrics is not registered.
func New(addr string, coord *coordinator.Coordinator, alerts *alert.Engine, exporter *metrics.Exporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogLatency:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("httpapi: request", "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s := &Server{echo: e, coordinator: coord, alerts: alerts, metrics: exporter, addr: addr}
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.echo.Group("/v1")
	v1.POST("/turns", s.postTurn)
	v1.GET("/alerts", s.listAlerts)
	v1.POST("/alerts/:id/read", s.markAlertRead)
	v1.POST("/alerts/:id/dismiss", s.dismissAlert)
	v1.GET("/alerts/unread-count", s.unreadAlertCount)
	s.echo.GET("/healthz", s.healthz)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Start begins serving in the background and returns immediately; call
// Shutdown to stop it.
func (s *Server) Start() {
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("httpapi: server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	UserRef   uint64 `json:"user_ref"`
	Channel   string `json:"channel"`
	Text      string `json:"text"`
}

type turnResponse struct {
	SessionID  string  `json:"session_id"`
	Text       string  `json:"text"`
	Intent     string  `json:"intent"`
	Confidence float32 `json:"confidence"`
	TraceID    string  `json:"trace_id"`
	LatencyMS  int64   `json:"latency_ms"`
}

func (s *Server) postTurn(c echo.Context) error {
	var req turnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" || req.UserRef == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "text and user_ref are required")
	}

	reply, err := s.coordinator.Process(c.Request().Context(), coordinator.Turn{
		SessionID: req.SessionID,
		UserRef:   req.UserRef,
		Channel:   store.Channel(req.Channel),
		Text:      req.Text,
	})
	if err != nil {
		slog.Error("httpapi: coordinator.Process failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process turn")
	}

	return c.JSON(http.StatusOK, turnResponse{
		SessionID:  reply.SessionID,
		Text:       reply.Text,
		Intent:     string(reply.Intent),
		Confidence: reply.Confidence,
		TraceID:    reply.TraceID,
		LatencyMS:  reply.LatencyMS,
	})
}

func (s *Server) listAlerts(c echo.Context) error {
	alerts, err := s.alerts.ListAlerts(c.Request().Context(), store.FindAlerts{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list alerts")
	}
	return c.JSON(http.StatusOK, alerts)
}

func (s *Server) markAlertRead(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}
	if err := s.alerts.MarkRead(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to mark alert read")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) dismissAlert(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}
	if err := s.alerts.Dismiss(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to dismiss alert")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) unreadAlertCount(c echo.Context) error {
	n, err := s.alerts.UnreadCount(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count unread alerts")
	}
	return c.JSON(http.StatusOK, map[string]int{"unread_count": n})
}

func parseID(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
