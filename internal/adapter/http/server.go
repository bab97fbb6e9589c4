package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/rain-fact-enricher/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBytes = 64 << 10

// ActionRunner runs a decoded fill-weather-forecast request.
type ActionRunner interface {
	HandleRequest(ctx context.Context, req domain.ActionRequest) domain.CompletionReport
}

// Server exposes health, readiness, metrics and the synchronous action trigger.
type Server struct {
	httpServer *http.Server
	runner     ActionRunner
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /v1/actions/fill-weather-forecast routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runner ActionRunner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/actions/fill-weather-forecast", s.handleFillWeatherForecast)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleFillWeatherForecast(w http.ResponseWriter, r *http.Request) {
	req, err := decodeActionRequest(r.Body)
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("X-Request-ID")
	}

	report := s.runner.HandleRequest(r.Context(), req)
	w.Header().Set("X-Request-ID", report.RequestID)
	sharedobs.WriteJSON(w, statusFor(report), report)
}

// decodeActionRequest reads a request body. The action field may be omitted;
// it is implied by the route.
func decodeActionRequest(body io.Reader) (domain.ActionRequest, error) {
	var req domain.ActionRequest
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return domain.ActionRequest{}, fmt.Errorf("decode action request: %w", err)
	}
	if req.Action != "" && req.Action != domain.IdtfActionFillWeatherForecast {
		return domain.ActionRequest{}, fmt.Errorf("unsupported action %q", req.Action)
	}
	if req.InputStructure == "" {
		return domain.ActionRequest{}, errors.New("input_structure is required")
	}
	req.Action = domain.IdtfActionFillWeatherForecast
	return req, nil
}

func statusFor(report domain.CompletionReport) int {
	if report.Success {
		return http.StatusOK
	}
	switch report.ErrorKind {
	case domain.KindTransport, domain.KindInvalidResponse:
		return http.StatusBadGateway
	case domain.KindMissingInput, domain.KindNoForecastForDate:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
