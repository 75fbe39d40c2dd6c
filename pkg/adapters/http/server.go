// Package http exposes the stagegate engine as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/stagegate"
	"github.com/aretw0/stagegate/internal/logging"
	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/handoff"
	"github.com/aretw0/stagegate/pkg/runner"
)

// Engine is the part of *stagegate.Engine the server exposes.
type Engine interface {
	Turn(ctx context.Context, req stagegate.TurnRequest) (*stagegate.TurnResult, error)
	Comply(ctx context.Context, req stagegate.ComplyRequest) (stagegate.ComplianceCheck, error)
	Complete(ctx context.Context, sessionID string, status domain.ExecutionStatus) (*stagegate.Completion, error)
	Handoff(ctx context.Context, sessionID string, intended domain.Team) (*stagegate.HandoffResult, error)
	Resume(ctx context.Context, sessionID string, contract *handoff.Contract) (*domain.SessionContext, error)
	Session(ctx context.Context, sessionID string) (*domain.SessionContext, error)
	Reset(ctx context.Context, sessionID string) error
	Stages() []domain.StageRule
	SafeFallback(ctx context.Context, sessionID string) string
}

// Server routes HTTP requests to the engine.
type Server struct {
	Engine  Engine
	Logger  *slog.Logger
	Metrics http.Handler
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// ErrorResponse is the body of every failed request. Response is the text a
// client may show the user in place of a reply.
type ErrorResponse struct {
	Error    string `json:"error"`
	Response string `json:"response"`
}

type turnBody struct {
	Message string `json:"message"`
	TurnID  string `json:"turn_id,omitempty"`
}

type complyBody struct {
	Draft          string                 `json:"draft"`
	Classification *domain.Classification `json:"classification,omitempty"`
}

type handoffBody struct {
	Target domain.Team `json:"target"`
}

type resumeBody struct {
	SessionID string          `json:"session_id"`
	Contract  json.RawMessage `json:"contract"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/stages", s.GetStages)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Post("/turns", s.PostTurn)
		r.Post("/comply", s.PostComply)
		r.Post("/complete", s.PostComplete)
		r.Post("/handoff", s.PostHandoff)
	})
	r.Post("/handoff/resume", s.PostResume)

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostTurn handles POST /sessions/{id}/turns.
func (s *Server) PostTurn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body turnBody
	if !s.decode(w, r, id, &body) {
		return
	}
	msg, err := runner.SanitizeInput(body.Message)
	if err != nil {
		s.fail(w, r, id, err)
		return
	}

	res, err := s.Engine.Turn(r.Context(), stagegate.TurnRequest{SessionID: id, Message: msg, TurnID: body.TurnID})
	if err != nil {
		s.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PostComply handles POST /sessions/{id}/comply.
func (s *Server) PostComply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body complyBody
	if !s.decode(w, r, id, &body) {
		return
	}
	draft, err := runner.SanitizeInput(body.Draft)
	if err != nil {
		s.fail(w, r, id, err)
		return
	}

	check, err := s.Engine.Comply(r.Context(), stagegate.ComplyRequest{SessionID: id, Draft: draft, Classification: body.Classification})
	if err != nil {
		s.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// PostComplete handles POST /sessions/{id}/complete.
func (s *Server) PostComplete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var status domain.ExecutionStatus
	if !s.decode(w, r, id, &status) {
		return
	}

	done, err := s.Engine.Complete(r.Context(), id, status)
	if err != nil {
		s.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, done)
}

// PostHandoff handles POST /sessions/{id}/handoff.
func (s *Server) PostHandoff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body handoffBody
	if !s.decode(w, r, id, &body) {
		return
	}

	out, err := s.Engine.Handoff(r.Context(), id, body.Target)
	if err != nil {
		s.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// PostResume handles POST /handoff/resume.
func (s *Server) PostResume(w http.ResponseWriter, r *http.Request) {
	var body resumeBody
	if !s.decode(w, r, "", &body) {
		return
	}
	contract, err := handoff.DecodeJSON(body.Contract)
	if err != nil {
		s.fail(w, r, body.SessionID, err)
		return
	}

	sc, err := s.Engine.Resume(r.Context(), body.SessionID, contract)
	if err != nil {
		s.fail(w, r, body.SessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sc, err := s.Engine.Session(r.Context(), id)
	if err != nil {
		s.fail(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Engine.Reset(r.Context(), id); err != nil {
		s.fail(w, r, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStages handles GET /stages.
func (s *Server) GetStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Stages())
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(stagegate.Version),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, sessionID string, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, int64(4*runner.MaxInputSize())))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.Logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:    "invalid request body",
			Response: s.Engine.SafeFallback(r.Context(), sessionID),
		})
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		s.Logger.Error("Request failed", "path", r.URL.Path, "err", err)
	} else {
		s.Logger.Warn("Request rejected", "path", r.URL.Path, "status", code, "err", err)
	}
	writeJSON(w, code, ErrorResponse{
		Error:    err.Error(),
		Response: s.Engine.SafeFallback(r.Context(), sessionID),
	})
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	var (
		missing   *domain.MissingStateError
		violation *domain.MandatoryActionViolation
	)
	switch {
	case errors.Is(err, stagegate.ErrEmptySessionID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &violation):
		return http.StatusConflict
	case errors.As(err, &missing),
		errors.Is(err, domain.ErrInvalidContract),
		errors.Is(err, runner.ErrInputTooLarge),
		errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}
