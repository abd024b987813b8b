package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"genrecast/internal/config"
	"genrecast/internal/logging"
	"genrecast/internal/metrics"
	"genrecast/internal/pipeline"
	"genrecast/internal/stage"
)

const (
	headerRequestID = "X-Request-ID"
	maxBodyBytes    = 64 << 10
)

// Predictor is the replay pipeline consumed by the HTTP layer.
type Predictor interface {
	Predict(ctx context.Context, record map[string]float64) (*pipeline.Prediction, error)
	Health(ctx context.Context) stage.Health
}

// Server exposes prediction, health and metrics routes.
type Server struct {
	bind      string
	predictor Predictor
	logger    *slog.Logger
	validate  *validator.Validate
	server    *http.Server
}

// NewServer builds the router and HTTP server from cfg.
func NewServer(cfg *config.Config, predictor Predictor, logger *slog.Logger) (*Server, error) {
	if cfg == nil || predictor == nil {
		return nil, errors.New("api server requires config and predictor")
	}
	bind := strings.TrimSpace(cfg.Server.Bind)
	if bind == "" {
		return nil, stage.Wrap(stage.ErrConfiguration, "serve", "bind", "server.bind is empty", nil)
	}
	s := &Server{
		bind:      bind,
		predictor: predictor,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		validate:  newValidator(),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       seconds(cfg.Server.ReadTimeoutSeconds, 15),
		WriteTimeout:      seconds(cfg.Server.WriteTimeoutSeconds, 30),
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the chi router with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.correlate)
	r.Use(s.logRequests)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Get("/health", s.handleHealth)
	})
	r.Handle("/metrics", metrics.Handler())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "validation", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "validation", "method not allowed", nil)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled
// or the server fails. A cancelled context is a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	s.log().Info("api server stopped")
	return nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "validation", "invalid request body: "+err.Error(), nil)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field())
			}
			s.writeError(w, r, http.StatusBadRequest, "validation", "missing required features", fields)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "validation", err.Error(), nil)
		return
	}

	prediction, err := s.predictor.Predict(r.Context(), req.Record())
	if err != nil {
		kind := stage.Kind(err)
		s.writeError(w, r, statusForKind(kind), kind, err.Error(), nil)
		return
	}
	s.writeJSON(w, http.StatusOK, PredictResponse{
		Genre:    prediction.Label,
		RunID:    prediction.RunID,
		Strategy: prediction.Strategy,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.predictor.Health(r.Context())
	resp := HealthResponse{Status: "ok", Components: []stage.Health{health}}
	status := http.StatusOK
	if !health.Ready {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

// correlate propagates or assigns the request correlation ID.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(stage.WithRequestID(r.Context(), id)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logging.WithContext(r.Context(), s.log()).Log(r.Context(), level, "request served",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("api response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string, fields []string) {
	correlationID, _ := stage.RequestIDFromContext(r.Context())
	s.writeJSON(w, status, ErrorResponse{
		Error:         message,
		Kind:          kind,
		Fields:        fields,
		CorrelationID: correlationID,
	})
}

func (s *Server) log() *slog.Logger {
	if s == nil || s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}

func statusForKind(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "schema", "contract":
		return http.StatusUnprocessableEntity
	case "not_fitted":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// newValidator reports field errors by JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func seconds(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
