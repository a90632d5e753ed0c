package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"permit-fees/internal/errors"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// MaxBodyBytes bounds request bodies
const MaxBodyBytes = 1 << 20

const typeRateLimited errors.Type = "RATE_LIMITED"

type requestIDKey struct{}

// Server is the API server
type Server struct {
	handler *Handler
	mux     *http.ServeMux
	version string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit limits sustained requests per second with a burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewServer creates a new API server
func NewServer(handler *Handler, opts ...Option) *Server {
	s := &Server{
		handler: handler,
		mux:     http.NewServeMux(),
		version: handler.version,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/fees", s.handleAction)
	s.mux.HandleFunc("GET /api/fees", s.handleQuery)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/version", s.handleVersion)
}

// handleAction handles POST /api/fees
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.TypeInput, "invalid JSON body", err))
		return
	}
	if req.Action == "" {
		s.writeError(w, r, errors.Input("action is required"))
		return
	}
	s.execute(w, r, req.Action, req.Params)
}

// handleQuery handles GET /api/fees?action=... for read-only actions
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := q.Get("action")
	if action == "" {
		s.writeError(w, r, errors.Input("Invalid action or missing action parameter"))
		return
	}
	if !s.handler.ReadOnly(action) {
		s.writeError(w, r, errors.Newf(errors.TypeInput, "action %s requires POST", action))
		return
	}

	params, _ := json.Marshal(JurisdictionParams{
		JurisdictionID:   q.Get("jurisdictionId"),
		JurisdictionName: q.Get("jurisdictionName"),
		StateCode:        q.Get("stateCode"),
	})
	s.execute(w, r, action, params)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, action string, params json.RawMessage) {
	data, err := s.handler.Execute(r.Context(), action, params)
	if err != nil {
		s.logger.Warn("action failed",
			zap.String("action", action),
			zap.String("request_id", requestID(r.Context())),
			zap.String("error_type", string(errors.TypeOf(err))),
			zap.Error(err))
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, Response{Success: true, Data: data}, http.StatusOK)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, Response{Success: true, Data: map[string]string{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}}, http.StatusOK)
}

// handleVersion handles GET /api/version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, Response{Success: true, Data: map[string]string{
		"version": s.version,
		"engine":  "permit-fees",
	}}, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, resp Response, status int) {
	resp.RequestID = requestID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	t := errors.TypeOf(err)
	s.writeJSON(w, r, Response{Error: errors.Message(err), ErrorType: t}, statusFor(t))
}

// statusFor maps an error type to an HTTP status
func statusFor(t errors.Type) int {
	switch t {
	case errors.TypeNotFound:
		return http.StatusNotFound
	case errors.TypeInput:
		return http.StatusBadRequest
	case errors.TypeDataUnavailable:
		return http.StatusServiceUnavailable
	case typeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)
	r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	if s.limiter != nil && !s.limiter.Allow() {
		s.writeError(rec, r, errors.New(typeRateLimited, "rate limit exceeded"))
	} else {
		s.mux.ServeHTTP(rec, r)
	}

	s.logger.Info("request",
		zap.String("request_id", id),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
