package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"titan/internal/config"
	"titan/internal/domain"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// ReadinessCheck reports whether the durable mirror is reachable.
type ReadinessCheck func(ctx context.Context) error

// HTTPServer exposes the booking API as JSON over HTTP.
type HTTPServer struct {
	cfg         *config.HTTPConfig
	bookings    domain.BookingService
	technicians domain.TechnicianService
	ready       ReadinessCheck
	limiter     *rateLimiter
	logger      *zerolog.Logger
	server      *http.Server
}

type Option func(*HTTPServer)

func WithReadiness(check ReadinessCheck) Option {
	return func(s *HTTPServer) { s.ready = check }
}

func NewHTTPServer(
	cfg *config.HTTPConfig,
	bookings domain.BookingService,
	technicians domain.TechnicianService,
	logger *zerolog.Logger,
	opts ...Option,
) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{
		cfg:         cfg,
		bookings:    bookings,
		technicians: technicians,
		limiter:     newRateLimiter(cfg.RateLimit),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleBanner)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.Handle("POST /api/bookings", s.limiter.wrap(http.HandlerFunc(s.handleCreateBooking)))
	mux.HandleFunc("GET /api/bookings/export.xlsx", s.handleExport)
	mux.HandleFunc("GET /api/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("PUT /api/bookings/{id}", s.handleUpdateBooking)
	mux.HandleFunc("POST /api/bookings/{id}/assign", s.handleAssign)
	mux.HandleFunc("GET /api/technicians", s.handleTechnicians)

	if s.cfg.StaticDir != "" {
		mux.Handle("GET /app/", http.StripPrefix("/app/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})

	return c.Handler(requestIDMiddleware(s.logger, loggingMiddleware(recoveryMiddleware(mux))))
}

// Handler returns the fully wrapped router.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleBanner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Titan Booking System API",
		"status":  "running",
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFailure(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, failureResponse{Success: false, Message: message})
}
