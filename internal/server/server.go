// Package server is the HTTP gateway: upload, extraction, export download,
// cleanup, feedback, and status endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/pdftablepro/pdftab/internal/auth"
	"github.com/pdftablepro/pdftab/internal/entity"
	"github.com/pdftablepro/pdftab/internal/repository"
	"github.com/pdftablepro/pdftab/internal/security"
)

// Extractor is the upstream extraction surface the gateway depends on.
type Extractor interface {
	Extract(ctx context.Context, req *entity.ExtractionRequest) (*entity.ExtractionResult, error)
}

// Server wires the gateway's handlers to their dependencies. The verifier,
// profile and feedback repositories are optional; endpoints depending on them
// degrade gracefully when absent.
type Server struct {
	addr      string
	logger    *slog.Logger
	extractor Extractor
	scanner   *security.Scanner
	store     *security.FileStore
	limiter   *security.RateLimiter
	verifier  *auth.Verifier
	profiles  repository.ProfileRepository
	feedback  repository.FeedbackRepository
	origins   []string

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithVerifier enables bearer-token authentication.
func WithVerifier(v *auth.Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

// WithProfiles enables per-user quota tracking.
func WithProfiles(p repository.ProfileRepository) Option {
	return func(s *Server) { s.profiles = p }
}

// WithFeedback enables the feedback and social-proof endpoints.
func WithFeedback(f repository.FeedbackRepository) Option {
	return func(s *Server) { s.feedback = f }
}

// WithAllowedOrigins sets the CORS allowlist.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// New assembles a gateway server.
func New(addr string, extractor Extractor, store *security.FileStore, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:      addr,
		logger:    logger,
		extractor: extractor,
		scanner:   security.NewScanner(),
		store:     store,
		limiter:   security.NewRateLimiter(logger),
	}
	for _, o := range opts {
		o(s)
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.With(s.rateLimit(security.EndpointUpload)).Post("/extract", s.handleExtract)
	r.With(s.rateLimit(security.EndpointDownload)).Get("/download/{fileID}", s.handleDownload)
	r.With(s.rateLimit(security.EndpointCleanup)).Delete("/cleanup/{fileID}", s.handleCleanup)

	r.Route("/auth", func(r chi.Router) {
		r.Use(s.rateLimit(security.EndpointSecurity))
		r.Get("/status", s.handleAuthStatus)
		r.Get("/verify", s.handleAuthVerify)
	})

	r.With(s.rateLimit(security.EndpointSecurity)).Get("/security/status", s.handleSecurityStatus)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit(security.EndpointDefault))
		r.Post("/feedback/accuracy", s.handleFeedbackSubmit)
		r.Get("/feedback/stats", s.handleFeedbackStats)
		r.Get("/social-proof", s.handleSocialProof)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(r)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http.listen", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http.shutdown")
	return s.httpServer.Shutdown(ctx)
}
