package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/config"
	"github.com/sipas/persuratan/internal/kategori"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/ratelimit"
	"github.com/sipas/persuratan/internal/report"
	"github.com/sipas/persuratan/internal/surat"
	"github.com/sipas/persuratan/internal/suratmasuk"
	"github.com/sipas/persuratan/internal/users"
)

// Services groups the domain services exposed over HTTP. Nil services have
// their routes left unregistered.
type Services struct {
	Auth       *auth.Service
	Surat      *surat.Service
	SuratMasuk *suratmasuk.Service
	Kategori   *kategori.Service
	Users      *users.Service
	Report     *report.Service
	Cache      *cache.Invalidator
}

type Server struct {
	config         config.ServerConfig
	services       Services
	authMiddleware *auth.Middleware
	loginLimiter   *ratelimit.Limiter
	logger         *logging.Logger
	server         *http.Server
}

func New(cfg config.ServerConfig, services Services, authMiddleware *auth.Middleware, logger *logging.Logger) *Server {
	return &Server{
		config:         cfg,
		services:       services,
		authMiddleware: authMiddleware,
		loginLimiter:   ratelimit.PerMinute(cfg.LoginRatePerMinute),
		logger:         logger.Component("http"),
	}
}

// Handler builds the routed handler with the middleware chain applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.services.Auth != nil && s.authMiddleware != nil {
		NewAuthAPI(s.services.Auth, s.authMiddleware, s.loginLimiter, s.logger).RegisterRoutes(mux)
	}
	if s.authMiddleware != nil {
		if s.services.Surat != nil {
			NewSuratAPI(s.services.Surat, s.authMiddleware, s.logger).RegisterRoutes(mux)
		}
		if s.services.SuratMasuk != nil {
			NewSuratMasukAPI(s.services.SuratMasuk, s.authMiddleware, s.logger).RegisterRoutes(mux)
		}
		if s.services.Kategori != nil {
			NewKategoriAPI(s.services.Kategori, s.authMiddleware, s.logger).RegisterRoutes(mux)
		}
		if s.services.Users != nil {
			NewUserAPI(s.services.Users, s.authMiddleware, s.logger).RegisterRoutes(mux)
		}
		if s.services.Report != nil {
			NewReportAPI(s.services.Report, s.authMiddleware, s.logger).RegisterRoutes(mux)
		}
		if s.services.Cache != nil {
			NewAdminAPI(s.services.Cache, s.authMiddleware, s.logger).RegisterRoutes(mux)
		}
	}

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)

	var h http.Handler = mux
	h = s.corsMiddleware(h)
	h = instrument(h)
	h = s.recoverMiddleware(h)
	h = requestIDMiddleware(h)
	return h
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// PruneLoginLimiter drops rate-limit state for addresses idle longer than maxIdle
func (s *Server) PruneLoginLimiter(maxIdle time.Duration) int {
	return s.loginLimiter.Prune(maxIdle)
}
