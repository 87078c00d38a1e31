package httpapi

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/database"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/ratelimit"
)

// AuthAPI handles authentication HTTP endpoints
type AuthAPI struct {
	authService    *auth.Service
	authMiddleware *auth.Middleware
	limiter        *ratelimit.Limiter
	logger         *logging.Logger
}

// NewAuthAPI creates a new auth API handler
func NewAuthAPI(authService *auth.Service, authMiddleware *auth.Middleware, limiter *ratelimit.Limiter, logger *logging.Logger) *AuthAPI {
	return &AuthAPI{
		authService:    authService,
		authMiddleware: authMiddleware,
		limiter:        limiter,
		logger:         logger,
	}
}

// RegisterRoutes registers auth routes on the given mux
func (api *AuthAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", api.handleLogin)
	mux.HandleFunc("GET /api/auth/me", api.authMiddleware.RequireAuth(api.handleGetMe))
}

func (api *AuthAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !api.limiter.Allow(ip) {
		retry := api.limiter.RetryAfter(ip)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		api.logger.Warn("Login rate limited", logging.WithField("ip", ip))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again later")
		return
	}

	var params models.LoginParams
	if !decodeJSON(w, r, &params) {
		return
	}

	response, err := api.authService.Login(r.Context(), params)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			status := http.StatusUnauthorized
			switch authErr.Code {
			case "invalid_input":
				status = http.StatusBadRequest
			case "account_disabled":
				status = http.StatusForbidden
			}
			writeError(w, status, authErr.Code, authErr.Message)
			return
		}
		api.logger.Error("Login failed", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}

	// a successful login clears earlier failures from the same address
	api.limiter.Reset(ip)
	writeJSON(w, http.StatusOK, response)
}

func (api *AuthAPI) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := api.authService.GetUser(r.Context(), auth.GetUserID(r.Context()))
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	if err != nil {
		api.logger.Error("Failed to get user", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// clientIP prefers the first X-Forwarded-For hop set by the reverse proxy
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
