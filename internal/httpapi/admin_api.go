package httpapi

import (
	"net/http"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/cache"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
)

// AdminAPI exposes cache diagnostics and maintenance to admins
type AdminAPI struct {
	invalidator    *cache.Invalidator
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewAdminAPI creates a new admin API handler
func NewAdminAPI(invalidator *cache.Invalidator, authMiddleware *auth.Middleware, logger *logging.Logger) *AdminAPI {
	return &AdminAPI{
		invalidator:    invalidator,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers admin routes
func (api *AdminAPI) RegisterRoutes(mux *http.ServeMux) {
	if api.authMiddleware == nil {
		api.logger.Error("Admin API routes not registered: authMiddleware is nil")
		return
	}

	admin := api.authMiddleware.RequireRole(models.RoleAdmin)
	mux.HandleFunc("GET /api/admin/cache", admin(api.handleStats))
	mux.HandleFunc("POST /api/admin/cache/clean", admin(api.handleClean))
	mux.HandleFunc("POST /api/admin/cache/invalidate", admin(api.handleInvalidate))
}

func (api *AdminAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.invalidator.Stats())
}

func (api *AdminAPI) handleClean(w http.ResponseWriter, r *http.Request) {
	evicted := api.invalidator.Clean()
	api.logger.Info("Cache cleaned by admin", logging.WithFields(map[string]interface{}{
		"evicted": evicted,
		"userId":  auth.GetUserID(r.Context()),
	}))
	writeJSON(w, http.StatusOK, map[string]int{"evicted": evicted})
}

func (api *AdminAPI) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type string `json:"type"`
		All  bool   `json:"all"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	switch {
	case body.All:
		api.invalidator.InvalidateAll()
	case body.Type != "":
		if _, ok := cache.KeyForType(body.Type); !ok {
			writeError(w, http.StatusBadRequest, "invalid_input", "unknown data type "+body.Type)
			return
		}
		api.invalidator.InvalidateByType(body.Type)
	default:
		writeError(w, http.StatusBadRequest, "invalid_input", "type or all is required")
		return
	}

	api.logger.Info("Cache invalidated by admin", logging.WithFields(map[string]interface{}{
		"type":   body.Type,
		"all":    body.All,
		"userId": auth.GetUserID(r.Context()),
	}))
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
