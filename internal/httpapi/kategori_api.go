package httpapi

import (
	"net/http"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/kategori"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
)

// KategoriAPI handles classification code endpoints
type KategoriAPI struct {
	kategoriSvc    *kategori.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewKategoriAPI creates a new kategori API handler
func NewKategoriAPI(kategoriSvc *kategori.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *KategoriAPI {
	return &KategoriAPI{
		kategoriSvc:    kategoriSvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers kategori routes
func (api *KategoriAPI) RegisterRoutes(mux *http.ServeMux) {
	anyRole := api.authMiddleware.RequireAuth
	admin := api.authMiddleware.RequireRole(models.RoleAdmin)

	mux.HandleFunc("GET /api/kategori", anyRole(api.handleList))
	mux.HandleFunc("GET /api/kategori/tree", anyRole(api.handleTree))
	mux.HandleFunc("GET /api/categories", anyRole(api.handleCategories))
	mux.HandleFunc("GET /api/kategori/{id}", anyRole(api.handleGet))
	mux.HandleFunc("POST /api/kategori", admin(api.handleCreate))
	mux.HandleFunc("PUT /api/kategori/{id}", admin(api.handleUpdate))
	mux.HandleFunc("DELETE /api/kategori/{id}", admin(api.handleDelete))
}

func (api *KategoriAPI) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := api.kategoriSvc.List(r.Context())
	if err != nil {
		writeServiceError(w, api.logger, err, "list kategori")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func (api *KategoriAPI) handleTree(w http.ResponseWriter, r *http.Request) {
	tree, err := api.kategoriSvc.Tree(r.Context())
	if err != nil {
		writeServiceError(w, api.logger, err, "build kategori tree")
		return
	}

	writeJSON(w, http.StatusOK, tree)
}

func (api *KategoriAPI) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := api.kategoriSvc.Categories(r.Context())
	if err != nil {
		writeServiceError(w, api.logger, err, "list categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (api *KategoriAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := api.kategoriSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, api.logger, err, "get kategori")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (api *KategoriAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params models.CreateKategoriParams
	if !decodeJSON(w, r, &params) {
		return
	}

	item, err := api.kategoriSvc.Create(r.Context(), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "create kategori")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (api *KategoriAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var params models.UpdateKategoriParams
	if !decodeJSON(w, r, &params) {
		return
	}

	item, err := api.kategoriSvc.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "update kategori")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (api *KategoriAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := api.kategoriSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, api.logger, err, "delete kategori")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
