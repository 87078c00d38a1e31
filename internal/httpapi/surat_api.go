package httpapi

import (
	"net/http"
	"time"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/surat"
)

// SuratAPI handles outgoing-letter endpoints
type SuratAPI struct {
	suratSvc       *surat.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewSuratAPI creates a new outgoing-letter API handler
func NewSuratAPI(suratSvc *surat.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *SuratAPI {
	return &SuratAPI{
		suratSvc:       suratSvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers outgoing-letter routes
func (api *SuratAPI) RegisterRoutes(mux *http.ServeMux) {
	anyRole := api.authMiddleware.RequireAuth
	staff := api.authMiddleware.RequireRole(models.RoleAdmin, models.RoleOperator)

	mux.HandleFunc("GET /api/surat", anyRole(api.handleList))
	mux.HandleFunc("POST /api/surat", staff(api.handleCreate))
	mux.HandleFunc("GET /api/surat/nomor-preview", staff(api.handlePreview))
	mux.HandleFunc("GET /api/surat/{id}", anyRole(api.handleGet))
	mux.HandleFunc("PUT /api/surat/{id}", staff(api.handleUpdate))
	mux.HandleFunc("DELETE /api/surat/{id}", staff(api.handleDelete))
}

func (api *SuratAPI) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeServiceError(w, api.logger, err, "list surat")
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeServiceError(w, api.logger, err, "list surat")
		return
	}

	params := models.SuratFilterParams{
		Tahun:    parseIntQuery(query.Get("tahun"), 0),
		Kategori: query.Get("kategori"),
		Query:    query.Get("q"),
		From:     from,
		To:       to,
		Limit:    parseIntQuery(query.Get("limit"), models.DefaultPageLimit),
		Offset:   parseIntQuery(query.Get("offset"), 0),
	}

	response, err := api.suratSvc.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "list surat")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (api *SuratAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	tanggal, err := parseDateQuery(r, "tanggal")
	if err != nil {
		writeServiceError(w, api.logger, err, "preview nomor")
		return
	}
	if tanggal.IsZero() {
		tanggal = models.DateOf(time.Now())
	}

	preview, err := api.suratSvc.PreviewNomor(r.Context(), r.URL.Query().Get("kategori"), tanggal)
	if err != nil {
		writeServiceError(w, api.logger, err, "preview nomor")
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

func (api *SuratAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := api.suratSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, api.logger, err, "get surat")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (api *SuratAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params models.CreateSuratParams
	if !decodeJSON(w, r, &params) {
		return
	}

	item, err := api.suratSvc.Create(r.Context(), auth.GetUserID(r.Context()), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "create surat")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (api *SuratAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var params models.UpdateSuratParams
	if !decodeJSON(w, r, &params) {
		return
	}

	item, err := api.suratSvc.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "update surat")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (api *SuratAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := api.suratSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, api.logger, err, "delete surat")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
