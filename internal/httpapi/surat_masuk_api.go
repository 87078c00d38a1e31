package httpapi

import (
	"mime"
	"net/http"
	"strings"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/suratmasuk"
)

const maxImportBody = 10 << 20

// SuratMasukAPI handles incoming-letter endpoints
type SuratMasukAPI struct {
	suratMasukSvc  *suratmasuk.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewSuratMasukAPI creates a new incoming-letter API handler
func NewSuratMasukAPI(suratMasukSvc *suratmasuk.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *SuratMasukAPI {
	return &SuratMasukAPI{
		suratMasukSvc:  suratMasukSvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers incoming-letter routes
func (api *SuratMasukAPI) RegisterRoutes(mux *http.ServeMux) {
	anyRole := api.authMiddleware.RequireAuth
	staff := api.authMiddleware.RequireRole(models.RoleAdmin, models.RoleOperator)

	mux.HandleFunc("GET /api/surat-masuk", anyRole(api.handleList))
	mux.HandleFunc("POST /api/surat-masuk", staff(api.handleCreate))
	mux.HandleFunc("POST /api/surat-masuk/import", staff(api.handleImport))
	mux.HandleFunc("GET /api/surat-masuk/{id}", anyRole(api.handleGet))
	mux.HandleFunc("PUT /api/surat-masuk/{id}", staff(api.handleUpdate))
	mux.HandleFunc("DELETE /api/surat-masuk/{id}", staff(api.handleDelete))
}

func (api *SuratMasukAPI) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeServiceError(w, api.logger, err, "list surat masuk")
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeServiceError(w, api.logger, err, "list surat masuk")
		return
	}

	params := models.SuratMasukFilterParams{
		Tahun:  parseIntQuery(query.Get("tahun"), 0),
		Sifat:  models.Sifat(strings.ToLower(query.Get("sifat"))),
		Query:  query.Get("q"),
		From:   from,
		To:     to,
		Limit:  parseIntQuery(query.Get("limit"), models.DefaultPageLimit),
		Offset: parseIntQuery(query.Get("offset"), 0),
	}

	response, err := api.suratMasukSvc.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "list surat masuk")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (api *SuratMasukAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := api.suratMasukSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, api.logger, err, "get surat masuk")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (api *SuratMasukAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params models.CreateSuratMasukParams
	if !decodeJSON(w, r, &params) {
		return
	}

	item, err := api.suratMasukSvc.Create(r.Context(), auth.GetUserID(r.Context()), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "create surat masuk")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// handleImport accepts either a CSV body or a JSON array of letters
func (api *SuratMasukAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		result *models.ImportResult
		err    error
	)
	if mediaType == "application/json" {
		var rows []models.CreateSuratMasukParams
		if !decodeJSON(w, r, &rows) {
			return
		}
		result, err = api.suratMasukSvc.Import(r.Context(), userID, rows)
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)
		result, err = api.suratMasukSvc.ImportCSV(r.Context(), userID, r.Body)
	}
	if err != nil {
		writeServiceError(w, api.logger, err, "import surat masuk")
		return
	}

	api.logger.Info("Imported surat masuk", logging.WithFields(map[string]interface{}{
		"imported": result.Imported,
		"failed":   len(result.Failed),
		"userId":   userID,
	}))
	writeJSON(w, http.StatusOK, result)
}

func (api *SuratMasukAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var params models.UpdateSuratMasukParams
	if !decodeJSON(w, r, &params) {
		return
	}

	item, err := api.suratMasukSvc.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "update surat masuk")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (api *SuratMasukAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := api.suratMasukSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, api.logger, err, "delete surat masuk")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
