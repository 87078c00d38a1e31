package httpapi

import (
	"net/http"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
	"github.com/sipas/persuratan/internal/users"
)

// UserAPI handles user administration endpoints. All routes are admin-only.
type UserAPI struct {
	usersSvc       *users.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewUserAPI creates a new user API handler
func NewUserAPI(usersSvc *users.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *UserAPI {
	return &UserAPI{
		usersSvc:       usersSvc,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers user routes
func (api *UserAPI) RegisterRoutes(mux *http.ServeMux) {
	admin := api.authMiddleware.RequireRole(models.RoleAdmin)

	mux.HandleFunc("GET /api/users", admin(api.handleList))
	mux.HandleFunc("POST /api/users", admin(api.handleCreate))
	mux.HandleFunc("GET /api/users/{id}", admin(api.handleGet))
	mux.HandleFunc("PUT /api/users/{id}", admin(api.handleUpdate))
	mux.HandleFunc("DELETE /api/users/{id}", admin(api.handleDelete))
	mux.HandleFunc("POST /api/users/{id}/password", admin(api.handleResetPassword))
}

func (api *UserAPI) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := models.UserFilterParams{
		Query:  query.Get("query"),
		Role:   models.Role(query.Get("role")),
		Status: models.UserStatus(query.Get("status")),
		Limit:  parseIntQuery(query.Get("limit"), models.DefaultPageLimit),
		Offset: parseIntQuery(query.Get("offset"), 0),
	}

	response, err := api.usersSvc.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "list users")
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (api *UserAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	user, err := api.usersSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, api.logger, err, "get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (api *UserAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params models.CreateUserParams
	if !decodeJSON(w, r, &params) {
		return
	}

	user, err := api.usersSvc.Create(r.Context(), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "create user")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (api *UserAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var params models.UpdateUserParams
	if !decodeJSON(w, r, &params) {
		return
	}

	user, err := api.usersSvc.Update(r.Context(), auth.GetUserID(r.Context()), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, api.logger, err, "update user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (api *UserAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := api.usersSvc.Delete(r.Context(), auth.GetUserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, api.logger, err, "delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *UserAPI) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	if err := api.usersSvc.ResetPassword(r.Context(), r.PathValue("id"), body.Password); err != nil {
		writeServiceError(w, api.logger, err, "reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
