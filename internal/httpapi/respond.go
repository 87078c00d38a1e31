package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sipas/persuratan/internal/auth"
	"github.com/sipas/persuratan/internal/logging"
	"github.com/sipas/persuratan/internal/models"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// coded is implemented by every service error type
type coded interface {
	ErrorCode() string
}

// statusForCode maps service error codes to HTTP statuses
func statusForCode(code string) int {
	switch code {
	case "invalid_input":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "forbidden":
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeServiceError translates a service error into a JSON response.
// Unknown errors are logged and reported as a generic failure of action.
func writeServiceError(w http.ResponseWriter, logger *logging.Logger, err error, action string) {
	var ce coded
	if errors.As(err, &ce) {
		writeError(w, statusForCode(ce.ErrorCode()), ce.ErrorCode(), err.Error())
		return
	}

	var ve *models.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "invalid_input", ve.Message)
		return
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		writeError(w, http.StatusUnauthorized, authErr.Code, authErr.Message)
		return
	}

	logger.Error("Failed to "+action, logging.WithField("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

func parseIntQuery(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// parseDateQuery parses an optional date parameter; empty yields the zero date
func parseDateQuery(r *http.Request, name string) (models.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return models.Date{}, nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return models.Date{}, &models.ValidationError{Field: name, Message: fmt.Sprintf("invalid %s date %q", name, v)}
	}
	return d, nil
}
