package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vkoshelev/identityd/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

// handleError translates service errors into the external failure
// representation. Infrastructure errors are reported as a generic 500 and
// never leak their cause.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrDuplicateUsername),
		errors.Is(err, model.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials),
		errors.Is(err, model.ErrUnknownToken),
		errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenOwnershipMismatch),
		errors.Is(err, model.ErrTokenTampered),
		errors.Is(err, model.ErrTokenMalformed),
		errors.Is(err, model.ErrAccessTokenExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, model.ErrAccountNotEnabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
