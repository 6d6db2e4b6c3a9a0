package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/authz"
)

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// guardStatus maps a guard deny to its HTTP status: 401 for missing
// credentials, 400 for the self-protection rules, 403 for everything else.
func guardStatus(err error) int {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized
	case authz.SelfProtection(err):
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	writeJSON(w, guardStatus(err), statusResponse{Success: false, Message: err.Error()})
}
