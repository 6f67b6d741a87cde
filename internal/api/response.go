package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vrsandeep/cne-console/internal/backend"
)

// RespondWithJSON writes a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to marshal response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithError writes a standardized JSON error response.
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithBackendError relays a backend failure. Client errors keep
// their status and code; anything else becomes a 502.
func respondWithBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		code := http.StatusBadGateway
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			code = apiErr.StatusCode
		}
		body := map[string]string{"error": apiErr.Code}
		if apiErr.Detail != "" {
			body["detail"] = apiErr.Detail
		}
		RespondWithJSON(w, code, body)
		return
	}
	RespondWithError(w, http.StatusBadGateway, err.Error())
}
