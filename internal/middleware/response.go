package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// WriteError writes an ErrorBody with status. 401 responses carry a Bearer challenge.
func WriteError(w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorBody{Detail: detail, StatusCode: status})
}
