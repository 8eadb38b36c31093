package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/timi/timi-go/internal/middleware"
	"github.com/timi/timi-go/internal/service"
)

// errorStatuses maps service errors to HTTP status codes. The first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrEmailRequired, http.StatusBadRequest},
	{service.ErrPasswordRequired, http.StatusBadRequest},
	{service.ErrDuplicateEmail, http.StatusBadRequest},
	{service.ErrWeakPassword, http.StatusBadRequest},
	{service.ErrTitleRequired, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrUnauthenticated, http.StatusUnauthorized},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrTaskNotFound, http.StatusNotFound},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError translates err into a response. Unknown errors are logged and hidden
// behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.err) {
			continue
		}
		detail := err.Error()
		if e.err == service.ErrUnauthenticated {
			detail = e.err.Error()
		}
		middleware.WriteError(w, e.status, detail)
		return
	}

	logger.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	middleware.WriteError(w, http.StatusInternalServerError, "internal server error")
}
