package handler

// Response helpers shared by the proxy routes.
//
// Every error leaving the /api surface has the same one-field shape the
// backend itself uses:
//
//	{"message": "Failed to fetch posts"}
//
// and, for upstream failures, the backend's own status code is preserved so
// the browser sees exactly what the backend decided.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/blogger-web/internal/apperror"
)

// ErrorResponse is the error envelope for all /api responses.
type ErrorResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before the first body write, hence the fixed ordering here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already gone; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error onto the envelope. Upstream errors keep the
// backend's status; everything unrecognised becomes a 502, because from this
// app's point of view any unexplained failure is a failed backend hop.
func writeError(w http.ResponseWriter, err error) {
	if status, ok := apperror.UpstreamStatus(err); ok {
		writeJSON(w, status, ErrorResponse{Message: err.Error()})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		}
		writeJSON(w, status, ErrorResponse{Message: appErr.Message})
		return
	}

	writeJSON(w, http.StatusBadGateway, ErrorResponse{Message: "Upstream request failed"})
}
