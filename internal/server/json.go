package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/vrquest/internal/quest"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine errors onto HTTP statuses. Caller errors carry
// their message; anything unexpected is logged and hidden.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var status int
	switch {
	case errors.Is(err, quest.ErrInvalidPOI),
		errors.Is(err, quest.ErrInvalidScene),
		errors.Is(err, quest.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quest.ErrInvalidInteraction):
		status = http.StatusBadRequest
	case errors.Is(err, quest.ErrInvalidContent):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, quest.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, quest.ErrTourClosed):
		status = http.StatusConflict
	case errors.Is(err, quest.ErrStoreUnavailable):
		logger.Error("store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "progress store unavailable")
		return
	default:
		logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
