package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/soundrig/internal/customevent"
	"github.com/gyaneshwarpardhi/soundrig/internal/engine"
	"github.com/gyaneshwarpardhi/soundrig/internal/mixer"
	"github.com/gyaneshwarpardhi/soundrig/internal/playlist"
	"github.com/gyaneshwarpardhi/soundrig/internal/runtime"
	"github.com/gyaneshwarpardhi/soundrig/internal/sound"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps engine and runtime errors onto HTTP status codes.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, runtime.ErrUnknownTrigger),
		errors.Is(err, runtime.ErrNotFound),
		errors.Is(err, customevent.ErrUnknownEvent),
		errors.Is(err, sound.ErrNotFound),
		errors.Is(err, mixer.ErrNotFound),
		errors.Is(err, playlist.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, runtime.ErrVoiceLimit):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
