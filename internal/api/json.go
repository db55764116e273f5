package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/notearchiver/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	// Code is a stable machine-readable kind, e.g. "destination_exists".
	Code string `json:"code,omitempty" example:"destination_exists"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorFrom describes a domain error with its code.
func errorFrom(err error) errResponse {
	return errResponse{Error: err.Error(), Code: errorCode(err)}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, apperr.ErrPartialMove):
		return "partial_move"
	case errors.Is(err, apperr.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, apperr.ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, apperr.ErrDestinationPathConflict):
		return "destination_path_conflict"
	case errors.Is(err, apperr.ErrDestinationAlreadyExists):
		return "destination_exists"
	case errors.Is(err, apperr.ErrAlreadyArchived):
		return "already_archived"
	default:
		return ""
	}
}
