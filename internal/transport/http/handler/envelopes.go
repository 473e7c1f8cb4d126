package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-like-relay/internal/application/intake"
	"github.com/go-like-relay/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// SubmissionEnvelope wraps intake responses.
type SubmissionEnvelope struct {
	Submission *intake.Submission `json:"submission,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// RequestEnvelope wraps request status responses.
type RequestEnvelope struct {
	Request *domain.VerificationRequest `json:"request,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// ProfileEnvelope wraps profile responses.
type ProfileEnvelope struct {
	Profile *domain.Profile `json:"profile,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// httpError maps a service error onto a status code. Unknown errors are logged
// and reported as a generic 500.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrAlreadyUsed), errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrGrantAPI), errors.Is(err, domain.ErrLookup):
		writeError(w, http.StatusBadGateway, "upstream error")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
