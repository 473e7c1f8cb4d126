package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-like-relay/internal/application/verification"
	"github.com/go-like-relay/internal/domain"
)

const (
	verifiedText = "Verification successful. Your request will be processed shortly."
	rejectedText = "Link expired or already used."
	failedText   = "Verification is temporarily unavailable. Please try again."
)

// VerifyHandler serves the public verification link opened in a browser.
// It answers in plain text.
type VerifyHandler struct {
	svc verification.Service
}

func NewVerifyHandler(svc verification.Service) *VerifyHandler { return &VerifyHandler{svc: svc} }

func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	err := h.svc.Verify(r.Context(), code)
	switch {
	case err == nil:
		writeText(w, http.StatusOK, verifiedText)
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAlreadyUsed),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrBadRequest):
		writeText(w, http.StatusOK, rejectedText)
	default:
		slog.Error("verification failed", "code", code, "err", err)
		writeText(w, http.StatusServiceUnavailable, failedText)
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
