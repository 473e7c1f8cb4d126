package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-like-relay/internal/application/intake"
	"github.com/go-like-relay/internal/application/verification"
	"github.com/go-like-relay/internal/domain"
)

// RequestHandler handles request intake and status lookups.
type RequestHandler struct {
	intake intake.Service
	status verification.Service
}

func NewRequestHandler(in intake.Service, status verification.Service) *RequestHandler {
	return &RequestHandler{intake: in, status: status}
}

func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := h.intake.Submit(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SubmissionEnvelope{Submission: sub})
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.status.Status(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RequestEnvelope{Request: req})
}
