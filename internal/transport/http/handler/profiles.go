package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-like-relay/internal/application/profile"
	"github.com/go-like-relay/internal/transport/http/middleware"
)

// ProfileHandler exposes requester profiles and the operator privilege switch.
type ProfileHandler struct {
	svc profile.Service
}

func NewProfileHandler(svc profile.Service) *ProfileHandler { return &ProfileHandler{svc: svc} }

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Profile: p})
}

func (h *ProfileHandler) GrantPrivilege(w http.ResponseWriter, r *http.Request) {
	h.setPrivilege(w, r, true)
}

func (h *ProfileHandler) RevokePrivilege(w http.ResponseWriter, r *http.Request) {
	h.setPrivilege(w, r, false)
}

func (h *ProfileHandler) setPrivilege(w http.ResponseWriter, r *http.Request, grant bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	var err error
	if grant {
		err = h.svc.GrantPrivilege(r.Context(), claims.Subject, targetID)
	} else {
		err = h.svc.RevokePrivilege(r.Context(), claims.Subject, targetID)
	}
	if err != nil {
		httpError(w, err)
		return
	}
	msg := "privilege revoked"
	if grant {
		msg = "privilege granted"
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}
