package http

import (
	"context"
	"time"

	"github.com/go-like-relay/internal/domain"
)

// RequestRepository is the minimal interface the router requires from a request store.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.VerificationRequest) error
	Get(ctx context.Context, code string) (*domain.VerificationRequest, error)
	// MarkVerified performs the conditional pending -> verified transition.
	MarkVerified(ctx context.Context, code string, at time.Time) error
}

// ProfileRepository is the minimal interface the router requires from a profile store.
type ProfileRepository interface {
	Get(ctx context.Context, requesterID string) (*domain.Profile, error)
	SetPrivileged(ctx context.Context, requesterID string, privileged bool, at time.Time) error
}
