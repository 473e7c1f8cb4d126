package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-like-relay/internal/domain"
)

// RequestStore is the minimal interface the gateway requires from a request store.
type RequestStore interface {
	Get(ctx context.Context, code string) (*domain.VerificationRequest, error)
	// MarkVerified moves a pending request to verified.
	// Returns domain.ErrConflict when the request is no longer pending.
	MarkVerified(ctx context.Context, code string, at time.Time) error
}

// Service is the verification gateway: it turns a confirmation signal into
// the pending -> verified transition.
type Service interface {
	Verify(ctx context.Context, code string) error
	Status(ctx context.Context, code string) (*domain.VerificationRequest, error)
}

type service struct {
	repo RequestStore
	now  func() time.Time
}

func NewService(repo RequestStore, now func() time.Time) Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, now: now}
}

// Verify marks the request behind code as verified. Unknown codes return
// domain.ErrNotFound, used codes domain.ErrAlreadyUsed and late ones
// domain.ErrExpired; none of them mutate the request.
func (s *service) Verify(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("empty code: %w", domain.ErrBadRequest)
	}
	req, err := s.repo.Get(ctx, code)
	if err != nil {
		return err
	}
	if !domain.CanTransition(req.State, domain.StateVerified) {
		return fmt.Errorf("request %s is %s: %w", code, req.State, domain.ErrAlreadyUsed)
	}
	now := s.now()
	if req.Expired(now) {
		return fmt.Errorf("request %s expired at %s: %w", code, req.ExpiresAt.Format(time.RFC3339), domain.ErrExpired)
	}
	if err := s.repo.MarkVerified(ctx, code, now); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("request %s verified concurrently: %w", code, domain.ErrAlreadyUsed)
		}
		return err
	}
	slog.Info("request verified", "code", code, "requester_id", req.RequesterID)
	return nil
}

// Status returns the stored request behind code, including its outcome once processed.
func (s *service) Status(ctx context.Context, code string) (*domain.VerificationRequest, error) {
	if code == "" {
		return nil, fmt.Errorf("empty code: %w", domain.ErrBadRequest)
	}
	return s.repo.Get(ctx, code)
}
