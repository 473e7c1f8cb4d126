package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-like-relay/internal/domain"
)

// ProfileStore is the minimal interface the profile service requires.
type ProfileStore interface {
	Get(ctx context.Context, requesterID string) (*domain.Profile, error)
	SetPrivileged(ctx context.Context, requesterID string, privileged bool, at time.Time) error
}

// OperatorList decides who may grant privileges.
type OperatorList interface {
	IsOperator(requesterID string) bool
}

type Service interface {
	Get(ctx context.Context, requesterID string) (*domain.Profile, error)
	GrantPrivilege(ctx context.Context, operatorID, targetID string) error
	RevokePrivilege(ctx context.Context, operatorID, targetID string) error
}

type service struct {
	repo      ProfileStore
	operators OperatorList
	now       func() time.Time
}

func NewService(repo ProfileStore, operators OperatorList, now func() time.Time) Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, operators: operators, now: now}
}

// Get returns the stored profile, or the default profile when none exists yet.
func (s *service) Get(ctx context.Context, requesterID string) (*domain.Profile, error) {
	p, err := s.repo.Get(ctx, requesterID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultProfile(requesterID), nil
	}
	return p, err
}

func (s *service) GrantPrivilege(ctx context.Context, operatorID, targetID string) error {
	return s.setPrivileged(ctx, operatorID, targetID, true)
}

func (s *service) RevokePrivilege(ctx context.Context, operatorID, targetID string) error {
	return s.setPrivileged(ctx, operatorID, targetID, false)
}

func (s *service) setPrivileged(ctx context.Context, operatorID, targetID string, privileged bool) error {
	if !s.operators.IsOperator(operatorID) {
		return fmt.Errorf("%s is not an operator: %w", operatorID, domain.ErrUnauthorized)
	}
	if targetID == "" {
		return fmt.Errorf("target requester id required: %w", domain.ErrBadRequest)
	}
	if err := s.repo.SetPrivileged(ctx, targetID, privileged, s.now()); err != nil {
		return err
	}
	slog.Info("privilege updated", "operator_id", operatorID, "requester_id", targetID, "privileged", privileged)
	return nil
}
