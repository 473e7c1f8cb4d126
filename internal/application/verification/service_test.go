package verification

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-like-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRequestStore struct{ mock.Mock }

func (m *mockRequestStore) Get(ctx context.Context, code string) (*domain.VerificationRequest, error) {
	args := m.Called(ctx, code)
	if r, _ := args.Get(0).(*domain.VerificationRequest); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRequestStore) MarkVerified(ctx context.Context, code string, at time.Time) error {
	return m.Called(ctx, code, at).Error(0)
}

var created = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func pendingRequest() *domain.VerificationRequest {
	return &domain.VerificationRequest{
		Code:        "abc123XYZ789",
		RequesterID: "u1",
		State:       domain.StatePending,
		CreatedAt:   created,
		ExpiresAt:   created.Add(domain.VerificationTTL),
	}
}

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

// --- tests ---

func TestVerify_HappyPath(t *testing.T) {
	repo := &mockRequestStore{}
	now := created.Add(time.Minute)
	repo.On("Get", mock.Anything, "abc123XYZ789").Return(pendingRequest(), nil)
	repo.On("MarkVerified", mock.Anything, "abc123XYZ789", now).Return(nil)

	err := NewService(repo, clockAt(now)).Verify(context.Background(), "abc123XYZ789")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestVerify_UnknownCode(t *testing.T) {
	repo := &mockRequestStore{}
	repo.On("Get", mock.Anything, "nope").Return(nil, fmt.Errorf("request not found: %w", domain.ErrNotFound))

	err := NewService(repo, clockAt(created)).Verify(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerify_EmptyCode(t *testing.T) {
	err := NewService(&mockRequestStore{}, nil).Verify(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerify_AlreadyVerifiedIsRejected(t *testing.T) {
	for _, state := range []domain.RequestState{domain.StateVerified, domain.StateProcessed} {
		repo := &mockRequestStore{}
		req := pendingRequest()
		req.State = state
		repo.On("Get", mock.Anything, req.Code).Return(req, nil)

		err := NewService(repo, clockAt(created.Add(time.Minute))).Verify(context.Background(), req.Code)
		assert.True(t, errors.Is(err, domain.ErrAlreadyUsed), "state %s", state)
		repo.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestVerify_ExpiredIsRejected(t *testing.T) {
	repo := &mockRequestStore{}
	repo.On("Get", mock.Anything, "abc123XYZ789").Return(pendingRequest(), nil)

	err := NewService(repo, clockAt(created.Add(domain.VerificationTTL))).Verify(context.Background(), "abc123XYZ789")
	assert.True(t, errors.Is(err, domain.ErrExpired))
	repo.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_ConcurrentVerificationLoses(t *testing.T) {
	repo := &mockRequestStore{}
	repo.On("Get", mock.Anything, "abc123XYZ789").Return(pendingRequest(), nil)
	repo.On("MarkVerified", mock.Anything, "abc123XYZ789", mock.Anything).
		Return(fmt.Errorf("condition failed: %w", domain.ErrConflict))

	err := NewService(repo, clockAt(created.Add(time.Minute))).Verify(context.Background(), "abc123XYZ789")
	assert.True(t, errors.Is(err, domain.ErrAlreadyUsed))
}

func TestVerify_SecondCallIsRejected(t *testing.T) {
	// First call flips the state; the second sees verified and is rejected.
	req := pendingRequest()
	repo := &mockRequestStore{}
	repo.On("Get", mock.Anything, req.Code).Return(req, nil)
	repo.On("MarkVerified", mock.Anything, req.Code, mock.Anything).
		Run(func(mock.Arguments) { req.State = domain.StateVerified }).
		Return(nil).Once()

	svc := NewService(repo, clockAt(created.Add(time.Minute)))
	require.NoError(t, svc.Verify(context.Background(), req.Code))
	err := svc.Verify(context.Background(), req.Code)
	assert.True(t, errors.Is(err, domain.ErrAlreadyUsed))
	repo.AssertNumberOfCalls(t, "MarkVerified", 1)
}

func TestStatus_ReturnsStoredRequest(t *testing.T) {
	repo := &mockRequestStore{}
	req := pendingRequest()
	req.State = domain.StateProcessed
	req.Outcome = &domain.Outcome{Kind: domain.OutcomeRateLimited}
	repo.On("Get", mock.Anything, "abc123XYZ789").Return(req, nil)

	got, err := NewService(repo, nil).Status(context.Background(), "abc123XYZ789")
	require.NoError(t, err)
	assert.Equal(t, domain.StateProcessed, got.State)
	assert.Equal(t, domain.OutcomeRateLimited, got.Outcome.Kind)
}

func TestStatus_EmptyCode(t *testing.T) {
	_, err := NewService(&mockRequestStore{}, nil).Status(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
