package intake

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

func (m *mockRequestStore) Create(ctx context.Context, r *domain.VerificationRequest) error {
	return m.Called(ctx, r).Error(0)
}

type mockLookup struct{ mock.Mock }

func (m *mockLookup) Lookup(ctx context.Context, accountID string) (domain.PlayerInfo, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(domain.PlayerInfo), args.Error(1)
}

type mockShortener struct{ mock.Mock }

func (m *mockShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	args := m.Called(ctx, longURL)
	return args.String(0), args.Error(1)
}

// --- helpers ---

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func validSubmit() domain.SubmitRequest {
	return domain.SubmitRequest{RequesterID: "u1", AccountID: "123456789", ChatID: 10, MessageID: 20}
}

func codes(cs ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := cs[i]
		i++
		return c, nil
	}
}

func newSvc(rs *mockRequestStore, lk PlayerLookup, sh LinkShortener, next func() (string, error)) Service {
	return NewService(ServiceDeps{
		Requests:      rs,
		Lookup:        lk,
		Shortener:     sh,
		PublicBaseURL: "https://relay.example.com/",
		Now:           func() time.Time { return now },
		NewCode:       next,
	})
}

// --- tests ---

func TestSubmit_MalformedIsNeverStored(t *testing.T) {
	rs := &mockRequestStore{}
	in := validSubmit()
	in.AccountID = "  "

	_, err := newSvc(rs, nil, nil, codes("c1")).Submit(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	rs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubmit_HappyPath(t *testing.T) {
	rs := &mockRequestStore{}
	lk := &mockLookup{}
	sh := &mockShortener{}
	lk.On("Lookup", mock.Anything, "123456789").Return(domain.PlayerInfo{Nickname: "Ace", Region: "ind"}, nil)
	rs.On("Create", mock.Anything, mock.AnythingOfType("*domain.VerificationRequest")).Return(nil)
	sh.On("Shorten", mock.Anything, "https://relay.example.com/verify/code00000001").Return("https://s.rt/x", nil)

	sub, err := newSvc(rs, lk, sh, codes("code00000001")).Submit(context.Background(), validSubmit())
	require.NoError(t, err)

	req := sub.Request
	assert.Equal(t, "code00000001", req.Code)
	assert.Equal(t, domain.StatePending, req.State)
	assert.Equal(t, "Ace", req.Nickname)
	assert.Equal(t, now, req.CreatedAt)
	assert.Equal(t, now.Add(10*time.Minute), req.ExpiresAt)
	assert.Equal(t, domain.NotifyTarget{ChatID: 10, MessageID: 20}, req.NotifyTarget)
	assert.Equal(t, "https://s.rt/x", sub.Link)
	assert.Contains(t, sub.Reply, "Region: IND")
	assert.Contains(t, sub.Reply, "Verify within 10 minutes")
	rs.AssertExpectations(t)
	sh.AssertExpectations(t)
}

func TestSubmit_LookupFailureFallsBack(t *testing.T) {
	rs := &mockRequestStore{}
	lk := &mockLookup{}
	lk.On("Lookup", mock.Anything, mock.Anything).Return(domain.PlayerInfo{}, fmt.Errorf("%w: 502", domain.ErrLookup))
	rs.On("Create", mock.Anything, mock.Anything).Return(nil)

	sub, err := newSvc(rs, lk, nil, codes("c1")).Submit(context.Background(), validSubmit())
	require.NoError(t, err)
	assert.Equal(t, "Player-6789", sub.Request.Nickname)
	assert.Equal(t, domain.UnknownRegion, sub.Request.Region)
	assert.Equal(t, "https://relay.example.com/verify/c1", sub.Link)
}

func TestSubmit_ShortenerFailureUsesFullLink(t *testing.T) {
	rs := &mockRequestStore{}
	sh := &mockShortener{}
	rs.On("Create", mock.Anything, mock.Anything).Return(nil)
	sh.On("Shorten", mock.Anything, mock.Anything).Return("", errors.New("quota"))

	sub, err := newSvc(rs, nil, sh, codes("c1")).Submit(context.Background(), validSubmit())
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example.com/verify/c1", sub.Link)
}

func TestSubmit_RetriesOnCodeCollision(t *testing.T) {
	rs := &mockRequestStore{}
	rs.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.VerificationRequest) bool { return r.Code == "taken" })).
		Return(fmt.Errorf("exists: %w", domain.ErrConflict)).Once()
	rs.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.VerificationRequest) bool { return r.Code == "fresh" })).
		Return(nil).Once()

	sub, err := newSvc(rs, nil, nil, codes("taken", "fresh")).Submit(context.Background(), validSubmit())
	require.NoError(t, err)
	assert.Equal(t, "fresh", sub.Request.Code)
	rs.AssertExpectations(t)
}

func TestSubmit_StoreFailure(t *testing.T) {
	rs := &mockRequestStore{}
	rs.On("Create", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	_, err := newSvc(rs, nil, nil, codes("c1")).Submit(context.Background(), validSubmit())
	assert.ErrorContains(t, err, "store request: throttled")
}
