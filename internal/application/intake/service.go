package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-like-relay/internal/domain"
	pkgtoken "github.com/go-like-relay/internal/pkg/token"
	"github.com/go-like-relay/internal/pkg/validate"
)

// maxCodeAttempts bounds retries on the (unlikely) event of a code collision.
const maxCodeAttempts = 3

// RequestStore is the minimal interface intake requires from a request store.
type RequestStore interface {
	// Create stores a new request. Returns domain.ErrConflict if the code is taken.
	Create(ctx context.Context, r *domain.VerificationRequest) error
}

// PlayerLookup resolves an account's nickname and region.
type PlayerLookup interface {
	Lookup(ctx context.Context, accountID string) (domain.PlayerInfo, error)
}

// LinkShortener shortens the verification link.
type LinkShortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

type ServiceDeps struct {
	Requests      RequestStore
	Lookup        PlayerLookup  // optional
	Shortener     LinkShortener // optional
	PublicBaseURL string
	TTL           time.Duration
	Now           func() time.Time
	NewCode       func() (string, error)
}

// Submission is the result of a successful intake.
type Submission struct {
	Request *domain.VerificationRequest `json:"request"`
	Link    string                      `json:"link"`
	Reply   string                      `json:"reply"`
}

type Service interface {
	Submit(ctx context.Context, req domain.SubmitRequest) (*Submission, error)
}

type service struct {
	requests  RequestStore
	lookup    PlayerLookup
	shortener LinkShortener
	baseURL   string
	ttl       time.Duration
	now       func() time.Time
	newCode   func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		requests:  deps.Requests,
		lookup:    deps.Lookup,
		shortener: deps.Shortener,
		baseURL:   strings.TrimRight(deps.PublicBaseURL, "/"),
		ttl:       deps.TTL,
		now:       deps.Now,
		newCode:   deps.NewCode,
	}
	if s.ttl <= 0 {
		s.ttl = domain.VerificationTTL
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newCode == nil {
		s.newCode = pkgtoken.NewVerificationCode
	}
	return s
}

// Submit validates the request, enriches it, stores it as pending and returns
// the verification link. Invalid input is rejected before anything is stored.
func (s *service) Submit(ctx context.Context, in domain.SubmitRequest) (*Submission, error) {
	in.AccountID = strings.TrimSpace(in.AccountID)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	info := s.enrich(ctx, in.AccountID)
	now := s.now()
	req := &domain.VerificationRequest{
		RequesterID:  in.RequesterID,
		AccountID:    in.AccountID,
		Nickname:     info.Nickname,
		Region:       info.Region,
		State:        domain.StatePending,
		NotifyTarget: domain.NotifyTarget{ChatID: in.ChatID, MessageID: in.MessageID},
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		if req.Code, err = s.newCode(); err != nil {
			return nil, err
		}
		err = s.requests.Create(ctx, req)
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			break
		}
		slog.Warn("verification code collision, retrying", "attempt", attempt+1)
	}
	if err != nil {
		return nil, fmt.Errorf("store request: %w", err)
	}

	link := s.link(ctx, req.Code)
	return &Submission{Request: req, Link: link, Reply: replyText(req, s.ttl)}, nil
}

// enrich never fails: a lookup error degrades to placeholder values.
func (s *service) enrich(ctx context.Context, accountID string) domain.PlayerInfo {
	fallback := domain.PlayerInfo{Nickname: domain.PlaceholderNickname(accountID), Region: domain.UnknownRegion}
	if s.lookup == nil {
		return fallback
	}
	info, err := s.lookup.Lookup(ctx, accountID)
	if err != nil {
		slog.Warn("player lookup failed, using placeholder", "account_id", accountID, "err", err)
		return fallback
	}
	if info.Nickname == "" {
		info.Nickname = fallback.Nickname
	}
	if info.Region == "" {
		info.Region = fallback.Region
	}
	return info
}

func (s *service) link(ctx context.Context, code string) string {
	long := s.baseURL + "/verify/" + code
	if s.shortener == nil {
		return long
	}
	short, err := s.shortener.Shorten(ctx, long)
	if err != nil || short == "" {
		slog.Warn("link shortener failed, using full link", "code", code, "err", err)
		return long
	}
	return short
}

func replyText(req *domain.VerificationRequest, ttl time.Duration) string {
	return fmt.Sprintf(`Like request received!

Name: %s
UID: %s
Region: %s

Verify within %d minutes`, req.Nickname, req.AccountID, strings.ToUpper(req.Region), int(ttl.Minutes()))
}
