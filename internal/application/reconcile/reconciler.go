package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-like-relay/internal/application/ratelimit"
	"github.com/go-like-relay/internal/domain"
	"github.com/go-like-relay/internal/pkg/keylock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultRequestTimeout = 30 * time.Second
	// finishTimeout bounds the processed transition and the notification. They run on a
	// context detached from the request budget so a slow grant call cannot starve them.
	finishTimeout = 10 * time.Second
)

// RequestStore is the minimal interface the reconciler requires from a request store.
type RequestStore interface {
	// ListVerified may lag behind writes (it reads a secondary index).
	ListVerified(ctx context.Context) ([]domain.VerificationRequest, error)
	// Get is a consistent read of a single request.
	Get(ctx context.Context, code string) (*domain.VerificationRequest, error)
	// MarkProcessed moves a verified request to processed and attaches the outcome.
	// Returns domain.ErrConflict when the request is no longer verified.
	MarkProcessed(ctx context.Context, code string, outcome domain.Outcome, at time.Time) error
}

// ProfileStore is the minimal interface the reconciler requires from a profile store.
type ProfileStore interface {
	// Get returns domain.ErrNotFound when the requester has no profile yet.
	Get(ctx context.Context, requesterID string) (*domain.Profile, error)
	SetLastFulfilled(ctx context.Context, requesterID string, at time.Time) error
}

// Fulfiller calls the external grant API.
type Fulfiller interface {
	Grant(ctx context.Context, accountID string) (domain.GrantResult, error)
}

// Notifier delivers outcome text to the original requester.
type Notifier interface {
	Notify(ctx context.Context, target domain.NotifyTarget, text string) error
}

// Archive stores a copy of each processed request. Optional.
type Archive interface {
	Store(ctx context.Context, req *domain.VerificationRequest) error
}

// Deps holds the collaborators and tuning knobs of a Reconciler.
type Deps struct {
	Requests  RequestStore
	Profiles  ProfileStore
	Fulfiller Fulfiller
	Notifier  Notifier
	Archive   Archive // nil disables archiving

	Policy ratelimit.Policy
	// Pacer spaces out grant calls. nil means unpaced.
	Pacer *rate.Limiter
	Now   func() time.Time

	PollInterval   time.Duration
	RequestTimeout time.Duration
	Concurrency    int
}

// Stats summarises one reconciliation pass.
type Stats struct {
	Scanned  int
	Outcomes map[domain.OutcomeKind]int
	Skipped  int // another writer processed the request first
	Failed   int // the request could not be read or its processed transition could not be stored
	Deferred int // left verified because the pass was cancelled before the grant call
}

// Reconciler drives verified requests to their terminal processed state.
type Reconciler struct {
	requests  RequestStore
	profiles  ProfileStore
	fulfiller Fulfiller
	notifier  Notifier
	archive   Archive
	policy    ratelimit.Policy
	pacer     *rate.Limiter
	now       func() time.Time

	interval       time.Duration
	requestTimeout time.Duration
	concurrency    int
	locks          *keylock.Map
}

func New(d Deps) *Reconciler {
	r := &Reconciler{
		requests:       d.Requests,
		profiles:       d.Profiles,
		fulfiller:      d.Fulfiller,
		notifier:       d.Notifier,
		archive:        d.Archive,
		policy:         d.Policy,
		pacer:          d.Pacer,
		now:            d.Now,
		interval:       d.PollInterval,
		requestTimeout: d.RequestTimeout,
		concurrency:    d.Concurrency,
		locks:          keylock.New(),
	}
	if r.policy.Window <= 0 {
		r.policy = ratelimit.NewPolicy(ratelimit.DefaultWindow)
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	if r.interval <= 0 {
		r.interval = defaultPollInterval
	}
	if r.requestTimeout <= 0 {
		r.requestTimeout = defaultRequestTimeout
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	return r
}

// Run executes a pass every poll interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	slog.Info("reconciler started", "interval", r.interval, "concurrency", r.concurrency)
	for {
		stats, err := r.RunOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			slog.Error("reconcile pass failed", "err", err)
		case stats.Scanned > 0:
			slog.Info("reconcile pass done",
				"scanned", stats.Scanned, "outcomes", stats.Outcomes,
				"skipped", stats.Skipped, "failed", stats.Failed, "deferred", stats.Deferred)
		}

		select {
		case <-ctx.Done():
			slog.Info("reconciler stopped")
			return
		case <-time.After(r.interval):
		}
	}
}

// RunOnce handles every currently verified request and returns when all are done.
// The only error is a failure to list requests; per-request failures end up in Stats.
func (r *Reconciler) RunOnce(ctx context.Context) (Stats, error) {
	stats := Stats{Outcomes: make(map[domain.OutcomeKind]int)}
	pending, err := r.requests.ListVerified(ctx)
	if err != nil {
		return stats, fmt.Errorf("list verified requests: %w", err)
	}
	stats.Scanned = len(pending)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range pending {
		if ctx.Err() != nil {
			mu.Lock()
			stats.Deferred += len(pending) - i
			mu.Unlock()
			break
		}
		req := pending[i]
		g.Go(func() error {
			kind, res := r.safeHandle(ctx, &req)
			mu.Lock()
			defer mu.Unlock()
			switch res {
			case resultDone:
				stats.Outcomes[kind]++
			case resultSkipped:
				stats.Skipped++
			case resultFailed:
				stats.Failed++
			case resultDeferred:
				stats.Deferred++
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats, nil
}

type handleResult int

const (
	resultDone handleResult = iota
	resultSkipped
	resultFailed
	resultDeferred
)

func (r *Reconciler) safeHandle(ctx context.Context, req *domain.VerificationRequest) (kind domain.OutcomeKind, res handleResult) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while finishing request", "code", req.Code, "panic", p)
			kind, res = "", resultFailed
		}
	}()
	return r.handle(ctx, req)
}

// handle runs one request end to end. Requests of the same requester are
// serialized so two verified requests cannot both pass the daily limit.
// A request whose grant call never started when ctx was cancelled stays verified.
func (r *Reconciler) handle(ctx context.Context, listed *domain.VerificationRequest) (domain.OutcomeKind, handleResult) {
	unlock := r.locks.Lock(listed.RequesterID)
	defer unlock()

	if ctx.Err() != nil {
		return "", resultDeferred
	}
	req, res, ok := r.reload(ctx, listed)
	if !ok {
		return "", res
	}

	decideCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	outcome, granted := r.decide(decideCtx, req)
	cancel()

	if !granted && ctx.Err() != nil {
		slog.Info("pass cancelled before grant, request left verified", "code", req.Code)
		return "", resultDeferred
	}
	return outcome.Kind, r.finish(ctx, req, outcome)
}

// reload re-reads the request consistently, since the listing may still show
// requests a previous pass already processed.
func (r *Reconciler) reload(ctx context.Context, listed *domain.VerificationRequest) (*domain.VerificationRequest, handleResult, bool) {
	req, err := r.requests.Get(ctx, listed.Code)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, resultDeferred, false
	case errors.Is(err, domain.ErrNotFound):
		return nil, resultSkipped, false
	case err != nil:
		slog.Error("failed to reload request", "code", listed.Code, "err", err)
		return nil, resultFailed, false
	case !domain.CanTransition(req.State, domain.StateProcessed):
		slog.Debug("request no longer verified, skipping", "code", req.Code, "state", req.State)
		return nil, resultSkipped, false
	}
	return req, resultDone, true
}

// decide evaluates the rate limit and calls the grant API. It never fails:
// every error becomes an api_error outcome. granted reports whether the grant
// call was started.
func (r *Reconciler) decide(ctx context.Context, req *domain.VerificationRequest) (outcome domain.Outcome, granted bool) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic while handling request", "code", req.Code, "panic", p)
			outcome = domain.APIErrorOutcome(req, fmt.Errorf("internal error: %v", p))
		}
	}()

	profile, err := r.profiles.Get(ctx, req.RequesterID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		profile = domain.DefaultProfile(req.RequesterID)
	case err != nil:
		slog.Error("failed to load profile", "code", req.Code, "requester_id", req.RequesterID, "err", err)
		return domain.APIErrorOutcome(req, fmt.Errorf("load profile: %w", err)), false
	}

	if d := r.policy.Allow(profile, r.now()); !d.Allowed {
		return domain.RateLimitedOutcome(d.Reason), false
	}

	if r.pacer != nil {
		if err := r.pacer.Wait(ctx); err != nil {
			return domain.APIErrorOutcome(req, fmt.Errorf("%w: waiting for grant slot: %v", domain.ErrGrantAPI, err)), false
		}
	}
	granted = true
	res, err := r.fulfiller.Grant(ctx, req.AccountID)
	if err != nil {
		slog.Warn("grant call failed", "code", req.Code, "account_id", req.AccountID, "err", err)
		return domain.APIErrorOutcome(req, err), granted
	}
	if res.Given == 0 {
		return domain.NoUnitsLeftOutcome(req, res), granted
	}

	if err := r.profiles.SetLastFulfilled(ctx, req.RequesterID, r.now()); err != nil {
		// The grant already happened, so the user still gets the success text.
		slog.Error("failed to record fulfillment", "code", req.Code, "requester_id", req.RequesterID, "err", err)
	}
	return domain.SuccessOutcome(req, res), granted
}

// finish stores the processed transition, then notifies. A request that lost
// the transition race is not notified again.
func (r *Reconciler) finish(ctx context.Context, req *domain.VerificationRequest, outcome domain.Outcome) handleResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	at := r.now()
	if err := r.requests.MarkProcessed(ctx, req.Code, outcome, at); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			slog.Warn("request already processed, skipping notification", "code", req.Code)
			return resultSkipped
		}
		slog.Error("failed to mark request processed", "code", req.Code, "outcome", outcome.Kind, "err", err)
		return resultFailed
	}

	if err := r.notifier.Notify(ctx, req.NotifyTarget, outcome.Text); err != nil {
		slog.Warn("failed to deliver outcome", "code", req.Code, "chat_id", req.NotifyTarget.ChatID, "err", err)
	}

	if r.archive != nil {
		req.State = domain.StateProcessed
		req.Outcome = &outcome
		req.ProcessedAt = &at
		if err := r.archive.Store(ctx, req); err != nil {
			slog.Warn("failed to archive receipt", "code", req.Code, "err", err)
		}
	}
	return resultDone
}
