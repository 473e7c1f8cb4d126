package ratelimit

import (
	"fmt"
	"time"

	"github.com/go-like-relay/internal/domain"
)

// DefaultWindow is the minimum spacing between two successful fulfillments
// for a non-privileged requester.
const DefaultWindow = 24 * time.Hour

// Decision is the result of a rate-limit check.
type Decision struct {
	Allowed bool
	Reason  string
	RetryAt time.Time // zero when Allowed
}

// Policy is a pure daily-limit policy over stored profile state.
type Policy struct {
	Window time.Duration
}

func NewPolicy(window time.Duration) Policy {
	if window <= 0 {
		window = DefaultWindow
	}
	return Policy{Window: window}
}

// Allow decides whether p may be fulfilled at now. A nil profile is treated
// as a fresh, non-privileged requester.
func (pol Policy) Allow(p *domain.Profile, now time.Time) Decision {
	if p == nil || p.IsPrivileged || p.LastFulfilledAt == nil {
		return Decision{Allowed: true}
	}
	next := p.LastFulfilledAt.Add(pol.Window)
	if now.Before(next) {
		return Decision{
			Reason:  fmt.Sprintf("last fulfilled %s ago, limit resets at %s", now.Sub(*p.LastFulfilledAt).Truncate(time.Second), next.UTC().Format(time.RFC3339)),
			RetryAt: next,
		}
	}
	return Decision{Allowed: true}
}
