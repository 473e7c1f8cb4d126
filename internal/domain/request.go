package domain

import "time"

// RequestState is the lifecycle position of a VerificationRequest.
// Transitions only move forward: pending -> verified -> processed.
type RequestState string

const (
	StatePending   RequestState = "pending"
	StateVerified  RequestState = "verified"
	StateProcessed RequestState = "processed"
)

// VerificationTTL is how long a pending request accepts its verification link.
const VerificationTTL = 10 * time.Minute

// CanTransition reports whether from -> to is a legal edge of the state machine.
func CanTransition(from, to RequestState) bool {
	switch from {
	case StatePending:
		return to == StateVerified
	case StateVerified:
		return to == StateProcessed
	default:
		return false
	}
}

// NotifyTarget identifies the chat message the outcome is sent in reply to.
type NotifyTarget struct {
	ChatID    int64 `json:"chat_id" dynamodbav:"chat_id"`
	MessageID int64 `json:"message_id" dynamodbav:"message_id"`
}

// VerificationRequest is a request to grant units to a game account, gated on a one-time verification link.
// PK: code. GSI state-index on state.
type VerificationRequest struct {
	Code         string       `json:"code" dynamodbav:"code"`
	RequesterID  string       `json:"requester_id" dynamodbav:"requester_id"`
	AccountID    string       `json:"account_id" dynamodbav:"account_id"`
	Nickname     string       `json:"nickname" dynamodbav:"nickname"`
	Region       string       `json:"region" dynamodbav:"region"`
	State        RequestState `json:"state" dynamodbav:"state"`
	NotifyTarget NotifyTarget `json:"notify_target" dynamodbav:"notify_target"`
	Outcome      *Outcome     `json:"outcome,omitempty" dynamodbav:"outcome,omitempty"`
	CreatedAt    time.Time    `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at" dynamodbav:"expires_at"`
	VerifiedAt   *time.Time   `json:"verified_at,omitempty" dynamodbav:"verified_at,omitempty"`
	ProcessedAt  *time.Time   `json:"processed_at,omitempty" dynamodbav:"processed_at,omitempty"`
}

// Expired reports whether the verification window has closed at now.
func (r *VerificationRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// SubmitRequest is the intake payload sent by the chat front-end.
type SubmitRequest struct {
	RequesterID string `json:"requester_id" validate:"required"`
	AccountID   string `json:"account_id" validate:"required,numeric,min=5,max=20"`
	ChatID      int64  `json:"chat_id" validate:"required"`
	MessageID   int64  `json:"message_id" validate:"required"`
}

// PlayerInfo is the best-effort enrichment shown back to the requester at intake.
type PlayerInfo struct {
	Nickname string
	Region   string
}
