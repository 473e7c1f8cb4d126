package domain

import "time"

// Profile holds per-requester rate-limit state. PK: requester_id.
type Profile struct {
	RequesterID     string     `json:"requester_id" dynamodbav:"requester_id"`
	IsPrivileged    bool       `json:"is_privileged" dynamodbav:"is_privileged"`
	LastFulfilledAt *time.Time `json:"last_fulfilled_at,omitempty" dynamodbav:"last_fulfilled_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// DefaultProfile is the profile of a requester that has never been stored.
func DefaultProfile(requesterID string) *Profile {
	return &Profile{RequesterID: requesterID}
}
