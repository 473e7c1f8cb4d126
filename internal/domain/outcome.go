package domain

import (
	"fmt"
	"strings"
)

// OutcomeKind classifies the terminal result of a processed request.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeRateLimited OutcomeKind = "rate_limited"
	OutcomeNoUnitsLeft OutcomeKind = "no_units_left"
	OutcomeAPIError    OutcomeKind = "api_error"
)

// Outcome is the user-visible result attached to a processed request.
type Outcome struct {
	Kind   OutcomeKind `json:"kind" dynamodbav:"kind"`
	Text   string      `json:"text" dynamodbav:"text"`
	Given  int         `json:"given,omitempty" dynamodbav:"given,omitempty"`
	Detail string      `json:"detail,omitempty" dynamodbav:"detail,omitempty"`
}

// GrantResult is what the grant API reports for a single call.
// Given == 0 means the account already hit the external daily cap.
type GrantResult struct {
	Nickname string
	Before   int
	After    int
	Given    int
}

// PlaceholderNickname is used when the account's nickname is unknown.
func PlaceholderNickname(accountID string) string {
	suffix := accountID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Player-" + suffix
}

// UnknownRegion is stored when the region lookup fails.
const UnknownRegion = "?"

func SuccessOutcome(req *VerificationRequest, res GrantResult) Outcome {
	name := res.Nickname
	if name == "" {
		name = PlaceholderNickname(req.AccountID)
	}
	text := fmt.Sprintf(`Like process completed!

Name: %s
UID: %s
Region: %s
Before: %d
After: %d
Given: %d`, name, req.AccountID, strings.ToUpper(req.Region), res.Before, res.After, res.Given)
	return Outcome{Kind: OutcomeSuccess, Text: text, Given: res.Given}
}

func NoUnitsLeftOutcome(req *VerificationRequest, res GrantResult) Outcome {
	name := res.Nickname
	if name == "" {
		name = PlaceholderNickname(req.AccountID)
	}
	return Outcome{
		Kind: OutcomeNoUnitsLeft,
		Text: fmt.Sprintf("UID %s (%s) has already received max likes for today. Try again tomorrow!", req.AccountID, name),
	}
}

func RateLimitedOutcome(reason string) Outcome {
	return Outcome{
		Kind:   OutcomeRateLimited,
		Text:   "You have reached your daily request limit. Please wait for the reset or ask an operator for privileged access.",
		Detail: reason,
	}
}

func APIErrorOutcome(req *VerificationRequest, err error) Outcome {
	detail := err.Error()
	return Outcome{
		Kind:   OutcomeAPIError,
		Text:   fmt.Sprintf("API error: unable to process like\n\nUID: %s\nError: %s", req.AccountID, detail),
		Detail: detail,
	}
}
