package dynamo

// DynamoDB attribute names shared by the repos, table definitions and update expressions.
const (
	fieldCode            = "code"
	fieldState           = "state"
	fieldCreatedAt       = "created_at"
	fieldVerifiedAt      = "verified_at"
	fieldProcessedAt     = "processed_at"
	fieldOutcome         = "outcome"
	fieldRequesterID     = "requester_id"
	fieldIsPrivileged    = "is_privileged"
	fieldLastFulfilledAt = "last_fulfilled_at"
	fieldUpdatedAt       = "updated_at"

	indexState = "state-index"
)
