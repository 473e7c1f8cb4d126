package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-like-relay/internal/domain"
)

// ProfileRepo provides typed DynamoDB operations for the profiles table.
// PK: requester_id. Rows are created by the first update (UpdateItem upserts).
type ProfileRepo struct {
	client    API
	tableName string
}

func NewProfileRepo(client API, tableName string) *ProfileRepo {
	return &ProfileRepo{client: client, tableName: tableName}
}

func (r *ProfileRepo) Get(ctx context.Context, requesterID string) (*domain.Profile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldRequesterID, requesterID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}
	var p domain.Profile
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) SetLastFulfilled(ctx context.Context, requesterID string, at time.Time) error {
	return r.upsert(ctx, requesterID, map[string]interface{}{
		fieldLastFulfilledAt: at,
		fieldUpdatedAt:       at,
	})
}

func (r *ProfileRepo) SetPrivileged(ctx context.Context, requesterID string, privileged bool, at time.Time) error {
	return r.upsert(ctx, requesterID, map[string]interface{}{
		fieldIsPrivileged: privileged,
		fieldUpdatedAt:    at,
	})
}

func (r *ProfileRepo) upsert(ctx context.Context, requesterID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldRequesterID, requesterID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
