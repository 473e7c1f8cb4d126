package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-like-relay/internal/domain"
)

// RequestRepo provides typed DynamoDB operations for the verification requests table.
// PK: code. GSI state-index (state, created_at).
type RequestRepo struct {
	client    API
	tableName string
}

func NewRequestRepo(client API, tableName string) *RequestRepo {
	return &RequestRepo{client: client, tableName: tableName}
}

// Create stores a new request, refusing to overwrite an existing code.
func (r *RequestRepo) Create(ctx context.Context, req *domain.VerificationRequest) error {
	item, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#c)"),
		ExpressionAttributeNames: map[string]string{"#c": fieldCode},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("request code %s already exists: %w", req.Code, domain.ErrConflict)
	}
	return err
}

func (r *RequestRepo) Get(ctx context.Context, code string) (*domain.VerificationRequest, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldCode, code),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("request not found: %w", domain.ErrNotFound)
	}
	var req domain.VerificationRequest
	if err := attributevalue.UnmarshalMap(out.Item, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListVerified queries the state-index GSI for every verified request, oldest first.
func (r *RequestRepo) ListVerified(ctx context.Context) ([]domain.VerificationRequest, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String(indexState),
		KeyConditionExpression:   aws.String("#s = :s"),
		ExpressionAttributeNames: map[string]string{"#s": fieldState},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(domain.StateVerified)},
		},
		ScanIndexForward: aws.Bool(true),
	})
	var reqs []domain.VerificationRequest
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.VerificationRequest
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		reqs = append(reqs, page...)
	}
	return reqs, nil
}

// MarkVerified performs the pending -> verified transition atomically.
func (r *RequestRepo) MarkVerified(ctx context.Context, code string, at time.Time) error {
	return r.transition(ctx, code, domain.StatePending, map[string]interface{}{
		fieldState:      domain.StateVerified,
		fieldVerifiedAt: at,
	})
}

// MarkProcessed performs the verified -> processed transition atomically and attaches the outcome.
func (r *RequestRepo) MarkProcessed(ctx context.Context, code string, outcome domain.Outcome, at time.Time) error {
	return r.transition(ctx, code, domain.StateVerified, map[string]interface{}{
		fieldState:       domain.StateProcessed,
		fieldOutcome:     outcome,
		fieldProcessedAt: at,
	})
}

// transition applies updates only while the stored state is still from.
// A failed condition means someone else moved the request first.
func (r *RequestRepo) transition(ctx context.Context, code string, from domain.RequestState, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.whenEquals(fieldState, string(from))
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldCode, code),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String(ue.Condition),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("request %s is no longer %s: %w", code, from, domain.ErrConflict)
	}
	return err
}
