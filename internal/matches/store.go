package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/tutormatch/match-pipeline/internal/aws"
)

// ErrDuplicateInFlight indicates a non-terminal entry already holds the key.
var ErrDuplicateInFlight = errors.New("match request already in flight")

// ErrStatusMismatch indicates the entry is missing or its status is not the
// expected one. Callers re-read to tell the two apart.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store encapsulates match request lifecycle operations against DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration // entry TTL window (24h in production)
	nowFunc   func() time.Time
}

// NewStore returns a configured Store.
// tableName: DynamoDB table name for match status entries.
// ttlWindow: TTL window applied to new entries (e.g., 24*time.Hour)
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// NewPending builds a PENDING entry for key with creation and expiry stamped
// from the store clock.
func (s *Store) NewPending(key, tableName string, body map[string]interface{}) MatchRequest {
	now := s.nowFunc().UTC()
	return MatchRequest{
		MatchComboID: key,
		Timestamp:    now.Format(time.RFC3339),
		Status:       StatusPending,
		TableName:    tableName,
		RequestBody:  body,
		Expiry:       now.Add(s.ttlWindow).Unix(),
	}
}

// Get retrieves a match request entry by key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*MatchRequest, error) {
	input := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"MatchComboId": &types.AttributeValueMemberS{Value: key},
		},
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec MatchRequest
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// PutPending writes entry unless a non-terminal entry already holds the key.
// The write succeeds when the key is absent or the existing entry is COMPLETED
// or FAILED, so concurrent admissions for the same key are serialized by
// DynamoDB itself rather than by a read-then-write in handler code.
// Returns ErrDuplicateInFlight when the condition fails.
func (s *Store) PutPending(ctx context.Context, entry MatchRequest) error {
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	input := &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(MatchComboId) OR #s = :completed OR #s = :failed"),
		ExpressionAttributeNames: map[string]string{
			"#s": "Status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": &types.AttributeValueMemberS{Value: StatusCompleted},
			":failed":    &types.AttributeValueMemberS{Value: StatusFailed},
		},
	}

	_, err = s.client.PutItem(ctx, input)
	if err != nil {
		// detect conditional check failure
		var sc smithy.APIError
		if errors.As(err, &sc) && sc.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrDuplicateInFlight
		}
		return fmt.Errorf("put item: %w", err)
	}

	return nil
}

// Transition conditionally moves key from expectedStatus to newStatus.
// errMsg is stored when newStatus is FAILED and removed otherwise, so
// ErrorMessage is present exactly on FAILED entries.
// Returns ErrStatusMismatch when no entry exists or its status differs from
// expectedStatus; terminal entries can therefore never re-enter the pipeline.
func (s *Store) Transition(ctx context.Context, key, expectedStatus, newStatus, errMsg string) error {
	exprValues := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":expected": &types.AttributeValueMemberS{Value: expectedStatus},
	}
	updateExpr := "SET #s = :new REMOVE ErrorMessage"
	if newStatus == StatusFailed {
		updateExpr = "SET #s = :new, ErrorMessage = :err"
		exprValues[":err"] = &types.AttributeValueMemberS{Value: errMsg}
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"MatchComboId": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "Status"},
		ExpressionAttributeValues: exprValues,
		ConditionExpression:       awsString("attribute_exists(MatchComboId) AND #s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		// detect conditional check failing
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
