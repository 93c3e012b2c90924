package matches

import (
	"context"
	"errors"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a very small in-memory mock for PutItem/GetItem/UpdateItem used in unit tests.
// It understands only the condition expressions the Store actually issues.
type simpleMock struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue

	putCalls    int
	getCalls    int
	updateCalls int

	// forced errors for dependency-failure tests
	getErr    error
	putErr    error
	updateErr error
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func itemStatus(item map[string]types.AttributeValue) string {
	if s, ok := item["Status"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return nil, m.putErr
	}
	keyAttr := params.Item["MatchComboId"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	// evaluate: attribute_not_exists(MatchComboId) OR #s = :completed OR #s = :failed
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, "attribute_not_exists(MatchComboId)") {
		if existing, ok := m.table[k]; ok {
			st := itemStatus(existing)
			if st != StatusCompleted && st != StatusFailed {
				// simulate conditional failure
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	keyAttr := params.Key["MatchComboId"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	keyAttr := params.Key["MatchComboId"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	// evaluate: attribute_exists(MatchComboId) AND #s = :expected
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, "attribute_exists(MatchComboId)") {
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
		if exp, present := params.ExpressionAttributeValues[":expected"]; present {
			if itemStatus(item) != exp.(*types.AttributeValueMemberS).Value {
				return nil, &types.ConditionalCheckFailedException{}
			}
		}
	}
	if !ok {
		return nil, errors.New("item not found")
	}
	// apply the store's update expression: SET #s = :new [, ErrorMessage = :err] [REMOVE ErrorMessage]
	if v, ok := params.ExpressionAttributeValues[":new"]; ok {
		item["Status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":err"]; ok {
		item["ErrorMessage"] = v
	} else if params.UpdateExpression != nil && strings.Contains(*params.UpdateExpression, "REMOVE ErrorMessage") {
		delete(item, "ErrorMessage")
	}
	m.table[k] = item
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}
