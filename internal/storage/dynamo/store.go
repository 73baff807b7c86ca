// Package dynamo is the production turn store, backed by a DynamoDB table
// with sessionId as the partition key and timestamp as the sort key.
package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/kaystudios/assistant-gateway/internal/domain"
	"github.com/kaystudios/assistant-gateway/internal/history"
)

// API is the slice of the DynamoDB client the store uses.
type API interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Store reads and appends conversation turns.
type Store struct {
	api   API
	table string
}

var _ history.Store = (*Store)(nil)

// New creates a store over an existing DynamoDB API.
func New(api API, table string) *Store {
	return &Store{api: api, table: table}
}

// NewFromConfig creates a store from an AWS config.
func NewFromConfig(cfg aws.Config, table string) *Store {
	return New(dynamodb.NewFromConfig(cfg), table)
}

type turnItem struct {
	SessionID string  `dynamodbav:"sessionId"`
	Timestamp int64   `dynamodbav:"timestamp"`
	Role      string  `dynamodbav:"role"`
	Message   string  `dynamodbav:"message"`
	ModelKey  string  `dynamodbav:"model,omitempty"`
	Cost      float64 `dynamodbav:"cost,omitempty"`
}

// Query returns up to limit turns for the session, newest first (reverse
// index scan). Callers re-sort ascending before building context.
func (s *Store) Query(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("sessionId = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, classify(err)
	}

	var items []turnItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, classify(err)
	}

	turns := make([]domain.Turn, len(items))
	for i, item := range items {
		turns[i] = domain.Turn{
			SessionID: item.SessionID,
			Timestamp: item.Timestamp,
			Role:      item.Role,
			Message:   item.Message,
			ModelKey:  item.ModelKey,
			Cost:      item.Cost,
		}
	}
	return turns, nil
}

// Put appends one turn.
func (s *Store) Put(ctx context.Context, turn domain.Turn) error {
	item, err := attributevalue.MarshalMap(turnItem{
		SessionID: turn.SessionID,
		Timestamp: turn.Timestamp,
		Role:      turn.Role,
		Message:   turn.Message,
		ModelKey:  turn.ModelKey,
		Cost:      turn.Cost,
	})
	if err != nil {
		return classify(err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// classify maps raw DynamoDB errors onto the domain error kinds, once, at
// this boundary.
func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return domain.UnknownDependency(domain.DependencyStore, "", err)
	}

	code := apiErr.ErrorCode()
	switch code {
	case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded", "InternalServerError":
		return domain.RetryableDependency(domain.DependencyStore, code, err)
	case "ValidationException", "AccessDeniedException", "ResourceNotFoundException":
		return domain.FatalDependency(domain.DependencyStore, code, err)
	default:
		return domain.UnknownDependency(domain.DependencyStore, code, err)
	}
}
