package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

func transmissionKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"transmission_id": stringAV(id)}
}

// GetWebhookEvent retrieves a webhook event by transmission id.
func (s *Store) GetWebhookEvent(ctx context.Context, transmissionID string) (*models.WebhookEvent, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.WebhookEventsTableName),
		Key:            transmissionKey(transmissionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var event models.WebhookEvent
	if err := attributevalue.UnmarshalMap(result.Item, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal webhook event: %w", err)
	}
	return &event, nil
}

// CreateWebhookEvent inserts the event unless its transmission id is taken.
func (s *Store) CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	av, err := attributevalue.MarshalMap(event)
	if err != nil {
		return false, fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.WebhookEventsTableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(transmission_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to put webhook event: %w", err)
	}
	return true, nil
}

// UpdateWebhookEventStatus records the processing outcome of an event.
func (s *Store) UpdateWebhookEventStatus(ctx context.Context, transmissionID string, status models.WebhookProcessStatus, detail string, at time.Time) error {
	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.WebhookEventsTableName),
		Key:                 transmissionKey(transmissionID),
		UpdateExpression:    aws.String("SET process_status = :status, detail = :detail, processed_at = :now"),
		ConditionExpression: aws.String("attribute_exists(transmission_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": stringAV(string(status)),
			":detail": stringAV(detail),
			":now":    timeAV(at),
		},
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to update webhook event: %w", err)
	}
	return nil
}
