package dynamodb

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": stringAV(id)}
}

// CreateCreditOrder puts a new credit order; the id must be unused.
func (s *Store) CreateCreditOrder(ctx context.Context, order *models.CreditOrder) error {
	return s.putNew(ctx, s.CreditOrdersTableName, order)
}

// GetCreditOrder retrieves a credit order by id.
func (s *Store) GetCreditOrder(ctx context.Context, orderID string) (*models.CreditOrder, error) {
	var order models.CreditOrder
	if err := s.getByID(ctx, s.CreditOrdersTableName, orderID, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListCreditOrders returns the organization's credit orders, newest first.
func (s *Store) ListCreditOrders(ctx context.Context, organizationID string) ([]models.CreditOrder, error) {
	var orders []models.CreditOrder
	if err := s.queryAll(ctx, byOrganization(s.CreditOrdersTableName, organizationID), &orders); err != nil {
		return nil, fmt.Errorf("failed to list credit orders: %w", err)
	}
	slices.SortStableFunc(orders, func(a, b models.CreditOrder) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return orders, nil
}

// CancelCreditOrder flips an order to CANCELED if it is still in one of from.
func (s *Store) CancelCreditOrder(ctx context.Context, orderID string, from []models.CreditOrderStatus, at time.Time) error {
	values := map[string]types.AttributeValue{
		":canceled": stringAV(string(models.CreditOrderCanceled)),
		":now":      timeAV(at),
	}
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.CreditOrdersTableName),
		Key:                       idKey(orderID),
		UpdateExpression:          aws.String("SET #status = :canceled, canceled_at = :now, updated_at = :now"),
		ConditionExpression:       aws.String(statusIn(from, values)),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return storage.ErrConditionFailed
		}
		return fmt.Errorf("failed to cancel credit order: %w", err)
	}
	return nil
}

// putNew puts item guarded by attribute_not_exists(id).
func (s *Store) putNew(ctx context.Context, table string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to put item into %s: %w", table, err)
	}
	return nil
}

// getByID reads one item keyed by id into out.
func (s *Store) getByID(ctx context.Context, table, id string, out any) error {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to get item from %s: %w", table, err)
	}
	if result.Item == nil {
		return storage.ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item from %s: %w", table, err)
	}
	return nil
}

func byOrganization(table, organizationID string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(table),
		IndexName:              aws.String(organizationCreatedAtGSI),
		KeyConditionExpression: aws.String("organization_id = :org"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":org": stringAV(organizationID),
		},
		ScanIndexForward: aws.Bool(false),
	}
}

// queryAll drains every page of input into out, a pointer to a slice.
func (s *Store) queryAll(ctx context.Context, input *dynamodb.QueryInput, out any) error {
	items, err := s.queryPages(ctx, input, 0)
	if err != nil {
		return err
	}
	return attributevalue.UnmarshalListOfMaps(items, out)
}
