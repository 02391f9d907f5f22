package dynamodb

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// CreateChargeOrder puts a new bank-transfer charge order.
func (s *Store) CreateChargeOrder(ctx context.Context, order *models.ChargeOrder) error {
	return s.putNew(ctx, s.ChargeOrdersTableName, order)
}

// GetChargeOrder retrieves a charge order by id.
func (s *Store) GetChargeOrder(ctx context.Context, orderID string) (*models.ChargeOrder, error) {
	var order models.ChargeOrder
	if err := s.getByID(ctx, s.ChargeOrdersTableName, orderID, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListChargeOrders returns the organization's charge orders, newest first.
func (s *Store) ListChargeOrders(ctx context.Context, organizationID string) ([]models.ChargeOrder, error) {
	var orders []models.ChargeOrder
	if err := s.queryAll(ctx, byOrganization(s.ChargeOrdersTableName, organizationID), &orders); err != nil {
		return nil, fmt.Errorf("failed to list charge orders: %w", err)
	}
	newestChargeOrdersFirst(orders)
	return orders, nil
}

// ListChargeOrdersByStatus returns every charge order in status, newest first.
func (s *Store) ListChargeOrdersByStatus(ctx context.Context, status models.ChargeOrderStatus) ([]models.ChargeOrder, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(s.ChargeOrdersTableName),
		IndexName:                aws.String(statusCreatedAtGSI),
		KeyConditionExpression:   aws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": stringAV(string(status)),
		},
		ScanIndexForward: aws.Bool(false),
	}

	var orders []models.ChargeOrder
	if err := s.queryAll(ctx, input, &orders); err != nil {
		return nil, fmt.Errorf("failed to query charge orders by status: %w", err)
	}
	newestChargeOrdersFirst(orders)
	return orders, nil
}

// UpdateChargeOrderStatus moves an unmatched charge order from one status to another.
func (s *Store) UpdateChargeOrderStatus(ctx context.Context, orderID string, from, to models.ChargeOrderStatus, at time.Time) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.ChargeOrdersTableName),
		Key:                      idKey(orderID),
		UpdateExpression:         aws.String("SET #status = :to, updated_at = :now"),
		ConditionExpression:      aws.String("#status = :from AND attribute_not_exists(bank_transaction_id)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":   stringAV(string(to)),
			":from": stringAV(string(from)),
			":now":  timeAV(at),
		},
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return storage.ErrConditionFailed
		}
		return fmt.Errorf("failed to update charge order status: %w", err)
	}
	return nil
}

// SetChargeOrderApproval records an admin's decision while the approval is PENDING.
func (s *Store) SetChargeOrderApproval(ctx context.Context, orderID string, status models.ApprovalStatus, adminUserID, note string, at time.Time) error {
	return s.updateChargeOrder(ctx, orderID, &dynamodb.UpdateItemInput{
		UpdateExpression:    aws.String("SET admin_approval_status = :status, admin_approval_by = :by, admin_approval_note = :note, admin_approval_at = :now, updated_at = :now"),
		ConditionExpression: aws.String("admin_approval_status = :pending"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":  stringAV(string(status)),
			":by":      stringAV(adminUserID),
			":note":    stringAV(note),
			":now":     timeAV(at),
			":pending": stringAV(string(models.ApprovalPending)),
		},
	})
}

// SetChargeOrderVerified marks a MATCHED charge order as verified.
func (s *Store) SetChargeOrderVerified(ctx context.Context, orderID, adminUserID string, at time.Time) error {
	return s.updateChargeOrder(ctx, orderID, &dynamodb.UpdateItemInput{
		UpdateExpression:         aws.String("SET admin_verified = :true, admin_verified_by = :by, admin_verified_at = :now, updated_at = :now"),
		ConditionExpression:      aws.String("#status = :matched AND (attribute_not_exists(admin_verified) OR admin_verified = :false)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":    &types.AttributeValueMemberBOOL{Value: true},
			":false":   &types.AttributeValueMemberBOOL{Value: false},
			":by":      stringAV(adminUserID),
			":now":     timeAV(at),
			":matched": stringAV(string(models.ChargeOrderMatched)),
		},
	})
}

// SetChargeOrderLock flips the lock of a charge order.
func (s *Store) SetChargeOrderLock(ctx context.Context, orderID string, locked bool, reason, adminUserID string, at time.Time) error {
	values := map[string]types.AttributeValue{
		":locked":   &types.AttributeValueMemberBOOL{Value: locked},
		":unlocked": &types.AttributeValueMemberBOOL{Value: !locked},
		":now":      timeAV(at),
	}
	update := "SET is_locked = :locked, updated_at = :now REMOVE locked_reason, locked_by, locked_at"
	if locked {
		update = "SET is_locked = :locked, locked_reason = :reason, locked_by = :by, locked_at = :now, updated_at = :now"
		values[":reason"] = stringAV(reason)
		values[":by"] = stringAV(adminUserID)
	}
	return s.updateChargeOrder(ctx, orderID, &dynamodb.UpdateItemInput{
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(id) AND (attribute_not_exists(is_locked) OR is_locked = :unlocked)"),
		ExpressionAttributeValues: values,
	})
}

// updateChargeOrder runs a conditional update against an existing order.
func (s *Store) updateChargeOrder(ctx context.Context, orderID string, input *dynamodb.UpdateItemInput) error {
	input.TableName = aws.String(s.ChargeOrdersTableName)
	input.Key = idKey(orderID)
	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return storage.ErrConditionFailed
		}
		return fmt.Errorf("failed to update charge order: %w", err)
	}
	return nil
}

func newestChargeOrdersFirst(orders []models.ChargeOrder) {
	slices.SortStableFunc(orders, func(a, b models.ChargeOrder) int { return b.CreatedAt.Compare(a.CreatedAt) })
}

// GetRequest retrieves a request billing record by id.
func (s *Store) GetRequest(ctx context.Context, requestID string) (*models.Request, error) {
	var request models.Request
	if err := s.getByID(ctx, s.RequestsTableName, requestID, &request); err != nil {
		return nil, err
	}
	return &request, nil
}
