package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// CommitSpend writes a spend-on-create batch. The first item guards the
// organization's ledger version so the balance the caller checked is still
// the balance being spent.
func (s *Store) CommitSpend(ctx context.Context, c storage.SpendCommit) error {
	condition := "version = :expected"
	values := map[string]types.AttributeValue{
		":now":      timeAV(c.At),
		":inc":      numberAV(1),
		":expected": numberAV(c.ExpectedVersion),
	}
	if c.ExpectedVersion == 0 {
		condition = "attribute_not_exists(version)"
		delete(values, ":expected")
	}

	items := []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName:                 aws.String(s.AccountsTableName),
				Key:                       map[string]types.AttributeValue{"organization_id": stringAV(c.OrganizationID)},
				UpdateExpression:          aws.String("SET updated_at = :now ADD version :inc"),
				ConditionExpression:       aws.String(condition),
				ExpressionAttributeValues: values,
			},
		},
	}

	for _, r := range c.Requests {
		update, err := upsertIfAbsent(s.RequestsTableName, idKey(r.ID), r)
		if err != nil {
			return fmt.Errorf("failed to build request upsert: %w", err)
		}
		items = append(items, types.TransactWriteItem{Update: update})
	}

	for _, id := range c.CanceledRequestIDs {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                aws.String(s.RequestsTableName),
				Key:                      idKey(id),
				UpdateExpression:         aws.String("SET #status = :canceled, canceled_at = if_not_exists(canceled_at, :now)"),
				ConditionExpression:      aws.String("attribute_exists(id)"),
				ExpressionAttributeNames: map[string]string{"#status": "status"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":canceled": stringAV(string(models.RequestCanceled)),
					":now":      timeAV(c.At),
				},
			},
		})
	}

	for _, e := range c.Entries {
		item, err := s.ledgerUpsert(e)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	_, err := s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if failedConditionIndex(err) >= 0 {
			return storage.ErrConditionFailed
		}
		return fmt.Errorf("failed to execute spend transaction: %w", err)
	}
	return nil
}

// CommitCancelRefund marks the request canceled and upserts its refund entry.
func (s *Store) CommitCancelRefund(ctx context.Context, c storage.CancelRefundCommit) error {
	items := []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName:                aws.String(s.RequestsTableName),
				Key:                      idKey(c.RequestID),
				UpdateExpression:         aws.String("SET #status = :canceled, canceled_at = if_not_exists(canceled_at, :now)"),
				ConditionExpression:      aws.String("attribute_exists(id)"),
				ExpressionAttributeNames: map[string]string{"#status": "status"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":canceled": stringAV(string(models.RequestCanceled)),
					":now":      timeAV(c.At),
				},
			},
		},
	}
	if c.Entry != nil {
		item, err := s.ledgerUpsert(*c.Entry)
		if err != nil {
			return err
		}
		items = append(items, item, s.accountBump(c.OrganizationID, c.At))
	}

	_, err := s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		if failedConditionIndex(err) >= 0 {
			return storage.ErrConditionFailed
		}
		return fmt.Errorf("failed to execute cancel refund transaction: %w", err)
	}
	return nil
}

// CommitGatewayPayment applies a gateway result to a credit order and, for a
// completed payment, upserts the CHARGE entry in the same transaction.
func (s *Store) CommitGatewayPayment(ctx context.Context, c storage.GatewayPaymentCommit) (bool, error) {
	values := map[string]types.AttributeValue{
		":status": stringAV(string(c.Status)),
		":now":    timeAV(c.At),
	}
	expr := "SET #status = :status, updated_at = :now"
	if c.PaymentKey != "" {
		expr += ", payment_key = :payment_key"
		values[":payment_key"] = stringAV(c.PaymentKey)
	}
	if c.Secret != "" {
		expr += ", secret = :secret"
		values[":secret"] = stringAV(c.Secret)
	}
	if c.VirtualAccount != nil {
		va, err := attributevalue.Marshal(c.VirtualAccount)
		if err != nil {
			return false, fmt.Errorf("failed to marshal virtual account: %w", err)
		}
		expr += ", virtual_account = :virtual_account"
		values[":virtual_account"] = va
	}
	if c.ApprovedAt != nil {
		expr += ", approved_at = :approved_at"
		values[":approved_at"] = timeAV(*c.ApprovedAt)
	}
	if c.DepositedAt != nil {
		expr += ", deposited_at = :deposited_at"
		values[":deposited_at"] = timeAV(*c.DepositedAt)
	}
	if c.Status == models.CreditOrderCanceled {
		expr += ", canceled_at = :now"
	}

	orderUpdate := &types.Update{
		TableName:                 aws.String(s.CreditOrdersTableName),
		Key:                       idKey(c.OrderID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String(statusIn(c.ExpectedStatuses, values)),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: values,
	}

	if c.Entry == nil {
		_, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 orderUpdate.TableName,
			Key:                       orderUpdate.Key,
			UpdateExpression:          orderUpdate.UpdateExpression,
			ConditionExpression:       orderUpdate.ConditionExpression,
			ExpressionAttributeNames:  orderUpdate.ExpressionAttributeNames,
			ExpressionAttributeValues: orderUpdate.ExpressionAttributeValues,
		})
		if err != nil {
			if isConditionalCheckFailed(err) {
				return false, nil
			}
			return false, fmt.Errorf("failed to update credit order: %w", err)
		}
		return true, nil
	}

	ledgerItem, err := s.ledgerUpsert(*c.Entry)
	if err != nil {
		return false, err
	}
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: orderUpdate},
			ledgerItem,
			s.accountBump(c.Entry.OrganizationID, c.At),
		},
	}
	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if failedConditionIndex(err) == 0 {
			return false, nil
		}
		return false, fmt.Errorf("failed to execute payment transaction: %w", err)
	}
	return true, nil
}

// CommitRefundChunk bumps the refunded totals of a DONE order whose refunded
// supply still equals the value the chunk was planned against.
func (s *Store) CommitRefundChunk(ctx context.Context, c storage.RefundChunkCommit) error {
	values := map[string]types.AttributeValue{
		":done":   stringAV(string(models.CreditOrderDone)),
		":prior":  numberAV(c.PriorRefundedSupply),
		":supply": numberAV(c.PriorRefundedSupply + c.Supply),
		":vat":    numberAV(c.VAT),
		":total":  numberAV(c.Supply + c.VAT),
		":now":    timeAV(c.At),
	}
	expr := "SET refunded_supply_amount = :supply, refunded_vat_amount = refunded_vat_amount + :vat, " +
		"refunded_total_amount = refunded_total_amount + :total, updated_at = :now"
	if c.FullyRefunded {
		expr += ", #status = :refunded"
		values[":refunded"] = stringAV(string(models.CreditOrderRefunded))
	}

	ledgerItem, err := s.ledgerUpsert(c.Entry)
	if err != nil {
		return err
	}
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:                 aws.String(s.CreditOrdersTableName),
					Key:                       idKey(c.OrderID),
					UpdateExpression:          aws.String(expr),
					ConditionExpression:       aws.String("#status = :done AND refunded_supply_amount = :prior"),
					ExpressionAttributeNames:  map[string]string{"#status": "status"},
					ExpressionAttributeValues: values,
				},
			},
			ledgerItem,
			s.accountBump(c.Entry.OrganizationID, c.At),
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if failedConditionIndex(err) >= 0 {
			return storage.ErrConditionFailed
		}
		return fmt.Errorf("failed to execute refund transaction: %w", err)
	}
	return nil
}

// CommitBankMatch claims the bank transaction and the charge order with
// conditional updates and upserts the CHARGE entry, all in one transaction.
func (s *Store) CommitBankMatch(ctx context.Context, c storage.BankMatchCommit) error {
	matchSet := "SET #status = :matched, matched_at = :now, matched_by = :matched_by, updated_at = :now"
	shared := map[string]types.AttributeValue{
		":matched":    stringAV(string(models.BankTransactionMatched)),
		":now":        timeAV(c.At),
		":matched_by": stringAV(string(c.MatchedBy)),
	}
	if c.MatchedByUserID != "" {
		matchSet += ", matched_by_user_id = :user"
		shared[":user"] = stringAV(c.MatchedByUserID)
	}
	if c.Note != "" {
		matchSet += ", match_note = :note"
		shared[":note"] = stringAV(c.Note)
	}

	txValues := map[string]types.AttributeValue{
		":new":          stringAV(string(models.BankTransactionNew)),
		":charge_order": stringAV(c.ChargeOrderID),
	}
	orderValues := map[string]types.AttributeValue{
		":bank_tx": stringAV(c.BankTransactionID),
	}
	for k, v := range shared {
		txValues[k] = v
		orderValues[k] = v
	}
	orderCondition := statusIn(c.ChargeOrderStatuses, orderValues) + " AND attribute_not_exists(bank_transaction_id)"
	orderSet := matchSet + ", bank_transaction_id = :bank_tx"
	if c.MatchedBy == models.MatchedByAuto {
		orderSet += ", admin_approval_status = :approved, admin_approval_at = :now"
		orderValues[":approved"] = stringAV(string(models.ApprovalApproved))
	}

	ledgerItem, err := s.ledgerUpsert(c.Entry)
	if err != nil {
		return err
	}
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:                 aws.String(s.BankTransactionsTableName),
					Key:                       idKey(c.BankTransactionID),
					UpdateExpression:          aws.String(matchSet + ", charge_order_id = :charge_order"),
					ConditionExpression:       aws.String("#status = :new AND attribute_not_exists(charge_order_id)"),
					ExpressionAttributeNames:  map[string]string{"#status": "status"},
					ExpressionAttributeValues: txValues,
				},
			},
			{
				Update: &types.Update{
					TableName:                 aws.String(s.ChargeOrdersTableName),
					Key:                       idKey(c.ChargeOrderID),
					UpdateExpression:          aws.String(orderSet),
					ConditionExpression:       aws.String(orderCondition),
					ExpressionAttributeNames:  map[string]string{"#status": "status"},
					ExpressionAttributeValues: orderValues,
				},
			},
			ledgerItem,
			s.accountBump(c.Entry.OrganizationID, c.At),
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if failedConditionIndex(err) >= 0 {
			return storage.ErrConditionFailed
		}
		return fmt.Errorf("failed to execute bank match transaction: %w", err)
	}
	return nil
}
