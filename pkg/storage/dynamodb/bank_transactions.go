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

// UpsertBankTransaction writes the descriptive fields of tx and initializes
// status and created_at only when the record is new.
func (s *Store) UpsertBankTransaction(ctx context.Context, tx *models.BankTransaction) (*models.BankTransaction, error) {
	status := tx.Status
	if status == "" {
		status = models.BankTransactionNew
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.BankTransactionsTableName),
		Key:       idKey(tx.ID),
		UpdateExpression: aws.String("SET external_id = :external_id, bank_code = :bank_code, account_number = :account_number, " +
			"tran_amt = :tran_amt, printed_content = :printed_content, deposit_code = :deposit_code, occurred_at = :occurred_at, " +
			"updated_at = :now, #status = if_not_exists(#status, :status), created_at = if_not_exists(created_at, :now)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":external_id":     stringAV(tx.ExternalID),
			":bank_code":       stringAV(tx.BankCode),
			":account_number":  stringAV(tx.AccountNumber),
			":tran_amt":        numberAV(tx.TranAmt),
			":printed_content": stringAV(tx.PrintedContent),
			":deposit_code":    stringAV(tx.DepositCode),
			":occurred_at":     timeAV(tx.OccurredAt),
			":now":             timeAV(tx.UpdatedAt),
			":status":          stringAV(string(status)),
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	result, err := s.Client.UpdateItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert bank transaction: %w", err)
	}

	var stored models.BankTransaction
	if err := attributevalue.UnmarshalMap(result.Attributes, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bank transaction: %w", err)
	}
	return &stored, nil
}

// GetBankTransaction retrieves a bank transaction by id.
func (s *Store) GetBankTransaction(ctx context.Context, id string) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := s.getByID(ctx, s.BankTransactionsTableName, id, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListBankTransactionsByStatus returns up to limit transactions in status,
// oldest deposit first.
func (s *Store) ListBankTransactionsByStatus(ctx context.Context, status models.BankTransactionStatus, limit int32) ([]models.BankTransaction, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(s.BankTransactionsTableName),
		IndexName:                aws.String(statusOccurredAtGSI),
		KeyConditionExpression:   aws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": stringAV(string(status)),
		},
		ScanIndexForward: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	items, err := s.queryPages(ctx, input, int(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query bank transactions by status: %w", err)
	}
	var txs []models.BankTransaction
	if err := attributevalue.UnmarshalListOfMaps(items, &txs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bank transactions: %w", err)
	}
	return txs, nil
}

// UpdateBankTransactionStatus moves an unmatched transaction from one status to another.
func (s *Store) UpdateBankTransactionStatus(ctx context.Context, id string, from, to models.BankTransactionStatus, at time.Time) error {
	input := &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.BankTransactionsTableName),
		Key:                      idKey(id),
		UpdateExpression:         aws.String("SET #status = :to, updated_at = :now"),
		ConditionExpression:      aws.String("#status = :from AND attribute_not_exists(charge_order_id)"),
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
		return fmt.Errorf("failed to update bank transaction status: %w", err)
	}
	return nil
}
