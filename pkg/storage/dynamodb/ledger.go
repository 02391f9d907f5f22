package dynamodb

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

func ledgerKey(organizationID, uniqueKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"organization_id": stringAV(organizationID),
		"unique_key":      stringAV(uniqueKey),
	}
}

// ledgerUpsert writes e unless an entry with its key already exists.
func (s *Store) ledgerUpsert(e models.LedgerEntry) (types.TransactWriteItem, error) {
	update, err := upsertIfAbsent(s.LedgerTableName, ledgerKey(e.OrganizationID, e.UniqueKey), e)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to build ledger upsert for %s: %w", e.UniqueKey, err)
	}
	return types.TransactWriteItem{Update: update}, nil
}

// AppendLedgerEntry conditionally puts the entry and bumps the account version
// in one transaction. A duplicate key returns the stored entry.
func (s *Store) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) (*models.AppendResult, error) {
	entryAV, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(s.LedgerTableName),
					Item:                entryAV,
					ConditionExpression: aws.String("attribute_not_exists(unique_key)"),
				},
			},
			s.accountBump(entry.OrganizationID, entry.CreatedAt),
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if failedConditionIndex(err) == 0 {
			existing, getErr := s.GetLedgerEntry(ctx, entry.OrganizationID, entry.UniqueKey)
			if getErr != nil {
				return nil, fmt.Errorf("failed to read existing ledger entry: %w", getErr)
			}
			return &models.AppendResult{Inserted: false, Stored: *existing}, nil
		}
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return &models.AppendResult{Inserted: true, Stored: *entry}, nil
}

// GetLedgerEntry retrieves a ledger entry by organization and unique key.
func (s *Store) GetLedgerEntry(ctx context.Context, organizationID, uniqueKey string) (*models.LedgerEntry, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.LedgerTableName),
		Key:            ledgerKey(organizationID, uniqueKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, storage.ErrNotFound
	}

	var entry models.LedgerEntry
	if err := attributevalue.UnmarshalMap(result.Item, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entry: %w", err)
	}
	return &entry, nil
}

// ListLedgerEntries reads the organization's partition with a consistent query.
func (s *Store) ListLedgerEntries(ctx context.Context, organizationID string) ([]models.LedgerEntry, error) {
	return s.queryLedger(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.LedgerTableName),
		KeyConditionExpression: aws.String("organization_id = :org"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":org": stringAV(organizationID),
		},
		ConsistentRead: aws.Bool(true),
	})
}

// ListLedgerEntriesByRef reads the organization's entries pointing at refID.
func (s *Store) ListLedgerEntriesByRef(ctx context.Context, organizationID, refID string) ([]models.LedgerEntry, error) {
	return s.queryLedger(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.LedgerTableName),
		KeyConditionExpression: aws.String("organization_id = :org"),
		FilterExpression:       aws.String("ref_id = :ref"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":org": stringAV(organizationID),
			":ref": stringAV(refID),
		},
		ConsistentRead: aws.Bool(true),
	})
}

func (s *Store) queryLedger(ctx context.Context, input *dynamodb.QueryInput) ([]models.LedgerEntry, error) {
	items, err := s.queryPages(ctx, input, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	var entries []models.LedgerEntry
	if err := attributevalue.UnmarshalListOfMaps(items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ledger entries: %w", err)
	}

	slices.SortFunc(entries, func(a, b models.LedgerEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return entries, nil
}

// GetAccountVersion returns the organization's ledger version, 0 when no
// entry was ever written.
func (s *Store) GetAccountVersion(ctx context.Context, organizationID string) (int64, error) {
	result, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.AccountsTableName),
		Key:            map[string]types.AttributeValue{"organization_id": stringAV(organizationID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get credit account from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return 0, nil
	}

	var account models.CreditAccount
	if err := attributevalue.UnmarshalMap(result.Item, &account); err != nil {
		return 0, fmt.Errorf("failed to unmarshal credit account: %w", err)
	}
	return account.Version, nil
}
