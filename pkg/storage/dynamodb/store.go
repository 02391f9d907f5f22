package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

//go:generate mockery --name DynamoDBAPI --output ./mocks --outpkg mocks

// DynamoDBAPI is the subset of the DynamoDB client used by Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Tables names every table the store uses.
type Tables struct {
	Ledger           string
	Accounts         string
	CreditOrders     string
	ChargeOrders     string
	BankTransactions string
	WebhookEvents    string
	Requests         string
	AuditLogs        string
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client                    DynamoDBAPI
	LedgerTableName           string
	AccountsTableName         string
	CreditOrdersTableName     string
	ChargeOrdersTableName     string
	BankTransactionsTableName string
	WebhookEventsTableName    string
	RequestsTableName         string
	AuditLogsTableName        string
}

// New creates a new Store.
func New(client DynamoDBAPI, tables Tables) *Store {
	return &Store{
		Client:                    client,
		LedgerTableName:           tables.Ledger,
		AccountsTableName:         tables.Accounts,
		CreditOrdersTableName:     tables.CreditOrders,
		ChargeOrdersTableName:     tables.ChargeOrders,
		BankTransactionsTableName: tables.BankTransactions,
		WebhookEventsTableName:    tables.WebhookEvents,
		RequestsTableName:         tables.Requests,
		AuditLogsTableName:        tables.AuditLogs,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

const (
	organizationCreatedAtGSI = "organization_id-created_at-index"
	statusCreatedAtGSI       = "status-created_at-index"
	statusOccurredAtGSI      = "status-occurred_at-index"
	refIDCreatedAtGSI        = "ref_id-created_at-index"
)

func stringAV(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func numberAV(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", n)}
}

func timeAV(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}
}

// isConditionalCheckFailed reports whether a single-item write failed its condition.
func isConditionalCheckFailed(err error) bool {
	var condCheckFailed *types.ConditionalCheckFailedException
	return errors.As(err, &condCheckFailed)
}

// failedConditionIndex returns the index of the first transaction item that
// failed its condition, or -1 if err is not such a cancellation.
func failedConditionIndex(err error) int {
	var txc *types.TransactionCanceledException
	if !errors.As(err, &txc) {
		return -1
	}
	for i, reason := range txc.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return i
		}
	}
	return -1
}

// statusIn builds "#status IN (...)" and registers the placeholders in values.
func statusIn[T ~string](statuses []T, values map[string]types.AttributeValue) string {
	placeholders := make([]string, len(statuses))
	for i, st := range statuses {
		p := fmt.Sprintf(":from%d", i)
		values[p] = stringAV(string(st))
		placeholders[i] = p
	}
	return "#status IN (" + strings.Join(placeholders, ", ") + ")"
}

// upsertIfAbsent builds an Update that writes every attribute of item only
// where it is not already set, which leaves an existing record untouched.
func upsertIfAbsent(table string, key map[string]types.AttributeValue, item any) (*types.Update, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	for k := range key {
		delete(av, k)
	}

	names := make([]string, 0, len(av))
	for k := range av {
		names = append(names, k)
	}
	slices.Sort(names)

	exprNames := make(map[string]string, len(names))
	exprValues := make(map[string]types.AttributeValue, len(names))
	sets := make([]string, len(names))
	for i, name := range names {
		n, v := fmt.Sprintf("#a%d", i), fmt.Sprintf(":a%d", i)
		exprNames[n] = name
		exprValues[v] = av[name]
		sets[i] = fmt.Sprintf("%s = if_not_exists(%s, %s)", n, n, v)
	}

	return &types.Update{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	}, nil
}

// queryPages runs input page by page until the table is drained or max items
// were read (max <= 0 means no cap).
func (s *Store) queryPages(ctx context.Context, input *dynamodb.QueryInput, max int) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 || (max > 0 && len(items) >= max) {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items, nil
}

// accountBump increments the organization's ledger version. Every transaction
// that writes ledger entries carries one.
func (s *Store) accountBump(organizationID string, at time.Time) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:        aws.String(s.AccountsTableName),
			Key:              map[string]types.AttributeValue{"organization_id": stringAV(organizationID)},
			UpdateExpression: aws.String("SET updated_at = :now ADD version :inc"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": timeAV(at),
				":inc": numberAV(1),
			},
		},
	}
}
