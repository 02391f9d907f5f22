package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// CreateAuditLog puts one admin action.
func (s *Store) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return s.putNew(ctx, s.AuditLogsTableName, log)
}

// ListAuditLogs returns the actions taken on refID, oldest first.
func (s *Store) ListAuditLogs(ctx context.Context, refID string) ([]models.AuditLog, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.AuditLogsTableName),
		IndexName:              aws.String(refIDCreatedAtGSI),
		KeyConditionExpression: aws.String("ref_id = :ref"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ref": stringAV(refID),
		},
		ScanIndexForward: aws.Bool(true),
	}

	var logs []models.AuditLog
	if err := s.queryAll(ctx, input, &logs); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
