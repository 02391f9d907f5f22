// Package worker executes settlement tasks taken off the task queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/retry"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
)

// Refunder is the settlement work a task can ask for.
//
//go:generate mockery --name Refunder
type Refunder interface {
	CancelRefund(ctx context.Context, organizationID, userID, requestID string) (int64, error)
	RefundAllForWithdraw(ctx context.Context, organizationID, userID string, account *models.RefundAccount) (*models.RefundResult, error)
}

// Processor runs tasks with bounded retries.
type Processor struct {
	refunder Refunder
	retry    retry.Policy
	logger   *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(refunder Refunder, policy retry.Policy, logger *slog.Logger) *Processor {
	return &Processor{refunder: refunder, retry: policy, logger: logger}
}

// Process runs one task. Domain errors are final and not retried; anything
// else is retried under the policy and then returned.
func (p *Processor) Process(ctx context.Context, task *scheduler.Task) error {
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		err := p.run(ctx, task)
		if isFinal(err) {
			return retry.Permanent(err)
		}
		return err
	})

	outcome := "ok"
	switch {
	case err == nil:
	case isFinal(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	metrics.TasksProcessed.WithLabelValues(string(task.Kind), outcome).Inc()
	if err != nil {
		p.logger.ErrorContext(ctx, "task failed", "task_id", task.ID, "kind", task.Kind, "organization_id", task.OrganizationID, "error", err)
	}
	return err
}

func (p *Processor) run(ctx context.Context, task *scheduler.Task) error {
	switch task.Kind {
	case scheduler.KindCancelRefund:
		refunded, err := p.refunder.CancelRefund(ctx, task.OrganizationID, task.UserID, task.RequestID)
		if err != nil {
			return err
		}
		p.logger.InfoContext(ctx, "cancel refund settled", "task_id", task.ID, "request_id", task.RequestID, "refunded", refunded)
		return nil
	case scheduler.KindWithdrawRefund:
		res, err := p.refunder.RefundAllForWithdraw(ctx, task.OrganizationID, task.UserID, task.RefundAccount)
		if err != nil {
			return err
		}
		p.logger.InfoContext(ctx, "withdraw refund settled", "task_id", task.ID, "organization_id", task.OrganizationID, "supply", res.RequestedSupply, "chunks", len(res.Allocations))
		return nil
	default:
		return credit.NewValidationError("kind", "unknown task kind %q", task.Kind)
	}
}

// isFinal reports errors that a retry cannot fix.
func isFinal(err error) bool {
	if err == nil {
		return false
	}
	var verr *credit.ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, credit.ErrNotFound) ||
		errors.Is(err, credit.ErrInsufficientPaidBalance) ||
		errors.Is(err, credit.ErrNoRefundableOrders) ||
		errors.Is(err, credit.ErrInvalidTransition)
}

// HandleSQS processes an SQS batch and reports the messages that should be
// redelivered. Malformed and finally rejected messages are dropped after
// logging so they do not loop.
func (p *Processor) HandleSQS(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, msg := range event.Records {
		task, err := scheduler.Decode(msg.Body)
		if err != nil {
			p.logger.ErrorContext(ctx, "dropping malformed task message", "message_id", msg.MessageId, "error", err)
			continue
		}
		if err := p.Process(ctx, task); err != nil && !isFinal(err) {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
		}
	}
	if n := len(resp.BatchItemFailures); n > 0 {
		p.logger.WarnContext(ctx, "tasks left for redelivery", "count", n, "batch", len(event.Records))
	}
	return resp, nil
}

// Handler adapts Process to the local queue.
func (p *Processor) Handler() scheduler.Handler {
	return func(ctx context.Context, task *scheduler.Task) error {
		if err := p.Process(ctx, task); err != nil {
			return fmt.Errorf("task %s: %w", task.ID, err)
		}
		return nil
	}
}
