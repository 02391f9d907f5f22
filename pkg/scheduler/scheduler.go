package scheduler

import (
	"context"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/google/uuid"
)

// Kind names the settlement work a task carries.
type Kind string

const (
	KindCancelRefund   Kind = "cancel_refund"
	KindWithdrawRefund Kind = "withdraw_refund"
)

// Task is a unit of settlement work handed from the API to the worker.
type Task struct {
	ID             string                `json:"id"`
	Kind           Kind                  `json:"kind"`
	OrganizationID string                `json:"organizationId"`
	UserID         string                `json:"userId,omitempty"`
	RequestID      string                `json:"requestId,omitempty"`
	RefundAccount  *models.RefundAccount `json:"refundAccount,omitempty"`
	EnqueuedAt     time.Time             `json:"enqueuedAt"`
}

// NewTask stamps a task with a fresh id.
func NewTask(kind Kind, organizationID, userID string, now time.Time) *Task {
	return &Task{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Kind:           kind,
		OrganizationID: organizationID,
		UserID:         userID,
		EnqueuedAt:     now,
	}
}

// Queue defines the interface for a component that hands tasks to the
// settlement worker.
//
//go:generate mockery --name Queue
type Queue interface {
	// Enqueue submits a task for asynchronous processing.
	Enqueue(ctx context.Context, task *Task) error
}
