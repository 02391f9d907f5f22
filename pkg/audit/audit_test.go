package audit_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/audit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ *memory.Store }

func (failingStore) CreateAuditLog(context.Context, *models.AuditLog) error {
	return assert.AnError
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	actor := audit.Actor{UserID: "admin-1", IPAddress: "10.0.0.7"}

	t.Run("Success", func(t *testing.T) {
		store := memory.New()
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

		audit.Record(ctx, store, logger, actor, models.AuditLog{
			Action:    models.AuditChargeLock,
			RefType:   models.RefChargeOrder,
			RefID:     "co-1",
			Details:   map[string]string{"reason": "chargeback"},
			CreatedAt: now,
		})

		logs, err := store.ListAuditLogs(ctx, "co-1")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.NotEmpty(t, logs[0].ID)
		assert.Equal(t, "admin-1", logs[0].ActorUserID)
		assert.Equal(t, "10.0.0.7", logs[0].IPAddress)
		assert.Equal(t, "chargeback", logs[0].Details["reason"])
	})

	t.Run("Write Failure Is Logged", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		audit.Record(ctx, failingStore{memory.New()}, logger, actor, models.AuditLog{
			Action: models.AuditManualMatch, RefType: models.RefBankTx, RefID: "tx-1", CreatedAt: now,
		})

		assert.Contains(t, buf.String(), "failed to write audit log")
		assert.Contains(t, buf.String(), "ref_id=tx-1")
	})
}
