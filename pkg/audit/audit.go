// Package audit keeps the trail of admin actions on charge orders and bank
// transactions.
package audit

import (
	"context"
	"log/slog"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/google/uuid"
)

// Actor is the admin behind an action.
type Actor struct {
	UserID    string
	IPAddress string
}

// Record stores entry on behalf of actor. The action it describes is already
// committed, so a failed write is logged and not returned.
func Record(ctx context.Context, store storage.AuditLogStore, logger *slog.Logger, actor Actor, entry models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewV7()).String()
	}
	entry.ActorUserID = actor.UserID
	entry.IPAddress = actor.IPAddress

	if err := store.CreateAuditLog(ctx, &entry); err != nil {
		logger.ErrorContext(ctx, "failed to write audit log",
			"action", entry.Action, "ref_type", entry.RefType, "ref_id", entry.RefID, "actor_user_id", actor.UserID, "error", err)
	}
}
