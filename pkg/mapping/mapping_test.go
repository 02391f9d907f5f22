package mapping_test

import (
	"testing"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/audit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToWebhookEvent(t *testing.T) {
	payload := &api.WebhookPayload{
		TransmissionID: "tr-body",
		EventType:      "DEPOSIT_CALLBACK",
		OrderID:        "CREDIT_org-1_1_abcdef",
		Status:         "DONE",
		Secret:         "s3cret",
	}
	raw := []byte(`{"orderId":"CREDIT_org-1_1_abcdef"}`)

	t.Run("Header Id Wins", func(t *testing.T) {
		ev := mapping.ToWebhookEvent("tr-header", payload, raw)

		assert.Equal(t, "tr-header", ev.TransmissionID)
		assert.Equal(t, gateway.Status("DONE"), ev.Status)
		assert.Equal(t, string(raw), ev.Payload)
	})

	t.Run("Falls Back To Body Id", func(t *testing.T) {
		ev := mapping.ToWebhookEvent("", payload, raw)

		assert.Equal(t, "tr-body", ev.TransmissionID)
	})
}

func TestToRefundInput(t *testing.T) {
	t.Run("Without Account", func(t *testing.T) {
		in := mapping.ToRefundInput("org-1", "admin-1", &api.RefundRequest{SupplyAmount: 500_000})

		assert.Equal(t, "org-1", in.OrganizationID)
		assert.Equal(t, int64(500_000), in.SupplyAmount)
		assert.Nil(t, in.RefundAccount)
	})

	t.Run("With Account", func(t *testing.T) {
		in := mapping.ToRefundInput("org-1", "admin-1", &api.RefundRequest{
			SupplyAmount:         500_000,
			RefundReceiveAccount: &api.RefundReceiveAccount{Bank: "088", AccountNumber: "110-123", HolderName: "Kim"},
		})

		require.NotNil(t, in.RefundAccount)
		assert.Equal(t, "110-123", in.RefundAccount.AccountNumber)
	})
}

func TestToSpendBatch(t *testing.T) {
	batch := mapping.ToSpendBatch("org-1", "user-1", &api.SpendRequest{
		BatchID: "batch-1",
		Items: []api.SpendItem{
			{CaseID: "case-1", PriceAmount: 20_000},
			{CaseID: "case-2", PriceAmount: 15_000, ReplacesRequestID: "req-9"},
		},
	})

	assert.Equal(t, "org-1", batch.OrganizationID)
	require.Len(t, batch.Items, 2)
	assert.Equal(t, "req-9", batch.Items[1].ReplacesRequestID)
}

func TestToManualMatchInput(t *testing.T) {
	in := mapping.ToManualMatchInput(audit.Actor{UserID: "admin-1", IPAddress: "10.0.0.7"}, &api.ManualMatchRequest{
		BankTransactionID: "tx-1",
		ChargeOrderID:     "co-1",
		Note:              "paid short",
		Force:             true,
	})

	assert.Equal(t, "admin-1", in.AdminUserID)
	assert.Equal(t, "10.0.0.7", in.AdminIPAddress)
	assert.Equal(t, "tx-1", in.BankTransactionID)
	assert.True(t, in.Force)
}
