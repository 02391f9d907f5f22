package storage

// ApiStore defines the non-financial operations needed by the API and the
// order services. None of these write ledger entries.
type ApiStore interface {
	LedgerReader
	CreditOrderStore
	ChargeOrderStore
	BankTransactionStore
	WebhookEventStore
	RequestStore
	AuditLogStore
}
