// Package config loads process configuration from the environment, after
// an optional .env file.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the API, the lambdas and the CLI.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	HTTPPort    string `mapstructure:"HTTP_PORT"`

	// StorageBackend is dynamodb, or memory for local runs outside production.
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`

	PaymentsMode     string        `mapstructure:"PAYMENTS_MODE"`
	GatewayBaseURL   string        `mapstructure:"GATEWAY_BASE_URL"`
	GatewaySecretKey string        `mapstructure:"GATEWAY_SECRET_KEY"`
	GatewayTimeout   time.Duration `mapstructure:"GATEWAY_TIMEOUT"`

	LedgerTable           string `mapstructure:"DYNAMODB_LEDGER_TABLE_NAME"`
	AccountsTable         string `mapstructure:"DYNAMODB_ACCOUNTS_TABLE_NAME"`
	CreditOrdersTable     string `mapstructure:"DYNAMODB_CREDIT_ORDERS_TABLE_NAME"`
	ChargeOrdersTable     string `mapstructure:"DYNAMODB_CHARGE_ORDERS_TABLE_NAME"`
	BankTransactionsTable string `mapstructure:"DYNAMODB_BANK_TRANSACTIONS_TABLE_NAME"`
	WebhookEventsTable    string `mapstructure:"DYNAMODB_WEBHOOK_EVENTS_TABLE_NAME"`
	RequestsTable         string `mapstructure:"DYNAMODB_REQUESTS_TABLE_NAME"`
	AuditLogsTable        string `mapstructure:"DYNAMODB_AUDIT_LOGS_TABLE_NAME"`

	SQSQueueURL string `mapstructure:"SQS_QUEUE_URL"`

	DepositBankName      string        `mapstructure:"DEPOSIT_BANK_NAME"`
	DepositAccountNumber string        `mapstructure:"DEPOSIT_ACCOUNT_NUMBER"`
	DepositHolderName    string        `mapstructure:"DEPOSIT_HOLDER_NAME"`
	ChargeOrderTTL       time.Duration `mapstructure:"CHARGE_ORDER_TTL"`

	BalanceCacheTTL        time.Duration `mapstructure:"BALANCE_CACHE_TTL"`
	BalanceCacheMaxEntries int           `mapstructure:"BALANCE_CACHE_MAX_ENTRIES"`

	SweepLimit       int   `mapstructure:"RECONCILIATION_SWEEP_LIMIT"`
	RetryMaxAttempts int   `mapstructure:"RETRY_MAX_ATTEMPTS"`
	WebhookMaxBytes  int64 `mapstructure:"WEBHOOK_MAX_BODY_BYTES"`
}

var defaults = map[string]any{
	"ENVIRONMENT":                           "development",
	"LOG_LEVEL":                             "info",
	"HTTP_PORT":                             "8080",
	"STORAGE_BACKEND":                       "dynamodb",
	"PAYMENTS_MODE":                         "live",
	"GATEWAY_BASE_URL":                      "https://api.tosspayments.com",
	"GATEWAY_SECRET_KEY":                    "",
	"GATEWAY_TIMEOUT":                       "10s",
	"DYNAMODB_LEDGER_TABLE_NAME":            "credit_ledger",
	"DYNAMODB_ACCOUNTS_TABLE_NAME":          "credit_accounts",
	"DYNAMODB_CREDIT_ORDERS_TABLE_NAME":     "credit_orders",
	"DYNAMODB_CHARGE_ORDERS_TABLE_NAME":     "charge_orders",
	"DYNAMODB_BANK_TRANSACTIONS_TABLE_NAME": "bank_transactions",
	"DYNAMODB_WEBHOOK_EVENTS_TABLE_NAME":    "webhook_events",
	"DYNAMODB_REQUESTS_TABLE_NAME":          "requests",
	"DYNAMODB_AUDIT_LOGS_TABLE_NAME":        "admin_audit_logs",
	"SQS_QUEUE_URL":                         "",
	"DEPOSIT_BANK_NAME":                     "",
	"DEPOSIT_ACCOUNT_NUMBER":                "",
	"DEPOSIT_HOLDER_NAME":                   "",
	"CHARGE_ORDER_TTL":                      "24h",
	"BALANCE_CACHE_TTL":                     "30s",
	"BALANCE_CACHE_MAX_ENTRIES":             10000,
	"RECONCILIATION_SWEEP_LIMIT":            200,
	"RETRY_MAX_ATTEMPTS":                    3,
	"WEBHOOK_MAX_BODY_BYTES":                1 << 20,
}

// Load reads .env when present, then the environment, over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// UseMemoryStore reports whether the in-process store replaces DynamoDB.
// Production always uses DynamoDB.
func (c *Config) UseMemoryStore() bool {
	return strings.EqualFold(c.StorageBackend, "memory") && !c.IsProduction()
}

// RequireTables fails when a DynamoDB table name is blank.
func (c *Config) RequireTables() error {
	tables := map[string]string{
		"DYNAMODB_LEDGER_TABLE_NAME":            c.LedgerTable,
		"DYNAMODB_ACCOUNTS_TABLE_NAME":          c.AccountsTable,
		"DYNAMODB_CREDIT_ORDERS_TABLE_NAME":     c.CreditOrdersTable,
		"DYNAMODB_CHARGE_ORDERS_TABLE_NAME":     c.ChargeOrdersTable,
		"DYNAMODB_BANK_TRANSACTIONS_TABLE_NAME": c.BankTransactionsTable,
		"DYNAMODB_WEBHOOK_EVENTS_TABLE_NAME":    c.WebhookEventsTable,
		"DYNAMODB_REQUESTS_TABLE_NAME":          c.RequestsTable,
		"DYNAMODB_AUDIT_LOGS_TABLE_NAME":        c.AuditLogsTable,
	}
	var missing []string
	for name, v := range tables {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table name environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}
