// Package bootstrap wires the services shared by the API server, the
// lambdas and the ops CLI from a loaded config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/prepaid-credit-ledger/pkg/cache"
	"github.com/chris/prepaid-credit-ledger/pkg/config"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/orders"
	"github.com/chris/prepaid-credit-ledger/pkg/reconciliation"
	"github.com/chris/prepaid-credit-ledger/pkg/retry"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/chris/prepaid-credit-ledger/pkg/storage/dynamodb"
	"github.com/chris/prepaid-credit-ledger/pkg/storage/memory"
	"github.com/chris/prepaid-credit-ledger/pkg/webhooks"
	"github.com/chris/prepaid-credit-ledger/pkg/worker"
)

// ErrNoQueueURL is returned by SQSQueue when SQS_QUEUE_URL is not set.
var ErrNoQueueURL = errors.New("SQS_QUEUE_URL environment variable not set")

// App holds the wired services.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	AWS      *aws.Config
	Store    storage.Storage
	Coord    *settlement.Coordinator
	Balances *cache.TTL[string, models.Balance]
	Orders   *orders.Service
	Matcher  *reconciliation.Matcher
	Ingestor *webhooks.Ingestor
	Retry    retry.Policy
}

// New builds the store and every service on top of it. The DynamoDB store
// is used unless cfg selects the memory store.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Retry: retry.Default}
	if cfg.RetryMaxAttempts > 0 {
		a.Retry.MaxAttempts = cfg.RetryMaxAttempts
	}

	if cfg.UseMemoryStore() {
		logger.Warn("using in-memory store, data is lost on exit")
		a.Store = memory.New()
	} else {
		if err := cfg.RequireTables(); err != nil {
			return nil, err
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		a.AWS = &awsCfg
		a.Store = dynamodb.New(awsdynamodb.NewFromConfig(awsCfg), dynamodb.Tables{
			Ledger:           cfg.LedgerTable,
			Accounts:         cfg.AccountsTable,
			CreditOrders:     cfg.CreditOrdersTable,
			ChargeOrders:     cfg.ChargeOrdersTable,
			BankTransactions: cfg.BankTransactionsTable,
			WebhookEvents:    cfg.WebhookEventsTable,
			Requests:         cfg.RequestsTable,
			AuditLogs:        cfg.AuditLogsTable,
		})
	}

	a.Coord = settlement.NewCoordinator(a.Store, logger)
	a.Balances = cache.NewTTL[string, models.Balance](cfg.BalanceCacheTTL, cfg.BalanceCacheMaxEntries, nil)

	gw := gateway.New(gateway.Config{
		Mode:        cfg.PaymentsMode,
		Environment: cfg.Environment,
		BaseURL:     cfg.GatewayBaseURL,
		SecretKey:   cfg.GatewaySecretKey,
		Timeout:     cfg.GatewayTimeout,
	}, logger)

	a.Orders = orders.NewService(a.Store, a.Coord, gw, a.Balances, orders.Config{
		ChargeOrderTTL: cfg.ChargeOrderTTL,
		DepositAccount: orders.DepositAccount{
			BankName:      cfg.DepositBankName,
			AccountNumber: cfg.DepositAccountNumber,
			HolderName:    cfg.DepositHolderName,
		},
		MockPayments: gateway.MockEnabled(cfg.PaymentsMode, cfg.Environment),
	}, logger)
	a.Matcher = reconciliation.NewMatcher(a.Store, a.Coord, a.Retry, logger)
	a.Ingestor = webhooks.NewIngestor(a.Store, a.Coord, a.Orders, logger)
	return a, nil
}

// Processor builds the settlement task processor.
func (a *App) Processor() *worker.Processor {
	return worker.NewProcessor(worker.Refunds{Coordinator: a.Coord, Orders: a.Orders}, a.Retry, a.Logger)
}

// SQSQueue builds the SQS task queue. It needs the DynamoDB-backed setup,
// which loaded the AWS config.
func (a *App) SQSQueue() (*scheduler.SQSQueue, error) {
	if a.Config.SQSQueueURL == "" {
		return nil, ErrNoQueueURL
	}
	if a.AWS == nil {
		return nil, errors.New("SQS queue requires the AWS config")
	}
	return scheduler.NewSQSQueue(sqs.NewFromConfig(*a.AWS), a.Config.SQSQueueURL), nil
}
