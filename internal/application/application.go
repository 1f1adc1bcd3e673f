package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/Unagi-Games/evm-whitelabel/internal/config"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/market"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/policy"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/service/relay"
	"github.com/Unagi-Games/evm-whitelabel/internal/domain/value"
	"github.com/Unagi-Games/evm-whitelabel/internal/infrastructure/ledger"
	"github.com/Unagi-Games/evm-whitelabel/internal/infrastructure/notifier"
	"github.com/Unagi-Games/evm-whitelabel/internal/infrastructure/persistence"
	"github.com/Unagi-Games/evm-whitelabel/internal/infrastructure/queue"
	"github.com/Unagi-Games/evm-whitelabel/internal/server"
	"github.com/Unagi-Games/evm-whitelabel/internal/worker"
	"github.com/Unagi-Games/evm-whitelabel/pkg/application/connectors"
	"github.com/Unagi-Games/evm-whitelabel/pkg/application/modules"
	"github.com/Unagi-Games/evm-whitelabel/pkg/contextx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/logx"
	"github.com/Unagi-Games/evm-whitelabel/pkg/middlewarex"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

func Run(ctx context.Context) error { //nolint:funlen,cyclop
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	// Connectors.
	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(ctx)

	rds := &connectors.Redis{
		Address:            cfg.Redis.Address,
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		DatabaseNumber:     cfg.Redis.DatabaseNumber,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
	}
	rds.Client(ctx)
	defer rds.Close(ctx)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DatabaseNumber,
	})
	defer asynqClient.Close()

	// Repositories.
	saleRepo := persistence.NewSaleRepository(db)
	escrowRepo := persistence.NewEscrowRepository(db)
	policyRepo := persistence.NewPolicyRepository(db)

	// Asset ledger clients.
	nftLedger := ledger.NewNFTLedgerClient(ledger.Config{
		BaseURL:       cfg.Ledger.NFTBaseURL,
		Token:         cfg.Ledger.NFTToken,
		Timeout:       cfg.Ledger.Timeout,
		LogBodyMaxLen: cfg.Ledger.LogBodyMaxLen,
	})
	tokenLedger := ledger.NewTokenLedgerClient(ledger.Config{
		BaseURL:       cfg.Ledger.TokenBaseURL,
		Token:         cfg.Ledger.TokenToken,
		Timeout:       cfg.Ledger.Timeout,
		LogBodyMaxLen: cfg.Ledger.LogBodyMaxLen,
	})

	bus := queue.NewBus(asynqClient)

	// Services.
	policyService := policy.NewService(policyRepo, bus)

	marketService := market.New(saleRepo, nftLedger, tokenLedger, policyService, bus)
	operator, err := value.ParseAddress(cfg.Market.OperatorAddress)
	if err != nil {
		return fmt.Errorf("parse operator address: %w", err)
	}
	burnSink, err := value.ParseAddress(cfg.Market.BurnSinkAddress)
	if err != nil {
		return fmt.Errorf("parse burn sink address: %w", err)
	}
	if err := marketService.Initialize(market.Config{
		Operator: operator,
		BurnSink: burnSink,
	}); err != nil {
		return fmt.Errorf("market.Initialize: %w", err)
	}

	relayService := relay.New(escrowRepo, nftLedger, tokenLedger, policyService, bus)
	custodian, err := value.ParseAddress(cfg.Relay.CustodianAddress)
	if err != nil {
		return fmt.Errorf("parse custodian address: %w", err)
	}
	nftReceiver, err := value.ParseAddress(cfg.Relay.NFTReceiverAddress)
	if err != nil {
		return fmt.Errorf("parse nft receiver address: %w", err)
	}
	tokenReceiver, err := value.ParseAddress(cfg.Relay.TokenReceiverAddress)
	if err != nil {
		return fmt.Errorf("parse token receiver address: %w", err)
	}
	if err := relayService.Initialize(relay.Config{
		Custodian:     custodian,
		NFTReceiver:   nftReceiver,
		TokenReceiver: tokenReceiver,
	}); err != nil {
		return fmt.Errorf("relay.Initialize: %w", err)
	}

	// Notification channel. Without a bot token the settlement events stay
	// in the log only.
	var alerter notifications = logNotifier{}
	if cfg.Telegram.BotToken != "" {
		bot, err := notifier.NewTelegramBot(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("notifier.NewTelegramBot: %w", err)
		}
		alerter = bot
	}

	// HTTP API.
	srv := server.NewServer(
		server.NewMarketServer(marketService),
		server.NewRelayServer(relayService),
		server.NewPolicyServer(policyService),
	)

	masker := logx.NewSensitiveDataMasker()
	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.CallerAddress,
		middlewarex.RequestLogging(masker, cfg.Service.LogFieldMaxLen),
		middlewarex.ResponseLogging(masker, cfg.Service.LogFieldMaxLen),
		middlewarex.Recovery,
	)
	srv.RegisterRoutes(router)

	modules.HTTPServer{ShutdownTimeout: cfg.Service.ShutdownTimeout}.Run(ctx, g, &http.Server{
		Addr:    cfg.Service.ListenAddress,
		Handler: router,
	})

	modules.ProbeServer{
		Name:          cfg.Service.Name,
		Version:       cfg.Service.Version,
		ListenAddress: cfg.Service.ProbeAddress,
	}.Run(ctx, g)

	modules.MetricServer{ListenAddress: cfg.Service.MetricsAddress}.Run(ctx, g)

	// Settlement event consumer.
	eventHandler := queue.NewHandler(alerter)
	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
	}.Run(ctx, g,
		modules.AsynqQueues{queue.QueueEvents: 1},
		modules.AsynqHandler{
			Pattern: queue.TaskSettlementEvent,
			Handle:  eventHandler.HandleSettlementEvent,
		},
	)

	// Stale sale sweeper.
	sweeper := worker.NewStaleSaleSweeper(saleRepo, nftLedger, alerter, operator).
		WithInterval(cfg.Worker.SweepInterval).
		WithPageSize(cfg.Worker.SweepPageSize)

	g.Go(func() error {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("sweeper.Run: %w", err)
		}
		return nil
	})

	logger(ctx).Info("application started")

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("g.Wait: %w", err)
	}

	return nil
}
