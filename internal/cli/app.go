package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/api"
	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain/solbc"
	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/launchpad-settlement/internal/claim"
	"github.com/rovshanmuradov/launchpad-settlement/internal/config"
	"github.com/rovshanmuradov/launchpad-settlement/internal/coordinator"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpfun"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad-settlement/internal/entitlement"
	"github.com/rovshanmuradov/launchpad-settlement/internal/events"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage/memory"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage/migrations"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage/postgres"
	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
	"github.com/rovshanmuradov/launchpad-settlement/internal/verify"
)

// App is a fully wired settlement service.
type App struct {
	Coordinator *coordinator.Coordinator
	Handler     http.Handler
	Registry    *prometheus.Registry
}

// buildApp wires every component from cfg. Resources that need closing are
// registered on sh in start order.
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, sh *ShutdownHandler) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	client := solbc.NewPooledClient(cfg.RPCEndpoints(), cfg.RPCTimeout(), cfg.RPCCooldown(), logger)
	gateway, err := newGateway(cfg, client, logger, collector)
	if err != nil {
		return nil, err
	}

	settlements, workflows, err := openStores(ctx, cfg, logger, sh)
	if err != nil {
		return nil, err
	}

	// The bus is registered last so it drains before the webhook it feeds is closed.
	bus := events.NewBus(logger, collector, cfg.Bookkeeping.Buffer)
	if cfg.Bookkeeping.WebhookURL != "" {
		hook := events.NewWebhook(events.WebhookConfig{
			URL:      cfg.Bookkeeping.WebhookURL,
			Timeout:  cfg.WebhookTimeout(),
			MaxTries: cfg.Bookkeeping.MaxTries,
		}, logger, collector)
		hook.Attach(bus)
		sh.AddFunc("bookkeeping_webhook", func() error {
			hook.Detach()
			hook.Close()
			return nil
		})
	}
	sh.Add("event_bus", bus.Shutdown)

	calculator := entitlement.NewCalculator(gateway, logger, entitlement.Config{
		MinClaimFloor: cfg.MinClaimFloor(),
		MigrationFee:  cfg.MigrationFee(),
		Concurrency:   cfg.BuildConcurrency,
	})
	coord, err := coordinator.New(coordinator.Deps{
		Gateway:     gateway,
		Calculator:  calculator,
		Builder:     claim.NewBuilder(gateway, logger, collector, calculator.MinClaimFloor()),
		Verifier:    verify.NewVerifier(gateway, settlements, logger, collector, cfg.Tolerance()),
		Settlements: settlements,
		Workflows:   workflows,
		Events:      bus,
		VenueConfig: config.PublicKey(cfg.VenueConfig),
	}, logger)
	if err != nil {
		return nil, err
	}

	server := api.NewServer(coord, logger, collector, api.Options{
		Gatherer: reg,
		Health: func() map[string]interface{} {
			return map[string]interface{}{
				"events":            bus.Stats(),
				"ledger_endpoints":  len(cfg.RPCEndpoints()),
				"healthy_endpoints": client.HealthyEndpoints(),
			}
		},
	})

	return &App{Coordinator: coord, Handler: server.Handler(), Registry: reg}, nil
}

func newGateway(cfg *config.Config, client *solbc.Client, logger *zap.Logger, collector *metrics.Collector) (*ledger.SolanaGateway, error) {
	curve := pumpfun.DefaultConfig()
	if cfg.CurveProgram != "" {
		curve.ProgramID = config.PublicKey(cfg.CurveProgram)
		global, err := pumpfun.DeriveGlobal(curve.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("derive curve global: %w", err)
		}
		curve.Global = global
	}
	curve.FeeRecipient = config.PublicKey(cfg.FeeRecipient)
	curve.VenueConfig = config.PublicKey(cfg.VenueConfig)

	amm := &pumpswap.Config{
		ProgramID:      config.PublicKey(cfg.AmmProgram),
		CurveProgramID: curve.ProgramID,
	}
	if err := amm.Validate(); err != nil {
		return nil, fmt.Errorf("amm venue: %w", err)
	}

	cache := ledger.NopCache()
	if cfg.CacheSize > 0 && cfg.CacheTTLMs > 0 {
		cache = ledger.NewCache(cfg.CacheSize, cfg.CacheTTL())
	}

	tx := transaction.DefaultConfig()
	tx.MaxTries = cfg.OutcomeMaxTries

	return ledger.NewSolanaGateway(client, logger, ledger.Options{
		Curve:              curve,
		Amm:                amm,
		Cache:              cache,
		Tx:                 tx,
		Metrics:            collector,
		ComputeUnitLimit:   cfg.ComputeUnitLimit,
		PriorityFeeMicro:   cfg.PriorityFeeMicro,
		PreBuySlippageBps:  cfg.PreBuySlippageBps,
		OutcomeConcurrency: cfg.BuildConcurrency,
	})
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger, sh *ShutdownHandler) (storage.SettlementStore, storage.WorkflowStore, error) {
	if cfg.UseMemory {
		logger.Warn("Using in-memory storage; settlements are lost on restart")
		store := memory.New()
		return store, store, nil
	}

	pool, err := openPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sh.AddFunc("postgres", func() error {
		pool.Close()
		return nil
	})
	return postgres.NewSettlementStore(pool), postgres.NewWorkflowStore(pool), nil
}

// openPostgres connects and brings the schema up to date.
func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*postgres.Pool, error) {
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:      cfg.PostgresURL,
		MaxConns: cfg.PostgresMaxConns,
	}, logger)
	if err != nil {
		return nil, err
	}
	err = migrations.RunPostgres(ctx, pool, func(name string) {
		logger.Info("Applied migration", zap.String("file", name))
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
