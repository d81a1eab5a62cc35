package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"solana-token-sniper/internal/config"
	"solana-token-sniper/internal/dexscreener"
	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/evm"
	"solana-token-sniper/internal/execution"
	"solana-token-sniper/internal/honeypot"
	"solana-token-sniper/internal/jupiter"
	"solana-token-sniper/internal/order"
	"solana-token-sniper/internal/outcome"
	"solana-token-sniper/internal/rpcservice"
	"solana-token-sniper/internal/rugcheck"
	"solana-token-sniper/internal/safety"
	"solana-token-sniper/internal/scanner"
	"solana-token-sniper/internal/solana"
	"solana-token-sniper/internal/storage"
	"solana-token-sniper/internal/storage/cache"
	chstore "solana-token-sniper/internal/storage/clickhouse"
	"solana-token-sniper/internal/storage/memory"
	"solana-token-sniper/internal/storage/migrations"
	pgstore "solana-token-sniper/internal/storage/postgres"
)

// stores groups the persistence backends.
type stores struct {
	orders     storage.OrderStore
	executions storage.ExecutionStore
	snapshots  storage.TokenSnapshotStore
}

// app holds every wired component. Optional components stay nil when
// their settings are empty.
type app struct {
	cfg *config.Config
	log *logrus.Logger

	stores   stores
	rpc      *rpcservice.Service
	engine   *safety.Engine
	orders   *order.Service
	monitor  *order.Monitor
	pipeline *execution.Pipeline
	scanner  *scanner.Scanner

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	entry := func(component string) *logrus.Entry { return a.log.WithField("component", component) }

	if err := a.initStores(ctx); err != nil {
		return err
	}

	rpc, err := rpcservice.New(rpcservice.Options{
		Config: cfg.RPCServiceConfig(),
		Dial: func(endpoint string) rpcservice.Client {
			return solana.NewHTTPClient(endpoint,
				solana.WithTimeout(cfg.RPC.Timeout),
				solana.WithLogger(entry("solana-rpc")),
			)
		},
		DialWatcher: func(endpoint string) solana.SignatureWatcher {
			return solana.NewWSClient(wsURL(endpoint), nil, entry("ws"))
		},
		Logger: entry("rpc"),
	})
	if err != nil {
		return fmt.Errorf("rpc service: %w", err)
	}
	a.rpc = rpc
	a.closers = append(a.closers, func() { _ = rpc.Close() })

	if cfg.RPC.CustomURL != "" {
		if err := rpc.SetCustomRPC(ctx, cfg.RPC.CustomURL); err != nil {
			a.log.WithError(err).Warn("custom rpc rejected, staying on premium")
		}
	}

	dex := dexscreener.NewClient(cfg.Scanner.DexScreenerURL, entry("dexscreener"))
	jup := jupiter.NewClient(cfg.Execution.JupiterURL, entry("jupiter"))

	solInspector := safety.NewSolanaInspector(rpc.ChainReader(), jup, dex, nil)
	if cfg.RugCheck.URL != "" {
		solInspector.WithRugReporter(rugcheck.NewClient(cfg.RugCheck.URL, entry("rugcheck")))
	}
	inspectors := []safety.Inspector{solInspector}

	if cfg.EVM.RPCURL != "" {
		client, err := evm.Dial(ctx, cfg.EVM.RPCURL)
		if err != nil {
			return fmt.Errorf("evm rpc: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		hp := honeypot.NewClient(cfg.Honeypot.URL, entry("honeypot"))
		inspectors = append(inspectors, safety.NewEVMInspector(evm.NewInspector(client), hp, dex, nil))
	}
	a.engine = safety.NewEngine(entry("safety"), inspectors...)

	publisher, err := a.initPublisher(ctx)
	if err != nil {
		return err
	}

	a.orders = order.NewService(a.stores.orders, a.stores.executions, cfg.OrderConfig(),
		order.WithSafetyChecker(a.engine),
		order.WithPublisher(publisher),
		order.WithLogger(entry("orders")),
	)
	prices := dexscreener.NewPriceSource(dex, domain.ChainSolana)
	a.monitor = order.NewMonitor(a.stores.orders, prices, cfg.MonitorConfig(), entry("monitor"))
	a.pipeline = execution.NewPipeline(jup, rpc, cfg.ExecutionConfig(), entry("execution"))
	a.scanner = scanner.New(dex, a.engine, a.stores.snapshots, cfg.ScannerConfig(), entry("scanner"))
	return nil
}

func (a *app) initStores(ctx context.Context) error {
	cfg := a.cfg

	var executions storage.ExecutionStore
	backend := "memory"
	if cfg.Database.URL != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Database.URL, pgstore.WithMaxConns(cfg.Database.MaxConns))
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if _, err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		a.stores.orders = pgstore.NewOrderStore(pool)
		executions = pgstore.NewExecutionStore(pool)
		backend = "postgres"
	} else {
		a.stores.orders = memory.NewOrderStore()
		executions = memory.NewExecutionStore()
	}
	a.stores.executions = cache.NewExecutionCache(executions, backend)

	if cfg.ClickHouse.URL != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.URL)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		a.stores.snapshots = chstore.NewTokenSnapshotStore(conn)
	} else {
		a.stores.snapshots = memory.NewTokenSnapshotStore()
	}

	a.log.WithFields(logrus.Fields{
		"orders":    backend,
		"snapshots": snapshotBackend(cfg),
	}).Info("storage ready")
	return nil
}

func (a *app) initPublisher(ctx context.Context) (outcome.Publisher, error) {
	if a.cfg.AMQP.URL == "" {
		return outcome.NopPublisher{}, nil
	}
	p, err := outcome.Dial(ctx, outcome.DialOptions{
		URL:        a.cfg.AMQP.URL,
		Exchange:   a.cfg.AMQP.Exchange,
		RoutingKey: a.cfg.AMQP.RoutingKey,
		Log:        a.log.WithField("component", "outcome"),
	})
	if err != nil {
		return nil, fmt.Errorf("amqp: %w", err)
	}
	a.closers = append(a.closers, func() { _ = p.Close() })
	return p, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func snapshotBackend(cfg *config.Config) string {
	if cfg.ClickHouse.URL != "" {
		return "clickhouse"
	}
	return "memory"
}

// wsURL maps an HTTP RPC endpoint to its WebSocket counterpart.
func wsURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}
