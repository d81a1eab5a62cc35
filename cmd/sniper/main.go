// Command sniper runs the token sniper: the order API, scheduled monitor
// sweeps and token discovery, plus one-shot maintenance commands.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"solana-token-sniper/internal/api"
	"solana-token-sniper/internal/config"
	"solana-token-sniper/internal/domain"
	"solana-token-sniper/internal/rpcservice"
	"solana-token-sniper/internal/scanner"
	"solana-token-sniper/internal/storage/migrations"
	pgstore "solana-token-sniper/internal/storage/postgres"
	"solana-token-sniper/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
	logger  = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "sniper",
		Short:         "Solana token sniper",
		Long:          `Safety-gated limit and auto orders with scheduled price sweeps and token discovery`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env and .env are always read)")

	rootCmd.AddCommand(
		serveCmd(),
		sweepCmd(),
		checkCmd(),
		scanCmd(),
		healthCmd(),
		migrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies the log settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.WithError(err).Warn("invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return cfg, nil
}

// withApp loads config, wires the app and runs fn with a signal-aware context.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled sweeps and scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(serve)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	wcfg := worker.Config{SweepInterval: a.cfg.Monitor.SweepInterval}
	var sc worker.Scanner
	if a.cfg.Scanner.Enabled {
		wcfg.ScanSchedule = a.cfg.Scanner.Schedule
		sc = a.scanner
	}
	w, err := worker.New(a.monitor, sc, wcfg, logger.WithField("component", "worker"))
	if err != nil {
		return err
	}
	var apiScanner api.Scanner
	if sc != nil {
		apiScanner = guardedScan{w}
	}
	w.Start(ctx)
	defer w.Stop()

	router := api.NewRouter(api.Deps{
		Orders:       a.orders,
		RPC:          a.rpc,
		Safety:       a.engine,
		SafetyConfig: a.cfg.SafetyConfig(),
		Sweeper:      w,
		Swaps:        a.pipeline,
		Scanner:      apiScanner,
		Log:          logger.WithField("component", "api"),
	})
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// guardedScan sends API scans through the worker so they never overlap a
// scheduled pass.
type guardedScan struct{ w *worker.Worker }

func (g guardedScan) Scan(ctx context.Context) ([]scanner.Candidate, error) {
	return g.w.RunScanNow(ctx)
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one monitor sweep over active orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				res, err := a.monitor.Sweep(ctx)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
}

func checkCmd() *cobra.Command {
	var chain string
	cmd := &cobra.Command{
		Use:   "check <token>",
		Short: "Run the full safety check for a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				report, err := a.engine.RunFullSafetyCheck(ctx, args[0], domain.Chain(chain), a.cfg.SafetyConfig())
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}
	cmd.Flags().StringVar(&chain, "chain", string(domain.ChainSolana), "chain of the token")
	return cmd
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one discovery pass and print ranked candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				candidates, err := a.scanner.Scan(ctx)
				if err != nil {
					return err
				}
				return printJSON(candidates)
			})
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the active RPC endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				status := a.rpc.HealthCheck(ctx)
				if err := printJSON(status); err != nil {
					return err
				}
				if status.Status == rpcservice.Unhealthy {
					return errors.New("rpc endpoint unhealthy")
				}
				return nil
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply PostgreSQL and ClickHouse migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if cfg.Database.URL == "" && cfg.ClickHouse.URL == "" {
				return errors.New("neither database.url nor clickhouse.url is set")
			}

			if cfg.Database.URL != "" {
				pool, err := pgstore.NewPool(ctx, cfg.Database.URL)
				if err != nil {
					return err
				}
				defer pool.Close()
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				if err != nil {
					return err
				}
				logger.WithField("files", applied).Info("postgres migrations applied")
			}
			if cfg.ClickHouse.URL != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.URL)
				if err != nil {
					return err
				}
				defer conn.Close()
				logger.Info("clickhouse migrations applied")
			}
			return nil
		},
	}
}
