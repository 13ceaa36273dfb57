package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rogerio-castellano/inventory-orders/internal/auth"
	"github.com/rogerio-castellano/inventory-orders/internal/config"
	"github.com/rogerio-castellano/inventory-orders/internal/db"
	"github.com/rogerio-castellano/inventory-orders/internal/events"
	api "github.com/rogerio-castellano/inventory-orders/internal/http"
	"github.com/rogerio-castellano/inventory-orders/internal/http/handlers"
	rl "github.com/rogerio-castellano/inventory-orders/internal/http/rate_limiter"
	"github.com/rogerio-castellano/inventory-orders/internal/idempotency"
	"github.com/rogerio-castellano/inventory-orders/internal/inventory"
	"github.com/rogerio-castellano/inventory-orders/internal/logging"
	"github.com/rogerio-castellano/inventory-orders/internal/observability"
	"github.com/rogerio-castellano/inventory-orders/internal/orders"
	"github.com/rogerio-castellano/inventory-orders/internal/store"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(memory); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, memory)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "keep everything in memory instead of Postgres")
	return cmd
}

// application owns the long-lived resources of a server run.
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	server  *http.Server
	limiter *rl.Limiter
	closers []func(context.Context) error
}

func newApplication(ctx context.Context, cfg *config.Config, memory bool) (*application, error) {
	app := &application{cfg: cfg}
	if err := app.open(ctx, memory); err != nil {
		return nil, err
	}
	return app, nil
}

// open builds the server. Whatever was opened before a failure is closed again.
func (a *application) open(ctx context.Context, memory bool) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(err, a.close(context.WithoutCancel(ctx)))
		}
	}()
	cfg := a.cfg

	var tp trace.TracerProvider = otel.GetTracerProvider()
	if cfg.Otel.Endpoint != "" {
		logShutdown, err := observability.SetupLoggingSDK(ctx, cfg.Otel)
		if err != nil {
			return fmt.Errorf("setup OpenTelemetry logging: %w", err)
		}
		a.closers = append(a.closers, logShutdown)
		sdkTP, traceShutdown, err := observability.SetupTracingSDK(ctx, cfg.Otel)
		if err != nil {
			return fmt.Errorf("setup OpenTelemetry tracing: %w", err)
		}
		tp = sdkTP
		a.closers = append(a.closers, traceShutdown)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Otel.Endpoint != "")
	if err != nil {
		return err
	}
	a.logger = logger

	st, err := a.openStore(ctx, memory)
	if err != nil {
		return err
	}

	idem, err := a.openIdempotencyStore(ctx)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Broker != "" {
		k, err := events.DialKafka(cfg.Kafka.Broker, cfg.Kafka.OrdersTopic, tp)
		if err != nil {
			return fmt.Errorf("kafka writer: %w", err)
		}
		publisher = k
		a.closers = append(a.closers, func(context.Context) error { return k.Close() })
		logger.Info("publishing order events", zap.String("broker", cfg.Kafka.Broker), zap.String("topic", cfg.Kafka.OrdersTopic))
	}

	ledger := inventory.NewLedger(st, logger)
	wf := orders.NewWorkflow(st, ledger,
		orders.WithLogger(logger),
		orders.WithPublisher(publisher),
		orders.WithInventoryLocks(cfg.Orders.LockInventory),
	)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authn := auth.NewAdminAuthenticator(cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash, issuer)
	a.limiter = rl.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	a.server = &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewRouter(api.RouterConfig{
			Server:         handlers.NewServer(ledger, wf, authn, logger),
			Issuer:         issuer,
			Limiter:        a.limiter,
			Idempotency:    idem,
			IdempotencyTTL: cfg.Redis.IdempotencyTTL,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

func (a *application) openStore(ctx context.Context, memory bool) (store.Store, error) {
	if memory {
		a.logger.Info("using in-memory store")
		return store.NewMemory(), nil
	}
	database, err := db.Connect(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return database.Close() })
	return store.NewPostgres(database, a.cfg.Database.QueryTimeout), nil
}

func (a *application) openIdempotencyStore(ctx context.Context) (idempotency.Store, error) {
	if a.cfg.Redis.Addr == "" {
		return idempotency.NewMemoryStore(), nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	return idempotency.NewRedisStore(rdb), nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and releases resources.
func (a *application) Run(ctx context.Context) error {
	go a.limiter.StartVisitorCleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server running", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := errors.Join(runErr, a.server.Shutdown(shutdownCtx), a.close(shutdownCtx))
	_ = a.logger.Sync()
	return err
}

func (a *application) close(ctx context.Context) error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, a.closers[i](ctx))
	}
	a.closers = nil
	return err
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			database, err := db.Connect(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer database.Close()
			return migrate(cmd, database)
		},
	}
}

func migrate(cmd *cobra.Command, database *sql.DB) error {
	if err := db.Migrate(cmd.Context(), database); err != nil {
		return err
	}
	cmd.Println("schema is up to date")
	return nil
}
