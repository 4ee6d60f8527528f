package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/shopcore/shopcore/internal/api"
	"github.com/shopcore/shopcore/internal/api/handlers/webhooks"
	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/cache"
	"github.com/shopcore/shopcore/internal/database"
	"github.com/shopcore/shopcore/internal/event/bus"
	"github.com/shopcore/shopcore/internal/health"
	"github.com/shopcore/shopcore/internal/notification"
	"github.com/shopcore/shopcore/internal/shutdown"
	"github.com/shopcore/shopcore/internal/webhook/delivery"
	"github.com/shopcore/shopcore/internal/webhook/dispatcher"
	"github.com/shopcore/shopcore/internal/webhook/repository"
	"github.com/shopcore/shopcore/internal/webhook/service"
	"github.com/shopcore/shopcore/internal/webhook/subscriber"
	"github.com/shopcore/shopcore/pkg/logging"
	"github.com/shopcore/shopcore/pkg/metrics"
)

var (
	// serverPort is the port to listen on
	serverPort int
	// serverHost is the host to bind to
	serverHost string
	// dbDriver selects the database backend (postgres or sqlite)
	dbDriver string
	// dbDSN is the database connection string
	dbDSN string
	// redisAddr enables Redis-backed caching and durable retries when set
	redisAddr string
	// redisPassword is the Redis password
	redisPassword string
	// redisDB is the Redis database number
	redisDB int
	// authSecret signs and verifies store tokens
	authSecret string
	// authIssuer is the expected token issuer
	authIssuer string
	// cacheTTL bounds staleness of the subscription cache
	cacheTTL time.Duration
)

// newServerCmd creates the server command with subcommands.
func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Server management commands",
		Long:  `Commands for managing the Shopcore webhook HTTP server and database.`,
	}

	cmd.AddCommand(newServerStartCmd())
	cmd.AddCommand(newServerMigrateCmd())

	return cmd
}

func addDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dbDriver, "db-driver", envOr("SHOPCORE_DB_DRIVER", "postgres"), "database driver (postgres|sqlite)")
	cmd.Flags().StringVar(&dbDSN, "db-dsn", envOr("SHOPCORE_DB_DSN", ""), "database connection string")
}

// newServerStartCmd creates the server start subcommand.
func newServerStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the webhook HTTP server",
		Long: `Start the Shopcore webhook server.

The server exposes the subscription management API, dispatches storefront
events to registered endpoints, and runs the retry worker. When a Redis
address is configured, retries are persisted through asynq and survive
restarts; without one they run on in-process timers.`,
		Example: `  shopcore server start --db-driver sqlite --db-dsn shopcore.db
  shopcore server start --port 3000 --redis-addr localhost:6379`,
		RunE: runServerStart,
	}

	cmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "port to listen on")
	cmd.Flags().StringVar(&serverHost, "host", "0.0.0.0", "host to bind to")
	addDatabaseFlags(cmd)
	cmd.Flags().StringVar(&redisAddr, "redis-addr", envOr("SHOPCORE_REDIS_ADDR", ""), "Redis address (empty disables Redis)")
	cmd.Flags().StringVar(&redisPassword, "redis-password", envOr("SHOPCORE_REDIS_PASSWORD", ""), "Redis password")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database number")
	cmd.Flags().StringVar(&authSecret, "auth-secret", envOr("SHOPCORE_AUTH_SECRET", ""), "HMAC secret for store tokens")
	cmd.Flags().StringVar(&authIssuer, "auth-issuer", envOr("SHOPCORE_AUTH_ISSUER", ""), "expected token issuer (empty skips the check)")
	cmd.Flags().DurationVar(&cacheTTL, "cache-ttl", 30*time.Second, "subscription cache TTL")

	return cmd
}

func runServerStart(cmd *cobra.Command, args []string) error {
	if authSecret == "" {
		return fmt.Errorf("an auth secret is required (--auth-secret or SHOPCORE_AUTH_SECRET)")
	}

	logger := logging.New(logging.ConfigFromEnv())
	logger.SetDefault()

	addr := fmt.Sprintf("%s:%d", serverHost, serverPort)

	// Database
	dbCfg := database.DefaultConfig()
	dbCfg.Driver = database.Driver(dbDriver)
	dbCfg.DSN = dbDSN

	db, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.Ping(db); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	sqlRepo := repository.NewSQLRepository(db, dbDriver)
	if err := sqlRepo.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	// Cache
	var store cache.Cache
	if redisAddr != "" {
		store = cache.NewRedisCache(cache.RedisConfig{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		})
	} else {
		store = cache.NewMemoryCache()
	}
	repo := repository.NewCachedRepository(sqlRepo, store, cacheTTL)

	// Metrics
	metricsRegistry := metrics.NewRegistry(metrics.DefaultConfig())

	// Delivery engine and retry scheduler
	var (
		scheduler      delivery.Scheduler
		timerScheduler *delivery.TimerScheduler
		asynqClient    *asynq.Client
		asynqServer    *asynq.Server
	)
	if redisAddr != "" {
		redisOpt := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword, DB: redisDB}
		asynqClient = asynq.NewClient(redisOpt)
		scheduler = delivery.NewAsynqScheduler(asynqClient)
		asynqServer = asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 10,
			Queues:      map[string]int{delivery.QueueWebhooks: 1},
		})
	} else {
		timerScheduler = delivery.NewTimerScheduler()
		scheduler = timerScheduler
	}

	engine := delivery.NewEngine(repo, scheduler,
		delivery.WithLogger(logger.WithComponent("delivery")),
		delivery.WithMetrics(metricsRegistry),
	)
	if timerScheduler != nil {
		timerScheduler.Bind(func(ctx context.Context, task delivery.Task) {
			engine.Deliver(ctx, task)
		})
	}

	if asynqServer != nil {
		mux := asynq.NewServeMux()
		mux.HandleFunc(delivery.TaskTypeDeliver, delivery.NewDeliveryTaskHandler(engine))
		go func() {
			if err := asynqServer.Run(mux); err != nil {
				logger.Error("retry worker stopped", "error", err.Error())
			}
		}()
	}

	// Event fan-out
	disp := dispatcher.NewDispatcher(repo, engine,
		dispatcher.WithLogger(logger.WithComponent("dispatcher")),
	)

	eventBus := bus.NewEventBus(logger.WithComponent("bus"))
	subscriber.NewWebhookSubscriber(disp,
		subscriber.WithLogger(logger.WithComponent("webhook-subscriber")),
	).RegisterWithBus(eventBus)
	notification.NewService(notification.NewMemoryStore(),
		notification.WithLogger(logger.WithComponent("notifications")),
	).RegisterWithBus(eventBus)

	// Management API
	svc := service.NewService(repo, engine,
		service.WithLogger(logger.WithComponent("service")),
	)

	authMiddleware := auth.NewMiddleware(auth.NewValidatorWithLogger(
		auth.Config{Issuer: authIssuer, Secret: authSecret},
		logger.WithComponent("auth").Logger,
	))

	healthRegistry := health.NewRegistry(Version)
	healthRegistry.Register(health.NewDatabaseChecker(db))
	healthRegistry.Register(health.NewCacheChecker(store))

	router := api.NewRouter(api.RouterConfig{
		WebhookHandler: webhooks.NewHandler(svc),
		HealthHandler:  health.NewHandler(healthRegistry),
		Auth:           authMiddleware,
		Logger:         logger,
		Metrics:        metricsRegistry,
	})

	server := api.NewServer(router, addr)

	// Teardown order: stop accepting requests, drain workers and the bus,
	// then close storage.
	manager := shutdown.NewManager(30*time.Second, logger.Logger)
	manager.Register("http-server", 30, func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})
	if asynqServer != nil {
		manager.Register("retry-worker", 20, func(context.Context) error {
			asynqServer.Shutdown()
			return nil
		})
		manager.Register("asynq-client", 20, func(context.Context) error {
			return asynqClient.Close()
		})
	}
	if timerScheduler != nil {
		manager.Register("retry-timers", 20, func(context.Context) error {
			timerScheduler.Stop()
			return nil
		})
	}
	manager.Register("event-bus", 20, func(context.Context) error {
		eventBus.Close()
		return nil
	})
	manager.Register("cache", 10, func(context.Context) error {
		return store.Close()
	})
	manager.Register("database", 10, func(context.Context) error {
		return db.Close()
	})
	done := manager.ListenForSignals()

	logger.Info("server listening",
		"addr", addr,
		"dbDriver", dbDriver,
		"durableRetries", redisAddr != "",
	)
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	fmt.Fprintln(cmd.OutOrStdout(), "Server stopped")
	return nil
}

// newServerMigrateCmd creates the server migrate subcommand.
func newServerMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Example: `  shopcore server migrate --db-driver sqlite --db-dsn shopcore.db
  shopcore server migrate --db-dsn "host=localhost dbname=shopcore sslmode=disable"`,
		RunE: runServerMigrate,
	}

	addDatabaseFlags(cmd)
	return cmd
}

func runServerMigrate(cmd *cobra.Command, args []string) error {
	dbCfg := database.DefaultConfig()
	dbCfg.Driver = database.Driver(dbDriver)
	dbCfg.DSN = dbDSN

	db, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	repo := repository.NewSQLRepository(db, dbDriver)
	if err := repo.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
	return nil
}
