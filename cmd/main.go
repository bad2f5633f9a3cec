package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/gw-banking/internal/handlers"
	"github.com/sbilibin2017/gw-banking/internal/jwt"
	"github.com/sbilibin2017/gw-banking/internal/lockers"
	"github.com/sbilibin2017/gw-banking/internal/logger"
	"github.com/sbilibin2017/gw-banking/internal/middlewares"
	"github.com/sbilibin2017/gw-banking/internal/migrations"
	"github.com/sbilibin2017/gw-banking/internal/publishers"
	"github.com/sbilibin2017/gw-banking/internal/repositories"
	"github.com/sbilibin2017/gw-banking/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// Lock backends
const (
	lockBackendRedis = "redis"
	lockBackendLocal = "local"
)

// config holds every setting read from the environment.
type config struct {
	AppHost  string
	AppPort  string
	LogLevel string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int
	PGMigrate      bool

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	LockBackend string
	LockTimeout time.Duration
	LockExpiry  time.Duration

	KafkaBrokers        []string
	KafkaTopic          string
	KafkaPublishTimeout time.Duration

	JWTSecretKey string
}

// @title gw-banking API
// @version 1.0.0
// @description Money movement service: deposits, withdrawals, transfers and transaction history
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service. Version: %s, Commit: %s, Build: %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns
// the application, database, Redis, lock, Kafka, logging, and JWT configuration.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	if cfg.PGPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}
	if cfg.PGMigrate, err = strconv.ParseBool(getEnv("POSTGRES_MIGRATE", "true")); err != nil {
		err = fmt.Errorf("POSTGRES_MIGRATE: %w", err)
		return
	}

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	if cfg.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}

	// Lock config
	cfg.LockBackend = getEnv("LOCK_BACKEND", lockBackendRedis)
	if cfg.LockBackend != lockBackendRedis && cfg.LockBackend != lockBackendLocal {
		err = fmt.Errorf("LOCK_BACKEND: unknown backend %q", cfg.LockBackend)
		return
	}
	var lockTimeoutMS, lockExpirySec int
	if lockTimeoutMS, err = getInt("LOCK_TIMEOUT_MS", "5000"); err != nil {
		return
	}
	if lockExpirySec, err = getInt("LOCK_EXPIRY_SECOND", "10"); err != nil {
		return
	}
	cfg.LockTimeout = time.Duration(lockTimeoutMS) * time.Millisecond
	cfg.LockExpiry = time.Duration(lockExpirySec) * time.Second

	// Kafka config
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "transactions")
	var publishTimeoutMS int
	if publishTimeoutMS, err = getInt("KAFKA_PUBLISH_TIMEOUT_MS", "2000"); err != nil {
		return
	}
	cfg.KafkaPublishTimeout = time.Duration(publishTimeoutMS) * time.Millisecond

	// JWT config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")

	return
}

// run initializes the logger, database, Redis, Kafka, and HTTP server.
// It sets up routes, applies middleware, and handles graceful shutdown.
func run(ctx context.Context, cfg config) error {
	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	log := logger.Log
	defer log.Sync()
	log.Infof("Logger initialized with level %s", cfg.LogLevel)

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDB)
	log.Infof("Connecting to PostgreSQL at %s:%d/%s", cfg.PGHost, cfg.PGPort, cfg.PGDB)

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if cfg.PGMigrate {
		if err := migrations.Up(db.DB); err != nil {
			return err
		}
		log.Info("Database schema is up to date")
	}

	// Account locks
	var locker services.Locker
	switch cfg.LockBackend {
	case lockBackendLocal:
		locker = lockers.NewLocalLocker(cfg.LockTimeout)
		log.Warn("Using in-process account locks, run a single instance only")
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("Redis connection error: %w", err)
		}
		defer rdb.Close()
		locker = lockers.NewRedisLocker(rdb, cfg.LockTimeout, cfg.LockExpiry)
	}

	// Kafka publisher
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	publisher := publishers.NewTransactionPublisher(writer, publishers.DefaultBreakerSettings())
	defer publisher.Close()

	// Initialize JWT service
	tokens := jwt.New(jwt.WithSecretKey(cfg.JWTSecretKey))

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db, repositories.GetTxFromContext)
	transactionRepo := repositories.NewTransactionRepository(db, repositories.GetTxFromContext)
	txManager := repositories.NewTxManager(db)

	// Initialize services
	transactionService := services.NewTransactionService(accountRepo, transactionRepo, locker, txManager, publisher,
		services.WithPublishTimeout(cfg.KafkaPublishTimeout),
	)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", handlers.NewHealthHandler(db, publisher))
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL(fmt.Sprintf("http://%s:%s/api/v1/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
		))

		// Protected routes with JWT middleware
		r.Group(func(r chi.Router) {
			r.Use(middlewares.AuthMiddleware(tokens))
			r.Post("/transactions/deposit", handlers.NewDepositHandler(transactionService))
			r.Post("/transactions/withdraw", handlers.NewWithdrawHandler(transactionService))
			r.Post("/transactions/transfer", handlers.NewTransferHandler(transactionService))
			r.Get("/transactions/{accountNumber}", handlers.NewHistoryHandler(transactionService))
			r.Get("/accounts/{accountNumber}/balance", handlers.NewBalanceHandler(transactionService))
		})
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		log.Infof("HTTP server listening on %s:%s", cfg.AppHost, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	// In-flight requests finish and release their locks before the stores close.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	}

	log.Info("HTTP server stopped gracefully")
	return nil
}
