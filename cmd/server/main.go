package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"portal-server/internal/clients"
	"portal-server/internal/config"
	"portal-server/internal/database"
	"portal-server/internal/handler"
	"portal-server/internal/logger"
	"portal-server/internal/messaging"
	"portal-server/internal/middleware"
	"portal-server/internal/repository"
	"portal-server/internal/service"
	"portal-server/internal/session"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: "json",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	zap.ReplaceGlobals(zapLogger)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.LogLevel))

	// --- External Connections ---
	pgPool, err := setupPostgres(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	zap.L().Info("Connected to PostgreSQL")

	if err := database.ApplyMigrations(pgPool); err != nil {
		zap.L().Fatal("Failed to apply migrations", zap.Error(err))
	}
	zap.L().Info("Database migrations applied")

	redisClient, err := setupRedis(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zap.L().Info("Connected to Redis")

	mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()
	zap.L().Info("Connected to RabbitMQ")

	// --- Dependency Injection ---
	gateway := clients.NewYetiClient(cfg.YetiAPIBase, zapLogger)
	sessionStore := session.NewRedisStore(redisClient, cfg.SessionTTL, zapLogger)
	tokenManager := service.NewTokenManager(gateway, sessionStore, service.NewTimerScheduler(), cfg.RefreshBuffer, zapLogger)
	gateway.SetCredentialSource(tokenManager)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := tokenManager.Restore(startupCtx); err != nil {
		zap.L().Warn("Could not restore persisted session", zap.Error(err))
	}
	startupCancel()

	accountCache := service.NewAccountCache(gateway, cfg.SnapshotTTL, zapLogger)
	accountCache.StartWarmer()

	publisher, err := messaging.NewRabbitMQEmailPublisher(mqConn, zapLogger)
	if err != nil {
		zap.L().Fatal("Failed to create email event publisher", zap.Error(err))
	}

	numberRepo := repository.NewPgNumberRepository(pgPool, zapLogger)
	authorizationRepo := repository.NewPgAuthorizationRepository(pgPool, zapLogger)

	inventorySvc := service.NewInventoryService(numberRepo, publisher, zapLogger)
	importSvc := service.NewImportService(numberRepo, zapLogger)
	authorizationSvc := service.NewAuthorizationService(authorizationRepo, publisher, zapLogger)

	var adminClient *clients.YetiAdminClient
	if cfg.YetiAdminAPIBase != "" {
		adminClient, err = clients.NewYetiAdminClient(cfg.YetiAdminAPIBase, cfg.AdminAuthStrategy, cfg.AdminUser, cfg.AdminPassword, zapLogger)
		if err != nil {
			zap.L().Fatal("Failed to create admin API client", zap.Error(err))
		}
		zap.L().Info("Admin API client enabled", zap.String("strategy", cfg.AdminAuthStrategy))
	}

	// The live feed logs through zerolog; level mirrors the zap config.
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		zlog = zlog.Level(lvl)
	}
	liveManager := handler.NewLiveConnectionManager(zlog)
	liveHandler := handler.NewLiveHandler(liveManager, tokenManager, zlog)
	liveFeed := service.NewLiveCallFeed(gateway, liveManager, cfg.LivePollPeriod, zapLogger)

	feedCtx, feedCancel := context.WithCancel(context.Background())
	go liveFeed.Run(feedCtx)

	// Rate limit counters live in Redis, shared across replicas.
	rateLimitStore := rateli.RedisStore(&rateli.RedisOptions{
		RedisClient: redisClient,
		Rate:        cfg.RateLimitWindow,
		Limit:       uint(cfg.RateLimit),
	})
	rateLimitMiddleware := handler.RateLimitMiddleware(rateLimitStore)

	portalHandler := handler.NewPortalHandler(
		tokenManager,
		gateway,
		accountCache,
		inventorySvc,
		importSvc,
		authorizationSvc,
		adminClient,
		zapLogger,
	)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.ZapLoggingMiddlewareForGin(zapLogger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	portalHandler.RegisterRoutes(router, rateLimitMiddleware)
	liveHandler.RegisterRoutes(router)

	// Prometheus middleware attaches after route registration.
	p.Use(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	liveFeed.Stop()
	feedCancel()
	accountCache.StopWarmer()

	if err := publisher.Close(); err != nil {
		zap.L().Error("Error closing email event publisher", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupPostgres initializes the PostgreSQL connection pool with retry logic.
func setupPostgres(cfg *config.Config) (*pgxpool.Pool, error) {
	zap.L().Debug("Setting up PostgreSQL connection...")
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	var pool *pgxpool.Pool
	var lastErr error
	maxRetries := 50
	retryDelay := 3 * time.Second

	zap.L().Info("Attempting to connect to PostgreSQL", zap.Int("max_retries", maxRetries), zap.Duration("retry_delay", retryDelay))

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err = pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()

		if err != nil {
			lastErr = fmt.Errorf("unable to create postgres connection pool (attempt %d/%d): %w", attempt, maxRetries, err)
			zap.L().Warn("Postgres connection pool creation failed, retrying...",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
			}
			continue
		}

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = pool.Ping(pingCtx)
		pingCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
			return pool, nil
		}

		pool.Close()
		lastErr = fmt.Errorf("unable to ping postgres database (attempt %d/%d): %w", attempt, maxRetries, err)
		zap.L().Warn("Postgres ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxRetries, lastErr)
}

// setupRedis initializes the Redis client with retry logic.
func setupRedis(cfg *config.Config) (*redis.Client, error) {
	zap.L().Debug("Setting up Redis connection...")
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	var client *redis.Client
	var lastErr error
	maxRetries := 50
	retryDelay := 3 * time.Second

	zap.L().Info("Attempting to connect and ping Redis", zap.String("address", redisOpts.Addr), zap.Int("max_retries", maxRetries))

	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		client = redis.NewClient(redisOpts)

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := client.Ping(pingCtx).Result()
		pingCancel()

		if err == nil {
			zap.L().Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return client, nil
		}

		client.Close()
		lastErr = fmt.Errorf("unable to ping redis (attempt %d/%d): %w", attempt, maxRetries, err)
		zap.L().Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}

// connectRabbitMQ dials the broker with retry and logs unexpected
// connection closure.
func connectRabbitMQ(url string, log *zap.Logger) (*amqp091.Connection, error) {
	var conn *amqp091.Connection
	var err error
	maxRetries := 50
	retryDelay := 5 * time.Second

	log.Info("Attempting to connect to RabbitMQ",
		zap.String("url", maskRabbitMQURL(url)),
		zap.Int("max_retries", maxRetries),
	)
	for i := 0; i < maxRetries; i++ {
		attempt := i + 1
		conn, err = amqp091.Dial(url)
		if err == nil {
			log.Info("Successfully connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				notifyClose := make(chan *amqp091.Error)
				conn.NotifyClose(notifyClose)
				if closeErr := <-notifyClose; closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				} else {
					log.Info("RabbitMQ connection closed gracefully.")
				}
			}()
			return conn, nil
		}
		log.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// maskRabbitMQURL hides the credential part of an AMQP URL for logging.
func maskRabbitMQURL(url string) string {
	at := strings.Index(url, "@")
	scheme := strings.Index(url, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***:***" + url[at:]
}
