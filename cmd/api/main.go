package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-warehouse-service/config"
	"github.com/fekuna/omnipos-warehouse-service/internal/allocation"
	"github.com/fekuna/omnipos-warehouse-service/internal/document"
	"github.com/fekuna/omnipos-warehouse-service/internal/httpapi"
	"github.com/fekuna/omnipos-warehouse-service/internal/ledger"
	"github.com/fekuna/omnipos-warehouse-service/internal/sequence"
	"github.com/fekuna/omnipos-warehouse-service/pkg/broker"
	"github.com/fekuna/omnipos-warehouse-service/pkg/cache"
	"github.com/fekuna/omnipos-warehouse-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-warehouse-service/pkg/logger"

	catalogRepoPkg "github.com/fekuna/omnipos-warehouse-service/internal/catalog/repository"

	ledgerH "github.com/fekuna/omnipos-warehouse-service/internal/ledger/handler"
	ledgerRepoPkg "github.com/fekuna/omnipos-warehouse-service/internal/ledger/repository"
	ledgerUCPkg "github.com/fekuna/omnipos-warehouse-service/internal/ledger/usecase"

	seqRepoPkg "github.com/fekuna/omnipos-warehouse-service/internal/sequence/repository"

	wfH "github.com/fekuna/omnipos-warehouse-service/internal/workflow/handler"
	wfRepoPkg "github.com/fekuna/omnipos-warehouse-service/internal/workflow/repository"
	wfUCPkg "github.com/fekuna/omnipos-warehouse-service/internal/workflow/usecase"

	ffH "github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/handler"
	ffListenerPkg "github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/listener"
	ffRepoPkg "github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/repository"
	ffUCPkg "github.com/fekuna/omnipos-warehouse-service/internal/fulfillment/usecase"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize Repositories
	txm := postgres.NewTxManager(db)
	catalogRepo := catalogRepoPkg.NewPGRepository(db)
	ledgerRepo := ledgerRepoPkg.NewPGRepository(db)
	seqRepo := seqRepoPkg.NewPGRepository(db)
	wfRepo := wfRepoPkg.NewPGRepository(db)
	ffRepo := ffRepoPkg.NewPGRepository(db)

	// 7. Initialize Domain Services
	store := ledger.NewStore(ledgerRepo)
	engine := allocation.NewEngine(ledgerRepo)
	sequences := sequence.NewGenerator(seqRepo, sequence.TemplateFormatter{})
	renderer := document.NoopRenderer{}

	// 8. Initialize UseCases
	ledgerUC := ledgerUCPkg.NewLedgerUseCase(ledgerRepo, store, catalogRepo, txm, appLogger)
	wfUC := wfUCPkg.NewWorkflowUseCase(wfRepo, ledgerRepo, store, catalogRepo, sequences, renderer, txm, appLogger)
	ffUC := ffUCPkg.NewFulfillmentUseCase(ffRepo, store, engine, catalogRepo, sequences, renderer, redisClient, txm, appLogger)

	// 9. Initialize Listeners
	orderListener := ffListenerPkg.NewOrderListener(kafkaConsumer, ffUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := orderListener.Run(ctx); err != nil {
			appLogger.Error("order listener stopped", zap.Error(err))
		}
	}()

	// 10. Initialize Handlers and Router
	if !logConfig.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.LoggingMiddleware(appLogger))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1")
	api.Use(httpapi.TenantMiddleware())
	ledgerH.NewLedgerHandler(ledgerUC, appLogger).RegisterRoutes(api)
	wfH.NewWorkflowHandler(wfUC, appLogger).RegisterRoutes(api)
	ffH.NewFulfillmentHandler(ffUC, appLogger).RegisterRoutes(api)

	// 11. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	server := &http.Server{
		Addr:    port,
		Handler: router,
	}

	appLogger.Info("Starting HTTP server", zap.String("port", port))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
