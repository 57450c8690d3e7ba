package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"balmar-shop/config"
	"balmar-shop/internal/api"
	"balmar-shop/internal/broker"
	"balmar-shop/internal/redisclient"
	"balmar-shop/internal/service"
	"balmar-shop/internal/store"
	"balmar-shop/internal/util"
	"balmar-shop/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting marketplace service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
		logger.Info("Database schema applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	transactionProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTransaction)
	defer transactionProducer.Close()
	accountProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAccount)
	defer accountProducer.Close()
	logger.Info("Kafka producers initialized",
		zap.String("transaction_topic", cfg.Kafka.TopicTransaction),
		zap.String("account_topic", cfg.Kafka.TopicAccount),
	)

	eventPublisher := broker.NewEventPublisher(transactionProducer, accountProducer)

	pricing := service.Pricing{
		Fees:           cfg.FeePolicy(),
		Bypass:         cfg.BypassPolicy(),
		IdempotencyTTL: cfg.Business.IdempotencyTTL,
	}
	// The in-flight lock must outlive a full verification attempt.
	kycLockTTL := 2 * cfg.Business.KYCTimeout

	messagingService := service.NewMessagingService(db, db, redisClient)
	userService := service.NewUserService(db, db, redisClient, eventPublisher, kycLockTTL)
	productService := service.NewProductService(db, db, eventPublisher)
	transactionService := service.NewTransactionService(db, db, db, messagingService, redisClient, eventPublisher, pricing)
	kycService := service.NewKYCService(db, db, redisClient, eventPublisher,
		service.SimulatedVerifier{Delay: cfg.Business.KYCDelay}, cfg.Business.KYCTimeout)
	notificationService := service.NewNotificationService(db, db, db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	kycConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAccount, cfg.Kafka.ConsumerGroup)
	kycWorker := worker.NewKYCWorker(kycConsumer, kycService)
	go func() {
		if err := kycWorker.Start(workerCtx); err != nil {
			logger.Error("KYC worker error", zap.Error(err))
		}
	}()

	notificationWorker := worker.NewNotificationWorker(notificationService,
		broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTransaction, cfg.Kafka.NotificationsGroup),
		broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAccount, cfg.Kafka.NotificationsGroup),
	)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			logger.Error("Notification worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.AccessLog())
	handler := api.NewHandler(api.Services{
		Users:         userService,
		Products:      productService,
		Transactions:  transactionService,
		Messaging:     messagingService,
		Conversations: redisClient,
	}, api.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		TokenTTL:       cfg.Auth.TokenTTL,
		AdminAPIKey:    cfg.Auth.AdminAPIKey,
		AllowedOrigins: cfg.Auth.AllowedOrigins,
		Readiness: map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := kycWorker.Stop(); err != nil {
		logger.Warn("Error stopping KYC worker", zap.Error(err))
	}
	if err := notificationWorker.Stop(); err != nil {
		logger.Warn("Error stopping notification worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
