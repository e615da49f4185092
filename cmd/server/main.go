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

	"fleet-service/config"
	"fleet-service/internal/api"
	"fleet-service/internal/broker"
	"fleet-service/internal/models"
	"fleet-service/internal/redisclient"
	"fleet-service/internal/service"
	"fleet-service/internal/store"
	"fleet-service/internal/util"
	"fleet-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cycleLockKey = "fleet:replenishment:cycle"

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting fleet service")

	tp, err := util.InitTracer(util.TracerConfig{
		ServiceName:    "fleet-service",
		ServiceVersion: cfg.Observ.ServiceVersion,
		Environment:    cfg.Server.Env,
		JaegerEndpoint: cfg.Observ.JaegerEndpoint,
		SampleRatio:    cfg.Observ.TraceSampleRatio,
	})
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

	ctx := context.Background()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Database connected")

	if err := seedPolicy(ctx, db, cfg.Replenishment); err != nil {
		logger.Fatal("Failed to seed replenishment policy", zap.Error(err))
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

	eventPublisher := broker.NewEventPublisher(producer)

	engine, err := service.NewReplenishmentEngine(ctx, db, db, db, db, eventPublisher,
		service.WithCycleLocker(redisclient.NewCycleLock(redisClient, cycleLockKey, cfg.Replenishment.CycleLockTTL)))
	if err != nil {
		logger.Fatal("Replenishment engine misconfigured", zap.Error(err))
	}

	orderService := service.NewOrderService(db, db, eventPublisher)
	maintenanceService := service.NewMaintenanceService(db, db, db, eventPublisher)
	vehicleService := service.NewVehicleService(db, db)
	inventoryService := service.NewInventoryService(db, db)
	userService := service.NewUserService(db)
	fulfillmentService := service.NewFulfillmentService(db, db, engine)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	replenishmentWorker, err := worker.NewReplenishmentWorker(engine, cfg.Replenishment.Interval, cfg.Replenishment.InitialDelay)
	if err != nil {
		logger.Fatal("Replenishment worker misconfigured", zap.Error(err))
	}
	go func() {
		if err := replenishmentWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Replenishment worker error", zap.Error(err))
		}
	}()

	commandConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCommands, cfg.Kafka.ConsumerGroup)
	commandWorker := worker.NewCommandWorker(commandConsumer, fulfillmentService)
	go func() {
		if err := commandWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Command worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Services{
		Orders:      orderService,
		Maintenance: maintenanceService,
		Vehicles:    vehicleService,
		Inventory:   inventoryService,
		Users:       userService,
		Engine:      engine,
	}, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
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

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := commandWorker.Stop(); err != nil {
		logger.Warn("Error stopping command worker", zap.Error(err))
	}

	// a cycle started before shutdown still holds store connections
	cycleCtx, cycleCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cycleCancel()
	if err := engine.Wait(cycleCtx); err != nil {
		logger.Warn("Replenishment cycle still running at exit", zap.Error(err))
	}

	logger.Info("Server exited")
}

// seedPolicy writes the configured policy when both seed values are set.
// Otherwise whatever is already stored is left alone.
func seedPolicy(ctx context.Context, db *store.Store, cfg config.ReplenishmentConfig) error {
	if cfg.SeedIncrement == 0 || cfg.SeedBudget == "" {
		return nil
	}

	budget, err := decimal.NewFromString(cfg.SeedBudget)
	if err != nil {
		return fmt.Errorf("parse POLICY_BUDGET_CEILING %q: %w", cfg.SeedBudget, err)
	}

	policy := &models.ReplenishmentPolicy{DefaultIncrement: cfg.SeedIncrement, BudgetCeiling: budget}
	if err := policy.Validate(); err != nil {
		return err
	}
	return db.SavePolicy(ctx, policy)
}
