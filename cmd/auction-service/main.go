package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-marketplace/internal/api/handlers"
	"auction-marketplace/internal/config"
	"auction-marketplace/internal/infrastructure/leader"
	"auction-marketplace/internal/infrastructure/mysql"
	"auction-marketplace/internal/infrastructure/payment"
	"auction-marketplace/internal/infrastructure/redis"
	"auction-marketplace/internal/services"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Fatal("Failed to load config", "error", err)
	}

	log := logger.NewWithLevel(cfg.Log.Level).With("service", "auction-service", "instance_id", cfg.Instance.ID)
	log.Info("Starting auction service", "config", cfg.GetConfigString())

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Initialize MySQL
	db, err := utils.InitializeMysql(ctx, cfg.MySQL)
	if err != nil {
		log.Fatal("Failed to connect to MySQL", "error", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			log.Error("Failed to close MySQL connection", "error", err)
		}
	}(db)
	log.Info("Connected to MySQL")

	isolation, err := mysql.ParseIsolationLevel(cfg.MySQL.IsolationLevel)
	if err != nil {
		log.Fatal("Invalid isolation level", "error", err)
	}
	store := mysql.NewStore(db, isolation)

	payments, err := payment.NewGateway(cfg.Payment, log)
	if err != nil {
		log.Fatal("Failed to configure payment gateway", "error", err)
	}

	eventPublisher := redis.NewEventPublisher(rdb, cfg.Notifications.Channel)
	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL, log)

	split := services.ProfitSplit{
		Manager: decimal.NewFromFloat(cfg.Settlement.ManagerSplit),
		Expert:  decimal.NewFromFloat(cfg.Settlement.ExpertSplit),
	}
	settlement := services.NewSettlementProcessor(store, payments, eventPublisher, split, log)
	scheduler := services.NewAuctionScheduler(store, settlement, leaderElection, cfg.Instance.ID,
		cfg.Scheduler.Interval, log)

	listingHandler := handlers.NewListingHandler(
		services.NewListingService(store, scheduler, eventPublisher, log),
		services.NewBiddingEngine(store, log),
		settlement,
		services.NewOutbidScanner(store, eventPublisher, log),
		log,
	)
	e := handlers.NewRouter(listingHandler, log)

	// Background services live until shutdown
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	go services.CampaignForLeadership(bgCtx, leaderElection, cfg.Instance.ID, cfg.Leader.TTL/2, log)

	if err := scheduler.Start(bgCtx); err != nil {
		log.Fatal("Failed to start scheduler", "error", err)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting auction server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	scheduler.Stop()
	stopBackground()

	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}

	log.Info("Auction service stopped")
}
