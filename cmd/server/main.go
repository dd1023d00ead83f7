package main

import (
	"context"   // context package is needed for Redis operations
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Hostname for the consumer name
	"os/signal" // Graceful shutdown
	"strconv"   // String conversion
	"syscall"   // Termination signals
	"time"      // Timeouts

	"task_wallet/internal/api"             // Custom package for API handlers
	"task_wallet/internal/catalog"         // Task catalog
	"task_wallet/internal/config"          // Custom package for configuration
	"task_wallet/internal/db"              // Database connection
	"task_wallet/internal/inbox"           // Messages
	"task_wallet/internal/ledger"          // Wallet balances
	"task_wallet/internal/middleware"      // Custom package for middleware
	"task_wallet/internal/notify"          // Notifications
	"task_wallet/internal/progress"        // Task progress
	"task_wallet/internal/review"          // Admin review
	"task_wallet/internal/store/gormstore" // GORM repositories
	"task_wallet/internal/utils"           // Cache and locks
	"task_wallet/internal/withdraw"        // Withdrawal flow

	"github.com/gin-contrib/cors"  // CORS middleware
	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
	setupLogger(cfg)

	// Connect to the database
	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr, // Redis server address
		Password: cfg.Redis.Pass, // Redis password
		DB:       cfg.Redis.DB,   // Redis database number
	})

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Notifications: producers enqueue, the worker mails
	notifier := notify.NewStreamNotifier(redisClient, cfg.NotifyStream)
	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPEnabled() {
		mailer = &notify.SMTPMailer{
			Host:     cfg.SMTP.Host,
			Port:     strconv.Itoa(cfg.SMTP.Port),
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Pass,
			From:     cfg.SMTP.From,
		}
	}
	hostname, _ := os.Hostname()
	worker := notify.NewWorker(redisClient, cfg.NotifyStream, "mailer-"+hostname, mailer)
	go worker.Start(ctx)

	// Core services
	st := gormstore.New(conn)
	cache := utils.NewCache(redisClient)
	fanout := notify.NewFanout(st, notifier)
	cat := catalog.New(st, cache, fanout)
	led := ledger.New(st, ledger.Rules{
		MinBalance:    cfg.Withdraw.MinBalance,
		MinAccountAge: cfg.Withdraw.MinAccountAge,
	})
	wd := withdraw.New(st, led, fanout, utils.NewLocker(redisClient), withdraw.Config{
		TaxRate:     cfg.Withdraw.TaxRate,
		ServiceRate: cfg.Withdraw.ServiceRate,
		IntentTTL:   cfg.Withdraw.IntentTTL,
	})
	if _, err := wd.StartSweeper(ctx, cfg.Withdraw.SweepInterval); err != nil {
		logrus.Fatalf("failed to start withdrawal sweeper: %v", err)
	}

	deps := &api.Deps{
		Store:     st,
		Cache:     cache,
		Fanout:    fanout,
		Catalog:   cat,
		Progress:  progress.NewEngine(st, cat, fanout),
		Ledger:    led,
		Withdraw:  wd,
		Review:    review.New(st, led, fanout),
		Inbox:     inbox.New(st, fanout),
		JWTSecret: cfg.JWT.Secret,
		JWTTTL:    cfg.JWT.TTL,
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.New() // Gin router instance
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	api.Register(r, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	notifier.Wait() // Flush notifications still being enqueued
	if err := redisClient.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close Redis client")
	}
}

// setupLogger configures logrus from the environment
func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
