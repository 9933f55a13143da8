package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Process signals
	"os/signal" // Signal handling
	"syscall"   // SIGTERM
	"time"      // Shutdown bound

	"stock_simulator/internal/api"     // Custom package for API handlers
	"stock_simulator/internal/config"  // Custom package for configuration
	"stock_simulator/internal/db"      // Database connection
	"stock_simulator/internal/notify"  // Purchase emails
	"stock_simulator/internal/quote"   // Finnhub client
	"stock_simulator/internal/service" // Trading rules
	"stock_simulator/internal/store"   // Account store
	"stock_simulator/internal/utils"   // Logger and locks

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if closer := utils.SetupLogger(utils.LogOptions{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}); closer != nil {
		defer closer.Close()
	}

	// Refuse to start with incomplete configuration
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	// Connect to the database
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	defer redisClient.Close()

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Outbound collaborators
	quotes := quote.NewFinnhubClient(cfg.FinnhubAPIKey,
		quote.WithBaseURL(cfg.QuoteBaseURL),
		quote.WithTimeout(cfg.QuoteTimeout),
		quote.WithRateLimit(cfg.QuoteRatePerSec, 5),
	)
	mailer, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.MailHost,
		Port:     cfg.MailPort,
		Username: cfg.MailUser,
		Password: cfg.MailPassword,
		Timeout:  cfg.MailTimeout,
	})
	if err != nil {
		logrus.Fatalf("failed to configure mail: %v", err)
	}

	accounts := store.NewAccountStore(gdb)
	svc, err := service.NewTradingService(accounts, quotes, mailer,
		utils.NewRedisLocker(redisClient, cfg.LockTTL, cfg.LockWait))
	if err != nil {
		logrus.Fatalf("failed to build trading service: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.NewRouter(api.RouterDeps{
		Service:  svc,
		Accounts: accounts,
		Redis:    redisClient,
		Session: api.SessionConfig{
			Secret: cfg.SecretKey,  // Token signing key
			TTL:    cfg.SessionTTL, // Session lifetime
			Secure: cfg.IsProd,     // HTTPS-only cookie in production
		},
		TrustedProxies: []string{"127.0.0.1"},
	})
	if err != nil {
		logrus.Fatalf("failed to set up routes: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.Infof("Server running on %s", cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
	svc.Wait() // Let queued purchase emails finish
}
