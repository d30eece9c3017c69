package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reminder-bot/internal/api"
	"reminder-bot/internal/config"
	"reminder-bot/internal/db"
	"reminder-bot/internal/discord"
	"reminder-bot/internal/logging"
	"reminder-bot/internal/prefs"
	"reminder-bot/internal/redis"
	"reminder-bot/internal/reminder"
	"reminder-bot/internal/render"
	"reminder-bot/internal/scheduler"
	"reminder-bot/internal/storage"
	"reminder-bot/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_service",
		"service", "reminder-bot",
		"http_addr", cfg.HTTPAddr,
		"poll_interval", cfg.PollInterval.String(),
		"bot_token", logging.MaskToken(cfg.BotToken),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL (with retry)
	var dbConn *db.DB
	for i := 0; i < 5; i++ {
		dbConn, err = db.New(ctx, cfg.DBDSN)
		if err == nil {
			break
		}
		logger.Warn("db_connect_retry", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := dbConn.EnsureSchema(ctx); err != nil {
		logger.Error("schema_bootstrap_failed", "error", err)
		os.Exit(1)
	}

	// Redis backs the anchor-message cache and delivery counters. The core
	// loop works without it, so a connect failure degrades instead of
	// aborting startup.
	redisClient, err := redis.New(cfg.RedisDSN)
	if err != nil {
		logger.Warn("redis_unavailable", "error", err)
		redisClient = nil
	}

	// Delivery audit log: S3/R2 when configured, local simulator otherwise.
	var auditLog storage.DeliveryLog
	if cfg.AuditEndpoint != "" && cfg.AuditBucket != "" {
		var keys map[string]string
		if err := json.Unmarshal([]byte(cfg.AuditKeysRaw), &keys); err != nil {
			logger.Error("invalid_audit_keys", "error", err)
			os.Exit(1)
		}
		s3Log, err := storage.NewS3Log(storage.S3Config{
			Endpoint:        cfg.AuditEndpoint,
			AccessKeyID:     keys["access_key_id"],
			SecretAccessKey: keys["secret_access_key"],
			Bucket:          cfg.AuditBucket,
			Region:          "auto",
		})
		if err != nil {
			logger.Error("audit_log_init_failed", "error", err)
			os.Exit(1)
		}
		auditLog = s3Log
		logger.Info("using_s3_audit_log", "endpoint", cfg.AuditEndpoint)
	} else {
		auditLog = storage.NewSimulatorLog(cfg.AuditBucket)
		logger.Info("using_simulator_audit_log")
	}

	users := store.NewUserStore(dbConn)
	reminders := store.NewReminderStore(dbConn)
	svc := reminder.NewService(logger, users, reminders)

	discordClient := discord.NewClient(logger, cfg.BotToken)

	var cache render.Cache
	var counters scheduler.Counter
	if redisClient != nil {
		cache = redisClient
		counters = redisClient
	}

	renderer := render.New(logger, discordClient, cache, cfg.PreviewLength, cfg.DMPreviewLength)
	prefsResolver := prefs.NewResolver(logger, users)

	engine := scheduler.New(logger, svc, discordClient, renderer, prefsResolver, auditLog, counters, scheduler.Options{
		Interval:   cfg.PollInterval,
		MaxPerTick: cfg.MaxPerTick,
	})
	go engine.Run(ctx)

	server := api.NewServer(logger, svc, dbConn, redisClient, cfg)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "error", err)
			cancel()
		}
	}()

	logger.Info("service_started")

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}

	logger.Info("shutting_down")

	// Stop taking HTTP traffic, then let the delivery loop finish its
	// in-flight tick before closing connections underneath it.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", "error", err)
	}

	cancel()
	time.Sleep(500 * time.Millisecond)

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis_close_error", "error", err)
		}
	}
	dbConn.Close()

	logger.Info("service_stopped")
}
