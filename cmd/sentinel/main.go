package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"RateSentinel/internal/api"
	"RateSentinel/internal/cache"
	"RateSentinel/internal/collector"
	"RateSentinel/internal/config"
	"RateSentinel/internal/logger"
	"RateSentinel/internal/metrics"
	"RateSentinel/internal/notifier"
	"RateSentinel/internal/rates"
	"RateSentinel/internal/recorder"
	"RateSentinel/internal/scheduler"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fatal("load .env", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}
	if _, err := logger.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format); err != nil {
		fatal("init logger", err)
	}
	slog.Info("RateSentinel starting", "config", cfgPath)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Init sources
	client := collector.NewHTTPClient(cfg.Proxy, cfg.Sources.Timeout)
	sources := []collector.RateSource{
		collector.NewMonobankFetcher(cfg.Sources.MonobankURL, client),
		collector.NewPrivatBankFetcher(cfg.Sources.PrivatBankURL, client),
	}
	col := collector.NewCollector(sources, cfg.Sources.Timeout, m)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.Driver == "memory" {
		rec = recorder.NewMemoryRecorder()
	} else {
		sr, err := recorder.NewSQLRecorder(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			fatal("init recorder", err)
		}
		rec = sr
	}
	defer rec.Close()

	// Init cache
	var rc cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			slog.Warn("redis unavailable, using in-process cache", "addr", cfg.Cache.RedisAddr, "error", err)
			rc = cache.NewMemoryCache()
		} else {
			rc = redisCache
			defer redisCache.Close()
		}
	case "memory":
		rc = cache.NewMemoryCache()
	}

	// Init notifications
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Proxy, cfg.Telegram.MaxRetries)
	var publisher notifier.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp := notifier.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kp.Close()
		publisher = kp
		slog.Info("kafka publisher enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	dispatcher := notifier.NewDispatcher(tn, rec, publisher, cfg.Notifier.QueueSize, m)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Query surface
	svc := rates.NewService(rec, rc, cfg.Rates.MaxMinutesDifference, m)
	server := api.NewServer(cfg.HTTP.Addr, api.NewHandler(svc), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server.Start()

	// Init scheduler
	refresher := scheduler.NewRefresher(col, rec, rc, dispatcher, m)
	sched := scheduler.NewScheduler(ctx, refresher, svc)
	if err := sched.RegisterRefresh(cfg.Schedule.RefreshCron); err != nil {
		fatal("register cron tasks", err)
	}
	sched.Start()

	// Start Telegram polling
	if cfg.Telegram.BotToken != "" {
		go tn.StartPolling(ctx, rec, sched.HandleCommand)
		slog.Info("telegram polling started", "bot", cfg.Telegram.BotName)
	} else {
		slog.Warn("telegram bot token not set, bot disabled")
	}

	// Optional: run immediately on start
	if cfg.Schedule.RunOnStart {
		slog.Info("RUN_ON_START enabled, executing refresh now")
		go sched.RunNow()
	}

	slog.Info("RateSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	cancel()
	sched.Stop()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Error("notification drain", "error", err)
	}
	slog.Info("RateSentinel stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
