package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redpay/terminal-api/internal/api"
	"github.com/redpay/terminal-api/internal/auth"
	"github.com/redpay/terminal-api/internal/config"
	"github.com/redpay/terminal-api/internal/db"
	"github.com/redpay/terminal-api/internal/events"
	"github.com/redpay/terminal-api/internal/logger"
	"github.com/redpay/terminal-api/internal/metrics"
	"github.com/redpay/terminal-api/internal/notify"
	"github.com/redpay/terminal-api/internal/repository/postgres"
	"github.com/redpay/terminal-api/internal/services"
	"github.com/redpay/terminal-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Migrate {
		if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(4)
	defer wp.Stop()

	notifier := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("telegram notifier", "err", err)
			os.Exit(1)
		}
		notifier = append(notifier, tg)
	}

	var publisher *events.Publisher
	if cfg.KafkaAddr != "" {
		publisher = events.NewPublisher(cfg.KafkaAddr, cfg.KafkaTopic)
		defer publisher.Close()
	}

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	userSvc := services.NewUserService(repos.Users, repos.Profiles, tm)
	profileSvc := services.NewProfileService(repos.Profiles)
	ledger := services.NewLedger(repos.Transactions, repos.Profiles, repos.AuditLogs, notifier, publisher, wp, log)

	metrics.Init()
	r := api.NewRouter(cfg, userSvc, profileSvc, ledger, tm)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
