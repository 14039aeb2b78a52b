package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"walletbook/internal/config"
	"walletbook/internal/events"
	"walletbook/internal/export"
	exportgoogle "walletbook/internal/export/google"
	exportmemory "walletbook/internal/export/memory"
	applog "walletbook/internal/log"
	"walletbook/internal/storage"
	"walletbook/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{Level: logLevel(cfg.LogLevel), Component: "walletbook-worker"})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required, the worker has nothing to consume without it")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var (
		appender export.TransactionAppender
		remover  export.TransactionRemover
	)
	switch cfg.MirrorBackend {
	case "sheets":
		cli, err := exportgoogle.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender, remover = cli, cli
		logger.Info("mirroring to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	default:
		store := exportmemory.New()
		appender, remover = store, store
		logger.Info("mirroring to in-process memory store")
	}

	eventsClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer eventsClient.Close()

	mirror := worker.NewMirrorWorker(repo, appender, remover)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("consuming mutation feed", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		for {
			err := eventsClient.Consume(gctx, mirror.HandleMutation)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error("consume failed, retrying", "error", err, "retry_in", cfg.MirrorRetry)
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(cfg.MirrorRetry):
			}
		}
	})

	g.Go(func() error {
		// Periodic reconciliation against storage, for mutations whose
		// messages never arrived.
		if err := mirror.CatchUp(gctx); err != nil {
			logger.Error("catch-up pass failed", "error", err)
		}
		ticker := time.NewTicker(cfg.MirrorSync)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := mirror.CatchUp(gctx); err != nil {
					logger.Error("catch-up pass failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
