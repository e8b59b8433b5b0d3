package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/cache"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/sheets"
	gsheet "finboard/internal/sheets/google"
	"finboard/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting finboard-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	backend := cli.InitStore(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Store close error", applog.FieldError, err)
		}
	}()

	var journal sheets.JournalWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		journal = client
		logger.Info("Google Sheets journal enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets journal disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	budgets := services.NewBudgetService(backend.Store, logger.WithComponent(applog.ComponentBudget))
	ledgerWorker := worker.NewLedgerWorker(journal, budgets, logger, cfg.Location())

	janitor := cache.NewManager(func(removed int) {
		logger.Debug("Forgot alerts of ended budget periods", "count", removed)
	})
	janitor.Register(ledgerWorker)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, ledgerWorker.HandleLedgerEvent)
	})
	g.Go(func() error {
		return janitor.Run(gctx, time.Hour)
	})
	// Periodic store health check; failures are logged only.
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(gctx, 5*time.Second)
				err := backend.Store.Ping(pingCtx)
				cancel()
				if err != nil {
					logger.Warn("Store health check failed", applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeDatabase)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	if ctx.Err() == nil {
		logger.Error("Ledger consumer stopped unexpectedly")
		os.Exit(1)
	}
	<-done
	logger.Info("Worker stopped gracefully")
}
