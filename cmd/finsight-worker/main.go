package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/cli"
	applog "finsight/internal/log"
	"finsight/internal/sheets"
	gsheet "finsight/internal/sheets/google"
	"finsight/internal/sheets/memory"
	"finsight/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting finsight-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Without a spreadsheet, rows are exported to memory so the queue still
	// drains and sync state stays accurate in development.
	var exporter sheets.TransactionExporter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsCfg := gsheet.ConfigFromEnv()
		sheetsCfg.SpreadsheetID = cfg.GoogleSpreadsheetID
		sheetsCfg.SheetName = cfg.GoogleSheetName
		client, err := gsheet.New(context.Background(), sheetsCfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
	} else {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exporting to memory")
		exporter = memory.New()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, exporter, cfg.SyncBatchSize, cfg.SyncConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup sync check")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	go func() {
		if err := syncWorker.Run(ctx, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Periodic sync stopped", applog.FieldError, err)
		}
	}()

	err = amqpClient.ConsumeTransactionSync(ctx, syncWorker.HandleSyncMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
