package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/backend"
	"finsight/internal/cache"
	"finsight/internal/cli"
	"finsight/internal/core"
	apphttp "finsight/internal/http"
	applog "finsight/internal/log"
	"finsight/internal/report"
	"finsight/internal/reveal"
	"finsight/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	data, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	listings := cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(listings)
	caches.StartCleanup(time.Minute)

	txOpts := []services.TransactionOption{services.WithCache(listings)}
	if data.Publisher != nil {
		txOpts = append(txOpts, services.WithPublisher(data.Publisher))
	}
	transactions := services.NewTransactionService(data.Store, txOpts...)

	sessions := reveal.NewSessions(cfg.RevealInterval)
	reports := services.NewReportService(
		transactions,
		report.PromptBuilder{MaxChars: cfg.ReportPromptMaxChars},
		cli.NewReportClient(cfg),
		sessions,
	)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Location:           cfg.Location(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              data.Ready,
		Logger:             logger,
	}, transactions, reports)

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		sessions.Close()
		caches.Stop()
		if err := data.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting finsight server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"report_backend", cfg.ReportBackend,
		"timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
