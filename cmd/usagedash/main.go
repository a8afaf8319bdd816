package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netmeter/usagedash/internal/app"
	dashboardhttp "github.com/netmeter/usagedash/internal/dashboard/http"
	"github.com/netmeter/usagedash/internal/observability"
	"github.com/netmeter/usagedash/internal/usage"
	"github.com/netmeter/usagedash/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	usageClient := usage.NewClient(cfg.UsageAPIURL, &http.Client{Timeout: cfg.UsageAPITimeout}).
		WithObserver(metrics).
		WithLogger(logger)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	dashboardHandler := dashboardhttp.NewHandler(logger, usageClient, templates, usage.ReportLinks{BaseURL: cfg.UsageAPIPublicURL})

	router := app.NewRouter(app.RouterParams{
		Logger:    logger,
		Config:    cfg,
		Dashboard: dashboardHandler,
		Readiness: usageClient,
		Metrics:   metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("usage_api", cfg.UsageAPIURL),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
