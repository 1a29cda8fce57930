// Package main is the entry point for the expense tracker Telegram bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/gastos-bot/internal/archive"
	"gitlab.com/yelinaung/gastos-bot/internal/bot"
	"gitlab.com/yelinaung/gastos-bot/internal/chart"
	"gitlab.com/yelinaung/gastos-bot/internal/config"
	"gitlab.com/yelinaung/gastos-bot/internal/health"
	"gitlab.com/yelinaung/gastos-bot/internal/ledger"
	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/ocr"
	"gitlab.com/yelinaung/gastos-bot/internal/scheduler"
	"gitlab.com/yelinaung/gastos-bot/internal/session"
	"gitlab.com/yelinaung/gastos-bot/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("gastos-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTelExporter)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create metrics")
	}

	expenseLedger, closeLedger, err := ledger.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open ledger")
	}
	defer closeLedger()

	archiver, err := archive.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up receipt archive")
	}

	deps := bot.Deps{
		Sessions: session.NewStore(cfg.PendingTTL),
		Ledger:   expenseLedger,
		Archiver: archiver,
		Renderer: newRenderer(cfg.ChartRenderer),
		Metrics:  metrics,
	}

	if cfg.OCREnabled() {
		recognizer, err := ocr.NewGemini(ctx, cfg.GeminiAPIKey, cfg.OCRTimeout)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create receipt recognizer")
		}
		deps.Recognizer = recognizer
	} else {
		logger.Log.Warn().Msg("GEMINI_API_KEY not set, receipt photos are disabled")
	}

	telegramBot, err := bot.New(cfg, deps)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sched := scheduler.New(scheduler.Config{
		Location:       cfg.Location,
		SummaryCron:    cfg.SummaryCron,
		SummaryChatIDs: cfg.SummaryChatIDs,
	}, telegramBot.Sessions(), telegramBot, metrics)
	if err := sched.Start(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	healthServer := health.New(cfg.Port)
	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Log.Error().Err(err).Msg("Health server stopped")
		}
	}()

	telegramBot.Start(ctx)

	logger.Log.Info().Msg("Shutting down...")
	shutdown(sched, healthServer, telegramBot, shutdownTelemetry)
}

func newRenderer(kind string) chart.Renderer {
	if kind == config.ChartLocal {
		return chart.NewLocalRenderer("resumen.png")
	}
	return chart.NewQuickChartRenderer(chart.DefaultQuickChartURL)
}

func shutdown(
	sched *scheduler.Scheduler,
	healthServer *health.Server,
	telegramBot *bot.Bot,
	shutdownTelemetry telemetry.ShutdownFunc,
) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	select {
	case <-sched.Stop().Done():
	case <-ctx.Done():
		logger.Log.Warn().Msg("Timed out waiting for scheduled jobs")
	}

	if err := healthServer.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to stop health server")
	}

	telegramBot.Wait()

	if err := shutdownTelemetry(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Log.Error().Err(err).Msg("Failed to flush telemetry")
	}
}
