package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"briefer/internal/bot"
	"briefer/internal/cache"
	"briefer/internal/config"
	"briefer/internal/database"
	"briefer/internal/extract"
	"briefer/internal/orchestrator"
	"briefer/internal/scheduler"
	"briefer/internal/summarizer"
)

func main() {
	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	summaryCache := cache.Load(ctx, db, log)

	s, err := initSummarizer(cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create summarizer",
			"error", err,
			"provider", cfg.Provider)

		return
	}
	log.InfoContext(ctx, "Summarizer is initialized",
		"provider", cfg.Provider,
		"remoteMaxAttempts", cfg.RemoteMaxAttempts)

	orch := orchestrator.New(summaryCache, s, log)
	extractor := extract.New(&http.Client{Timeout: cfg.HTTPTimeout}, log)

	botInst, err := bot.New(cfg.Token, bot.Deps{
		Orchestrator: orch,
		Cache:        summaryCache,
		Extractor:    extractor,
		Defaults:     defaultBounds(cfg),
		AllowedUsers: cfg.AllowedUsers,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	sched := scheduler.New(ctx, cfg.CacheFlushSpec, summaryCache, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", sched.Spec())

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", sched.Spec())

	go func() {
		botInst.Start(ctx)
	}()
	log.InfoContext(ctx, "Bot is started")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	botInst.Stop()
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())

	if err = summaryCache.Flush(context.Background()); err != nil {
		log.ErrorContext(ctx, "Failed to flush summary cache on exit",
			"error", err,
			"entries", summaryCache.Len())
	}

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())
}

func defaultBounds(cfg config.Config) summarizer.LengthBounds {
	return summarizer.LengthBounds{
		MinLength: cfg.SummaryMinLength,
		MaxLength: cfg.SummaryMaxLength,
	}
}

func initSummarizer(cfg config.Config, log *slog.Logger) (summarizer.Summarizer, error) {
	switch cfg.Provider {
	case config.ProviderHuggingFace:
		hf, err := summarizer.NewHuggingFace(summarizer.HuggingFaceConfig{
			URL:         cfg.HFAPIURL,
			Token:       cfg.HFAPIToken,
			Model:       cfg.HFModel,
			Defaults:    defaultBounds(cfg),
			MaxAttempts: cfg.RemoteMaxAttempts,
			HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		}, log)
		if err != nil {
			return nil, fmt.Errorf("create Hugging Face summarizer: %w", err)
		}
		return hf, nil
	case config.ProviderOpenAI:
		o, err := summarizer.NewOpenAI(summarizer.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Defaults:    defaultBounds(cfg),
			MaxAttempts: cfg.RemoteMaxAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("create OpenAI summarizer: %w", err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
