package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thelabelsunday/invoice-checker/internal/catalog"
	"github.com/thelabelsunday/invoice-checker/internal/chat"
	"github.com/thelabelsunday/invoice-checker/internal/common"
	"github.com/thelabelsunday/invoice-checker/internal/extract"
	"github.com/thelabelsunday/invoice-checker/internal/history"
	"github.com/thelabelsunday/invoice-checker/internal/pipeline"
	"github.com/thelabelsunday/invoice-checker/internal/render"
	"github.com/thelabelsunday/invoice-checker/internal/server"
	"github.com/thelabelsunday/invoice-checker/internal/verdict"
	"github.com/thelabelsunday/invoice-checker/internal/verdict/anthropic"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat := catalog.MustLoad()

	extractor := extract.NewExtractor(extract.Config{
		Pdftoppm: cfg.Extract.Pdftoppm,
		DPI:      cfg.Extract.DPI,
		TempDir:  cfg.Extract.TempDir,
	}, logger)

	renderer := render.NewRenderer(render.Config{
		Timeout:     cfg.Render.Timeout,
		SettleWait:  cfg.Render.SettleWait,
		DismissWait: cfg.Render.DismissWait,
		MinPDFBytes: cfg.Render.MinPDFBytes,
		ExecPath:    cfg.Render.ChromeBinary,
	}, logger)

	aiClient := anthropic.NewClient(anthropic.Config{
		APIKey:    cfg.AI.APIKey,
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	}, logger)
	verdicts := verdict.NewService(aiClient, cat, logger)

	var store *history.Store
	if cfg.History.DBPath != "" {
		var err error
		store, err = history.Open(cfg.History.DBPath, logger)
		if err != nil {
			logger.Error("history.open_failed", "path", cfg.History.DBPath, "error", err.Error())
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
	}

	var recorder pipeline.Recorder
	if store != nil {
		recorder = store
	}
	checker := pipeline.NewChecker(extractor, verdicts, recorder, logger)

	if cfg.Slack.BotToken != "" {
		client := chat.NewSlackClient(cfg.Slack.BotToken, cfg.Slack.AppToken)
		cache := chat.NewDocCache(cfg.Slack.CacheTTL)
		manager := chat.NewManager(cache, checker, renderer, client, cfg.Slack.AllowedChannels, logger)
		runner := chat.NewSocketRunner(client, manager, logger)
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("chat.socket.stopped", "error", err.Error())
			}
		}()
		logger.Info("chat.socket.started")
	}

	srv := server.NewServer(checker, renderer, cat, store, cfg.Server.Addr, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown.begin")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown.server_error", "error", err.Error())
	}
	logger.Info("shutdown.done")
}
