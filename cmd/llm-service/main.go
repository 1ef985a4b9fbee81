// Package main содержит точку входа для HTTP API сервиса доступа к языковой модели.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/llm-service/internal/app/llmservice"
	"github.com/magabrotheeeer/llm-service/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting llm-service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := llmservice.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize llm-service app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("llm-service stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
