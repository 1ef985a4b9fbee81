// Package main содержит точку входа для inference-воркера.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/llm-service/internal/app/inferenceworker"
	"github.com/magabrotheeeer/llm-service/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting inference-worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := inferenceworker.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize inference-worker app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("inference-worker stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
