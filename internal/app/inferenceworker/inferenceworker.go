// Package inferenceworker собирает процесс inference-воркера: брокер,
// клиент inference-сервиса и цикл обработки заданий.
package inferenceworker

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/llm-service/internal/broker"
	"github.com/magabrotheeeer/llm-service/internal/config"
	"github.com/magabrotheeeer/llm-service/internal/inference"
	workerservice "github.com/magabrotheeeer/llm-service/internal/services/worker"
)

// App процесс inference-воркера.
type App struct {
	worker *workerservice.WorkerService
	broker *broker.Broker
	logger *slog.Logger
}

// New инициализирует зависимости воркера.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	b, err := broker.New(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	client := inference.New(cfg.Inference)
	worker := workerservice.NewWorkerService(b, client, logger, cfg.PollInterval)

	return &App{
		worker: worker,
		broker: b,
		logger: logger,
	}, nil
}

// Run выполняет цикл воркера до отмены ctx и закрывает подключение к брокеру.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		_ = a.broker.Close()
	}()
	return a.worker.Run(ctx)
}
