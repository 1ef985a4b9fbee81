// Package services реализует inference-воркера: долгоживущий потребитель
// канала работ, который превращает prompt-ы в ответы модели.
//
// Несколько экземпляров воркера могут быть подписаны на общий канал работ;
// широковещательная доставка означает возможность дублей, которые гасятся
// тем, что у сообщения побеждает ровно одно разрешение. Ни одна ошибка
// обработки отдельного задания не завершает цикл.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/llm-service/internal/broker"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/metrics"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Безопасный текст ответа вместо деталей ошибки inference-сервиса.
const safeErrorText = "Sorry, I encountered an error processing your request."

// Время жизни дубликата ответа в KV; диспетчер забирает его опросом,
// если проиграл гонку доставки pub/sub.
const answerTTL = 10 * time.Minute

// InferenceClient описывает вызов внешнего inference-сервиса.
type InferenceClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Broker описывает транспорт, нужный воркеру.
type Broker interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channel string) (*broker.Subscription, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// WorkerService цикл обработки заданий канала работ.
type WorkerService struct {
	broker    Broker
	client    InferenceClient
	log       *slog.Logger
	idleSleep time.Duration
}

// NewWorkerService создает новый экземпляр WorkerService. idleSleep — пауза
// опроса при пустом канале, чтобы не выжигать процессор.
func NewWorkerService(b Broker, client InferenceClient, log *slog.Logger, idleSleep time.Duration) *WorkerService {
	return &WorkerService{
		broker:    b,
		client:    client,
		log:       log,
		idleSleep: idleSleep,
	}
}

// Run подписывается на канал работ и обрабатывает задания до отмены ctx.
// Возвращает ошибку только если транспорт недоступен: без подписки процессу
// нечего делать, и перезапуск — забота супервизора.
func (s *WorkerService) Run(ctx context.Context) error {
	const op = "services.worker.Run"

	sub, err := s.broker.Subscribe(ctx, broker.WorkChannel)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = sub.Close()
	}()
	s.log.Info("inference worker started and listening for work")

	for {
		payload, err := sub.Next(ctx)
		switch {
		case errors.Is(err, models.ErrNoMessage):
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.idleSleep):
			}
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, models.ErrBrokerUnavailable):
			return fmt.Errorf("%s: %w", op, err)
		case err != nil:
			s.log.Error("failed to read work channel", sl.Err(err))
			continue
		}

		s.handle(ctx, payload)
	}
}

// handle обрабатывает одно задание. Все ошибки логируются и заканчиваются
// либо продолжением цикла, либо безопасным текстом ответа — исключений,
// пересекающих границу цикла, нет.
func (s *WorkerService) handle(ctx context.Context, payload string) {
	var item models.WorkItem
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		s.log.Error("malformed work item, skipping", sl.Err(err))
		return
	}
	log := s.log.With(sl.MsgID(item.MessageID))
	log.Info("work item received")

	answer, err := s.client.Complete(ctx, item.Content)
	if err != nil {
		metrics.InferenceRequestsTotal.WithLabelValues("error").Inc()
		log.Error("inference call failed", sl.Err(err))
		answer = safeErrorText
	} else {
		metrics.InferenceRequestsTotal.WithLabelValues("ok").Inc()
	}

	reply := models.ReplyItem{MessageID: item.MessageID, Response: answer}

	// Сначала KV, затем публикация: диспетчер, подписавшийся с опозданием,
	// найдёт ответ опросом ключа.
	if err := s.broker.Set(ctx, broker.AnswerKey(item.MessageID), reply, answerTTL); err != nil {
		log.Warn("failed to store answer in kv", sl.Err(err))
	}
	if err := s.broker.Publish(ctx, broker.ReplyChannel(item.MessageID), reply); err != nil {
		log.Error("failed to publish reply", sl.Err(err))
		return
	}
	log.Info("reply published")
}
