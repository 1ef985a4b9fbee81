// Package services реализует диспетчер запросов к языковой модели: мост между
// синхронным вызывающим и асинхронным inference-воркером через брокер.
//
// Протокол: проверка доступа, запись сообщения в статусе pending, подписка на
// канал ответов этого сообщения, публикация задания в общий канал работ и
// ограниченное по времени ожидание коррелированного ответа. По таймауту
// сообщение помечается failed, опоздавший ответ отбрасывается правилом
// идемпотентного разрешения.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/llm-service/internal/broker"
	"github.com/magabrotheeeer/llm-service/internal/config"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/metrics"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// StillProcessingText ответ вызывающему, когда дедлайн ожидания истёк:
// это не ошибка, запрос мог ещё обрабатываться воркером.
const StillProcessingText = "Processing your request..."

const (
	timeoutReason      = "timeout waiting for worker reply"
	defaultHistorySize = 50
)

// MessageRepository определяет методы хранилища жизненного цикла сообщений.
type MessageRepository interface {
	CreateMessage(ctx context.Context, userUID, content string) (*models.Message, error)
	// ResolveMessage применяется только к pending-сообщению; false — уже разрешено.
	ResolveMessage(ctx context.Context, messageID int64, response string) (bool, error)
	// FailMessage семантика идемпотентности та же, что у ResolveMessage.
	FailMessage(ctx context.Context, messageID int64, errText string) (bool, error)
	ListMessages(ctx context.Context, userUID string, limit int) ([]*models.Message, error)
}

// AccessChecker отвечает, есть ли у пользователя активная подписка.
type AccessChecker interface {
	HasActiveSubscription(ctx context.Context, userUID string) (bool, error)
}

// Broker описывает транспорт между диспетчером и воркером.
type Broker interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channel string) (*broker.Subscription, error)
	Get(ctx context.Context, key string, result any) (bool, error)
}

// Result итог обработки запроса пользователя.
type Result struct {
	MessageID int64
	Answer    string
	Pending   bool // true — дедлайн истёк, ответ заменён заглушкой
}

// DispatcherService реализует мост запрос-ответ с ограниченным ожиданием.
type DispatcherService struct {
	repo   MessageRepository
	access AccessChecker
	broker Broker
	log    *slog.Logger
	cfg    config.Dispatcher
}

// NewDispatcherService создает новый экземпляр DispatcherService.
func NewDispatcherService(repo MessageRepository, access AccessChecker, b Broker, log *slog.Logger, cfg config.Dispatcher) *DispatcherService {
	return &DispatcherService{
		repo:   repo,
		access: access,
		broker: b,
		log:    log,
		cfg:    cfg,
	}
}

// Ask принимает prompt пользователя и дожидается ответа воркера не дольше
// настроенного таймаута. Каждый вызов независим и может выполняться в своей
// горутине; корреляция идёт только по id сообщения.
func (s *DispatcherService) Ask(ctx context.Context, userUID, content string) (*Result, error) {
	const op = "services.dispatcher.Ask"

	active, err := s.access.HasActiveSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !active {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNoActiveSubscription)
	}

	msg, err := s.repo.CreateMessage(ctx, userUID, content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.DispatchedTotal.Inc()
	log := s.log.With(slog.String("op", op), sl.MsgID(msg.ID))

	// Подписка оформляется до публикации задания: канал ответов не хранит
	// историю, и ответ, отправленный до подписки, был бы потерян.
	sub, err := s.broker.Subscribe(ctx, broker.ReplyChannel(msg.ID))
	if err != nil {
		s.failQuietly(ctx, msg.ID, "broker unavailable")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = sub.Close()
	}()

	work := models.WorkItem{MessageID: msg.ID, Content: content}
	if err := s.broker.Publish(ctx, broker.WorkChannel, work); err != nil {
		s.failQuietly(ctx, msg.ID, "broker unavailable")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("work item published")

	deadline := time.NewTimer(s.cfg.ReplyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.failQuietly(ctx, msg.ID, "request cancelled")
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())

		case m, ok := <-sub.Messages():
			if !ok {
				s.failQuietly(ctx, msg.ID, "broker unavailable")
				return nil, fmt.Errorf("%s: %w", op, models.ErrBrokerUnavailable)
			}
			var reply models.ReplyItem
			if err := json.Unmarshal([]byte(m.Payload), &reply); err != nil {
				log.Warn("malformed reply payload", sl.Err(err))
				continue
			}
			if reply.MessageID != msg.ID {
				continue
			}
			return s.finish(ctx, log, msg.ID, reply.Response)

		case <-ticker.C:
			// Опрос KV подстраховывает pub/sub: воркер дублирует туда ответ,
			// и проигранная гонка доставки не превращается в таймаут.
			var reply models.ReplyItem
			found, err := s.broker.Get(ctx, broker.AnswerKey(msg.ID), &reply)
			if err != nil {
				log.Warn("failed to poll answer key", sl.Err(err))
				continue
			}
			if found {
				return s.finish(ctx, log, msg.ID, reply.Response)
			}

		case <-deadline.C:
			applied, err := s.repo.FailMessage(context.WithoutCancel(ctx), msg.ID, timeoutReason)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if applied {
				metrics.TimeoutTotal.Inc()
				log.Info("reply deadline exceeded, message failed")
			}
			return &Result{MessageID: msg.ID, Answer: StillProcessingText, Pending: true}, nil
		}
	}
}

// History возвращает историю сообщений пользователя, новые первыми.
func (s *DispatcherService) History(ctx context.Context, userUID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultHistorySize
	}
	return s.repo.ListMessages(ctx, userUID, limit)
}

// finish записывает ответ по правилу идемпотентного разрешения. Если запись
// не применилась, сообщение уже разрешил кто-то другой — его результат не
// перезаписывается, но полученный ответ вызывающему всё равно возвращается.
func (s *DispatcherService) finish(ctx context.Context, log *slog.Logger, messageID int64, answer string) (*Result, error) {
	const op = "services.dispatcher.finish"

	applied, err := s.repo.ResolveMessage(context.WithoutCancel(ctx), messageID, answer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if applied {
		metrics.AnsweredTotal.Inc()
		log.Info("message answered")
	}
	return &Result{MessageID: messageID, Answer: answer}, nil
}

func (s *DispatcherService) failQuietly(ctx context.Context, messageID int64, reason string) {
	if _, err := s.repo.FailMessage(context.WithoutCancel(ctx), messageID, reason); err != nil {
		s.log.Error("failed to mark message failed", sl.MsgID(messageID), sl.Err(err))
	}
}
