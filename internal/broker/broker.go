// Package broker реализует транспорт между диспетчером и inference-воркером
// поверх redis: широковещательные pub/sub-каналы и key-value хранилище с TTL.
//
// Канал работ один на всех воркеров, канал ответов создаётся на каждый запрос
// и называется по id сообщения — так ответы коррелируются без общей очереди.
// Доставка at-most-once: подписчик, появившийся после публикации, сообщение
// не увидит, и это осознанный компромисс протокола.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/llm-service/internal/config"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Имена каналов и ключей.
const (
	// WorkChannel общий канал заданий для inference-воркеров.
	WorkChannel = "llm:work"

	replyChannelPrefix = "llm:reply:"
	answerKeyPrefix    = "llm:answer:"
)

// ReplyChannel возвращает имя канала ответов для сообщения с данным id.
func ReplyChannel(messageID int64) string {
	return replyChannelPrefix + strconv.FormatInt(messageID, 10)
}

// AnswerKey возвращает ключ, под которым воркер дублирует ответ в KV.
func AnswerKey(messageID int64) string {
	return answerKeyPrefix + strconv.FormatInt(messageID, 10)
}

// Broker инкапсулирует подключение к redis. Объект создаётся один раз на
// процесс и передаётся компонентам явно, время жизни управляется владельцем.
type Broker struct {
	db *redis.Client
}

// New устанавливает подключение к redis и проверяет его доступность.
func New(ctx context.Context, cfg config.RedisConnection) (*Broker, error) {
	const op = "broker.New"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrBrokerUnavailable, err)
	}
	return &Broker{db: db}, nil
}

// Close закрывает подключение к redis.
func (b *Broker) Close() error {
	return b.db.Close()
}

// Publish сериализует payload и отправляет его всем текущим подписчикам
// канала. Структуры кодируются в JSON, строки передаются как есть.
func (b *Broker) Publish(ctx context.Context, channel string, payload any) error {
	const op = "broker.Publish"

	var data string
	switch v := payload.(type) {
	case string:
		data = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		data = string(raw)
	}

	if err := b.db.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("%s: %w: %v", op, models.ErrBrokerUnavailable, err)
	}
	return nil
}

// Subscribe подписывается на канал и возвращает курсор, который видит только
// сообщения, опубликованные после подписки. Повторной доставки нет.
func (b *Broker) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	const op = "broker.Subscribe"

	ps := b.db.Subscribe(ctx, channel)
	// Дожидаемся подтверждения подписки, иначе публикация сразу после
	// возврата может уйти до фактической регистрации подписчика.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrBrokerUnavailable, err)
	}
	return &Subscription{ps: ps, ch: ps.Channel()}, nil
}

// Set сохраняет значение с опциональным временем жизни (ttl == 0 — без TTL).
func (b *Broker) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	const op = "broker.Set"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := b.db.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w: %v", op, models.ErrBrokerUnavailable, err)
	}
	return nil
}

// Get читает значение по ключу и десериализует его в result.
// Возвращает false без ошибки, если ключ отсутствует или истёк.
func (b *Broker) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "broker.Get"

	val, err := b.db.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w: %v", op, models.ErrBrokerUnavailable, err)
	}
	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Invalidate удаляет значение по ключу.
func (b *Broker) Invalidate(ctx context.Context, key string) error {
	const op = "broker.Invalidate"
	if err := b.db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w: %v", op, models.ErrBrokerUnavailable, err)
	}
	return nil
}

// Subscription курсор подписки на канал брокера.
type Subscription struct {
	ps *redis.PubSub
	ch <-chan *redis.Message
}

// Next возвращает следующее сообщение канала, не блокируя вызывающего.
// Если новых сообщений нет — models.ErrNoMessage, если канал закрыт —
// models.ErrBrokerUnavailable.
func (s *Subscription) Next(ctx context.Context) (string, error) {
	const op = "broker.Next"

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	case msg, ok := <-s.ch:
		if !ok {
			return "", fmt.Errorf("%s: %w", op, models.ErrBrokerUnavailable)
		}
		return msg.Payload, nil
	default:
		return "", fmt.Errorf("%s: %w", op, models.ErrNoMessage)
	}
}

// Messages возвращает канал входящих сообщений для блокирующего ожидания
// через select с собственным таймером вызывающего.
func (s *Subscription) Messages() <-chan *redis.Message {
	return s.ch
}

// Close завершает подписку.
func (s *Subscription) Close() error {
	return s.ps.Close()
}
