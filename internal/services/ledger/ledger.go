// Package services содержит бизнес-логику кошелька и подписок: списание
// за подписку, пополнение и проверку активного доступа с кешированием.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/llm-service/internal/config"
	"github.com/magabrotheeeer/llm-service/internal/lib/sl"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Время жизни кеша признака активной подписки. Кеш инвалидируется при
// покупке и выдаче, поэтому устаревание возможно только в сторону
// просроченного доступа и ограничено этим TTL.
const activeFlagTTL = time.Minute

// LedgerRepository определяет методы хранилища, нужные биллингу.
type LedgerRepository interface {
	// DebitForSubscription атомарно списывает стоимость и создаёт подписку с транзакцией.
	DebitForSubscription(ctx context.Context, userUID string, days, ratePerDay int) (*models.DebitResult, error)
	// CreditTopup пополняет кошелёк и пишет транзакцию.
	CreditTopup(ctx context.Context, userUID string, amount int) (int, error)
	// HasActiveSubscription проверяет наличие подписки, покрывающей момент at.
	HasActiveSubscription(ctx context.Context, userUID string, at time.Time) (bool, error)
	// GrantSubscription создаёт подписку без списания монет.
	GrantSubscription(ctx context.Context, userUID string, days int) (*models.Subscription, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// LedgerService реализует бизнес-логику биллинга.
type LedgerService struct {
	repo  LedgerRepository
	cache Cache
	log   *slog.Logger
	cfg   config.Billing
}

// NewLedgerService создает новый экземпляр LedgerService.
func NewLedgerService(repo LedgerRepository, cache Cache, log *slog.Logger, cfg config.Billing) *LedgerService {
	return &LedgerService{
		repo:  repo,
		cache: cache,
		log:   log,
		cfg:   cfg,
	}
}

// Subscribe покупает подписку за монеты кошелька. Повторная покупка при
// активной подписке запрещена политикой сервиса (не хранилищем).
func (s *LedgerService) Subscribe(ctx context.Context, userUID string) (*models.DebitResult, error) {
	const op = "services.ledger.Subscribe"

	active, err := s.HasActiveSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if active {
		return nil, fmt.Errorf("%s: %w", op, models.ErrActiveSubscriptionExists)
	}

	result, err := s.repo.DebitForSubscription(ctx, userUID, s.cfg.SubscriptionDays, s.cfg.RatePerDay)
	if err != nil {
		return nil, err
	}
	s.log.Info("subscription purchased",
		slog.String("user_uid", userUID),
		slog.Int("cost", result.Cost),
		slog.Int("new_balance", result.NewBalance))

	if err := s.cache.Invalidate(ctx, activeFlagKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}
	return result, nil
}

// Topup пополняет кошелёк. Нулевая или отрицательная сумма — ошибка вызывающего.
func (s *LedgerService) Topup(ctx context.Context, userUID string, amount int) (int, error) {
	const op = "services.ledger.Topup"

	if amount <= 0 {
		return 0, fmt.Errorf("%s: amount must be positive, got %d", op, amount)
	}
	newBalance, err := s.repo.CreditTopup(ctx, userUID, amount)
	if err != nil {
		return 0, err
	}
	s.log.Info("wallet topped up",
		slog.String("user_uid", userUID),
		slog.Int("amount", amount),
		slog.Int("new_balance", newBalance))
	return newBalance, nil
}

// HasActiveSubscription отвечает, есть ли у пользователя подписка,
// покрывающая текущий момент. Ответ кешируется с коротким TTL.
func (s *LedgerService) HasActiveSubscription(ctx context.Context, userUID string) (bool, error) {
	key := activeFlagKey(userUID)

	var cached bool
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read subscription cache", sl.Err(err))
	}
	if found && err == nil {
		return cached, nil
	}

	active, err := s.repo.HasActiveSubscription(ctx, userUID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	if err := s.cache.Set(ctx, key, active, activeFlagTTL); err != nil {
		s.log.Warn("failed to cache subscription flag", sl.Err(err))
	}
	return active, nil
}

// Grant выдаёт подписку без движения монет (административная операция).
func (s *LedgerService) Grant(ctx context.Context, userUID string) (*models.Subscription, error) {
	sub, err := s.repo.GrantSubscription(ctx, userUID, s.cfg.SubscriptionDays)
	if err != nil {
		return nil, err
	}
	s.log.Info("subscription granted",
		slog.String("user_uid", userUID),
		slog.Time("end_date", sub.EndDate))

	if err := s.cache.Invalidate(ctx, activeFlagKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate subscription cache", sl.Err(err))
	}
	return sub, nil
}

func activeFlagKey(userUID string) string {
	return "subscription:active:" + userUID
}
