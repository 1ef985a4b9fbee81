package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/llm-service/internal/config"
	"github.com/magabrotheeeer/llm-service/internal/models"
)

// MockLedgerRepo реализует интерфейс LedgerRepository
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) DebitForSubscription(ctx context.Context, userUID string, days, ratePerDay int) (*models.DebitResult, error) {
	args := m.Called(ctx, userUID, days, ratePerDay)
	if res := args.Get(0); res != nil {
		return res.(*models.DebitResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerRepo) CreditTopup(ctx context.Context, userUID string, amount int) (int, error) {
	args := m.Called(ctx, userUID, amount)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepo) HasActiveSubscription(ctx context.Context, userUID string, at time.Time) (bool, error) {
	args := m.Called(ctx, userUID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepo) GrantSubscription(ctx context.Context, userUID string, days int) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, days)
	if res := args.Get(0); res != nil {
		return res.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCache реализует интерфейс Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	if args.Bool(0) {
		*(result.(*bool)) = true
	}
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newTestLedger(repo *MockLedgerRepo, cache *MockCache) *LedgerService {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := config.Billing{RatePerDay: 10, SubscriptionDays: 30}
	return NewLedgerService(repo, cache, logger, cfg)
}

func TestSubscribe_Success(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	endDate := time.Now().UTC().AddDate(0, 0, 30)
	cache.On("Get", mock.Anything, "subscription:active:u1", mock.Anything).Return(false, nil)
	repo.On("HasActiveSubscription", mock.Anything, "u1", mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, "subscription:active:u1", false, activeFlagTTL).Return(nil)
	repo.On("DebitForSubscription", mock.Anything, "u1", 30, 10).
		Return(&models.DebitResult{NewBalance: 100, Cost: 300, EndDate: endDate}, nil)
	cache.On("Invalidate", mock.Anything, "subscription:active:u1").Return(nil)

	result, err := service.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 300, result.Cost)
	assert.Equal(t, 100, result.NewBalance)
	assert.Equal(t, endDate, result.EndDate)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestSubscribe_AlreadyActive(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	// признак активности приходит из кеша, хранилище не трогаем
	cache.On("Get", mock.Anything, "subscription:active:u1", mock.Anything).Return(true, nil)

	_, err := service.Subscribe(context.Background(), "u1")
	assert.ErrorIs(t, err, models.ErrActiveSubscriptionExists)

	repo.AssertNotCalled(t, "DebitForSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "HasActiveSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribe_InsufficientFunds(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	cache.On("Get", mock.Anything, "subscription:active:u1", mock.Anything).Return(false, nil)
	repo.On("HasActiveSubscription", mock.Anything, "u1", mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, "subscription:active:u1", false, activeFlagTTL).Return(nil)
	repo.On("DebitForSubscription", mock.Anything, "u1", 30, 10).
		Return(nil, &models.InsufficientFundsError{Required: 300, Available: 20})

	_, err := service.Subscribe(context.Background(), "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	var insufficient *models.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 300, insufficient.Required)
	assert.Equal(t, 20, insufficient.Available)
}

func TestTopup_Success(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	repo.On("CreditTopup", mock.Anything, "u1", 50).Return(70, nil)

	newBalance, err := service.Topup(context.Background(), "u1", 50)
	require.NoError(t, err)
	assert.Equal(t, 70, newBalance)
}

func TestTopup_NonPositiveAmount(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	for _, amount := range []int{0, -5} {
		_, err := service.Topup(context.Background(), "u1", amount)
		assert.Error(t, err)
	}
	repo.AssertNotCalled(t, "CreditTopup", mock.Anything, mock.Anything, mock.Anything)
}

func TestHasActiveSubscription_CacheMissThenStore(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	cache.On("Get", mock.Anything, "subscription:active:u1", mock.Anything).Return(false, nil)
	repo.On("HasActiveSubscription", mock.Anything, "u1", mock.Anything).Return(true, nil)
	cache.On("Set", mock.Anything, "subscription:active:u1", true, activeFlagTTL).Return(nil)

	active, err := service.HasActiveSubscription(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, active)

	cache.AssertExpectations(t)
}

func TestHasActiveSubscription_CacheErrorFallsThrough(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	cache.On("Get", mock.Anything, "subscription:active:u1", mock.Anything).
		Return(false, errors.New("redis down"))
	repo.On("HasActiveSubscription", mock.Anything, "u1", mock.Anything).Return(true, nil)
	cache.On("Set", mock.Anything, "subscription:active:u1", true, activeFlagTTL).
		Return(errors.New("redis down"))

	active, err := service.HasActiveSubscription(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestGrant_InvalidatesCache(t *testing.T) {
	repo := new(MockLedgerRepo)
	cache := new(MockCache)
	service := newTestLedger(repo, cache)

	endDate := time.Now().UTC().AddDate(0, 0, 30)
	repo.On("GrantSubscription", mock.Anything, "u1", 30).
		Return(&models.Subscription{UserUID: "u1", EndDate: endDate}, nil)
	cache.On("Invalidate", mock.Anything, "subscription:active:u1").Return(nil)

	sub, err := service.Grant(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, endDate, sub.EndDate)

	cache.AssertExpectations(t)
}
