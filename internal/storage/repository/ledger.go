package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/llm-service/internal/models"
)

// DebitForSubscription атомарно списывает стоимость подписки с кошелька,
// пишет транзакцию в журнал и создаёт строку подписки [now, now+days).
// Все три записи фиксируются вместе или не фиксируются вовсе.
//
// Проверка баланса и декремент выполняются одним условным UPDATE, поэтому
// два конкурирующих списания по одному пользователю сериализуются на строке
// кошелька: второе увидит уже уменьшенный баланс.
func (s *Storage) DebitForSubscription(ctx context.Context, userUID string, days, ratePerDay int) (*models.DebitResult, error) {
	const op = "storage.DebitForSubscription"

	cost := days * ratePerDay

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newBalance int
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET wallet = wallet - $1
		 WHERE uid = $2 AND wallet >= $1
		 RETURNING wallet`,
		cost, userUID).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		available, availErr := s.walletBalance(ctx, userUID)
		if availErr != nil {
			return nil, fmt.Errorf("%s: %w", op, availErr)
		}
		return nil, fmt.Errorf("%s: %w", op,
			&models.InsufficientFundsError{Required: cost, Available: available})
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (user_uid, amount, kind) VALUES ($1, $2, $3)`,
		userUID, -cost, models.TxKindDebitSubscription)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 0, days)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (user_uid, start_date, end_date) VALUES ($1, $2, $3)`,
		userUID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.DebitResult{NewBalance: newBalance, Cost: cost, EndDate: end}, nil
}

// CreditTopup пополняет кошелёк и пишет транзакцию credit-topup в одной
// транзакции с изменением баланса. Возвращает новый баланс.
func (s *Storage) CreditTopup(ctx context.Context, userUID string, amount int) (int, error) {
	const op = "storage.CreditTopup"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newBalance int
	err = tx.QueryRowContext(ctx,
		`UPDATE users SET wallet = wallet + $1 WHERE uid = $2 RETURNING wallet`,
		amount, userUID).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (user_uid, amount, kind) VALUES ($1, $2, $3)`,
		userUID, amount, models.TxKindCreditTopup)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newBalance, nil
}

// HasActiveSubscription проверяет наличие подписки, покрывающей момент at.
// Пересекающиеся строки не запрещены: предикат вычисляется на чтении.
func (s *Storage) HasActiveSubscription(ctx context.Context, userUID string, at time.Time) (bool, error) {
	const op = "storage.HasActiveSubscription"

	var active bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_uid = $1 AND start_date <= $2 AND end_date > $2
		)`,
		userUID, at).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return active, nil
}

// GrantSubscription создаёт подписку без движения монет (административная
// выдача доступа).
func (s *Storage) GrantSubscription(ctx context.Context, userUID string, days int) (*models.Subscription, error) {
	const op = "storage.GrantSubscription"

	start := time.Now().UTC()
	end := start.AddDate(0, 0, days)

	sub := &models.Subscription{UserUID: userUID, StartDate: start, EndDate: end}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO subscriptions (user_uid, start_date, end_date)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		userUID, start, end).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// SumTransactions возвращает сумму журнала транзакций пользователя.
// По построению она равна текущему балансу кошелька.
func (s *Storage) SumTransactions(ctx context.Context, userUID string) (int, error) {
	const op = "storage.SumTransactions"

	var sum int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_uid = $1`,
		userUID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}

func (s *Storage) walletBalance(ctx context.Context, userUID string) (int, error) {
	const op = "storage.walletBalance"

	var balance int
	err := s.DB.QueryRowContext(ctx,
		`SELECT wallet FROM users WHERE uid = $1`, userUID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}
