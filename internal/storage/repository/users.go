package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/llm-service/internal/models"
)

// Стартовый баланс кошелька нового пользователя в монетах.
const initialWallet = 20

// GetOrCreateUser возвращает пользователя по telegram id, создавая его при
// первом обращении. Стартовый баланс фиксируется транзакцией credit-topup,
// чтобы сумма журнала всегда воспроизводила текущий баланс кошелька.
func (s *Storage) GetOrCreateUser(ctx context.Context, telegramID string) (*models.User, error) {
	const op = "storage.GetOrCreateUser"

	u, err := s.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	u = &models.User{}
	query := `INSERT INTO users (uid, telegram_id, role, wallet)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (telegram_id) DO NOTHING
			  RETURNING uid, telegram_id, role, wallet, created_at;`
	err = tx.QueryRowContext(ctx, query, uuid.NewString(), telegramID, models.RoleStandard, initialWallet).
		Scan(&u.UID, &u.TelegramID, &u.Role, &u.Wallet, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Конкурирующее первое обращение успело раньше.
		return s.GetUserByTelegramID(ctx, telegramID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (user_uid, amount, kind) VALUES ($1, $2, $3)`,
		u.UID, initialWallet, models.TxKindCreditTopup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByTelegramID возвращает пользователя по его telegram id.
func (s *Storage) GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	const op = "storage.GetUserByTelegramID"

	query := `SELECT uid, telegram_id, role, wallet, created_at
			  FROM users
			  WHERE telegram_id = $1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, telegramID).
		Scan(&u.UID, &u.TelegramID, &u.Role, &u.Wallet, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"

	query := `SELECT uid, telegram_id, role, wallet, created_at
			  FROM users
			  WHERE uid = $1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, userUID).
		Scan(&u.UID, &u.TelegramID, &u.Role, &u.Wallet, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей, отсортированных по дате создания.
func (s *Storage) ListUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.ListUsers"

	query := `SELECT uid, telegram_id, role, wallet, created_at
			  FROM users
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		if err = rows.Scan(&u.UID, &u.TelegramID, &u.Role, &u.Wallet, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
