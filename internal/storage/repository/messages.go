package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/llm-service/internal/models"
)

// CreateMessage сохраняет запрос пользователя в статусе pending.
func (s *Storage) CreateMessage(ctx context.Context, userUID, content string) (*models.Message, error) {
	const op = "storage.CreateMessage"

	m := &models.Message{
		UserUID: userUID,
		Content: content,
		Status:  models.MessageStatusPending,
	}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO messages (user_uid, content, response, status)
		 VALUES ($1, $2, '', $3)
		 RETURNING id, created_at`,
		userUID, content, models.MessageStatusPending).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// ResolveMessage переводит сообщение в статус answered и сохраняет ответ,
// но только если сообщение всё ещё в статусе pending. Возвращает, применилась
// ли запись: false означает, что сообщение уже разрешено другим участником
// и его результат перезаписывать нельзя.
func (s *Storage) ResolveMessage(ctx context.Context, messageID int64, response string) (bool, error) {
	const op = "storage.ResolveMessage"
	return s.finishMessage(ctx, op, messageID, models.MessageStatusAnswered, response)
}

// FailMessage переводит сообщение в статус failed с текстом причины.
// Семантика идемпотентности та же, что у ResolveMessage.
func (s *Storage) FailMessage(ctx context.Context, messageID int64, errText string) (bool, error) {
	const op = "storage.FailMessage"
	return s.finishMessage(ctx, op, messageID, models.MessageStatusFailed, errText)
}

// finishMessage единственная точка выхода из статуса pending. Условие
// status = 'pending' в UPDATE гарантирует, что из двух конкурирующих
// записей (ответ воркера и обработчик таймаута) победит ровно одна.
func (s *Storage) finishMessage(ctx context.Context, op string, messageID int64, status, response string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE messages SET status = $1, response = $2
		 WHERE id = $3 AND status = $4`,
		status, response, messageID, models.MessageStatusPending)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected == 1, nil
}

// GetMessage возвращает сообщение по id.
func (s *Storage) GetMessage(ctx context.Context, messageID int64) (*models.Message, error) {
	const op = "storage.GetMessage"

	m := &models.Message{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_uid, content, response, status, created_at
		 FROM messages WHERE id = $1`,
		messageID).Scan(&m.ID, &m.UserUID, &m.Content, &m.Response, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrMessageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// ListMessages возвращает историю сообщений пользователя, новые первыми.
func (s *Storage) ListMessages(ctx context.Context, userUID string, limit int) ([]*models.Message, error) {
	const op = "storage.ListMessages"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_uid, content, response, status, created_at
		 FROM messages
		 WHERE user_uid = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userUID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Message
	for rows.Next() {
		var m models.Message
		if err = rows.Scan(&m.ID, &m.UserUID, &m.Content, &m.Response, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
