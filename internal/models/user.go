// Package models содержит доменные модели сервиса: пользователя с кошельком,
// подписку, транзакцию и сообщение, а также вспомогательные типы для приёма
// данных из внешних источников (JSON-запросы, сообщения брокера).
package models

import "time"

// Роли пользователя.
const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

// User представляет пользователя сервиса. Пользователь создаётся при первом
// обращении и идентифицируется внешним telegram id. Баланс кошелька хранится
// в целых монетах и не может быть отрицательным.
type User struct {
	UID        string    // Уникальный идентификатор пользователя
	TelegramID string    // Внешний идентификатор (telegram id)
	Role       string    // Роль пользователя, standard или admin
	Wallet     int       // Баланс кошелька в монетах
	CreatedAt  time.Time // Дата создания
}
