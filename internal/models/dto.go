package models

// TokenRequest используется для приёма запроса на выпуск токена доступа.
type TokenRequest struct {
	TelegramID string `json:"telegram_id" validate:"required,numeric"`
}

// MessageRequest используется для приёма запроса к языковой модели.
type MessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// TopupRequest используется для приёма запроса на пополнение кошелька.
// Сумма должна быть строго положительной.
type TopupRequest struct {
	Amount int `json:"amount" validate:"required,gt=0"`
}
