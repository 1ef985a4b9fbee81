package models

import (
	"errors"
	"fmt"
)

// Сентинельные ошибки доменного слоя. Обработчики сопоставляют их
// с HTTP-статусами, бот — с текстами ответов пользователю.
var (
	// ErrInsufficientFunds недостаточно монет для списания; кошелёк не изменён.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoActiveSubscription у пользователя нет активной подписки.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrActiveSubscriptionExists активная подписка уже есть, повторная покупка запрещена.
	ErrActiveSubscriptionExists = errors.New("active subscription already exists")
	// ErrBrokerUnavailable транспорт брокера недоступен; операция может быть повторена.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrNoMessage в канале брокера нет новых сообщений.
	ErrNoMessage = errors.New("no message available")
	// ErrUserNotFound пользователь не найден в хранилище.
	ErrUserNotFound = errors.New("user not found")
	// ErrMessageNotFound сообщение не найдено в хранилище.
	ErrMessageNotFound = errors.New("message not found")
)

// InsufficientFundsError несёт суммы для сообщения пользователю:
// сколько требовалось и сколько было на кошельке. Сопоставляется
// с ErrInsufficientFunds через errors.Is.
type InsufficientFundsError struct {
	Required  int
	Available int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d, available %d", e.Required, e.Available)
}

// Is позволяет errors.Is(err, ErrInsufficientFunds) срабатывать на типизированной ошибке.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
