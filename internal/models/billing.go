package models

import "time"

// Виды транзакций в журнале списаний и пополнений.
const (
	TxKindDebitSubscription = "debit-subscription"
	TxKindCreditTopup       = "credit-topup"
	TxKindRefund            = "refund"
)

// Subscription представляет оплаченный период доступа к сервису.
// Запись неизменяема после создания; подписка считается активной,
// если текущий момент попадает в полуинтервал [StartDate, EndDate).
type Subscription struct {
	ID        int
	UserUID   string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// Transaction представляет запись журнала движения монет по кошельку.
// Журнал append-only: сумма всех транзакций пользователя воспроизводит
// текущий баланс кошелька. Списания хранятся с отрицательным знаком.
type Transaction struct {
	ID        int
	UserUID   string
	Amount    int
	Kind      string
	CreatedAt time.Time
}

// DebitResult результат успешного списания за подписку.
type DebitResult struct {
	NewBalance int       // Баланс кошелька после списания
	Cost       int       // Стоимость подписки в монетах
	EndDate    time.Time // Дата окончания купленной подписки
}
