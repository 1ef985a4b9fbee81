package models

import "time"

// Статусы жизненного цикла сообщения. Сообщение покидает статус pending
// ровно один раз: либо воркер успевает с ответом, либо срабатывает таймаут.
const (
	MessageStatusPending  = "pending"
	MessageStatusAnswered = "answered"
	MessageStatusFailed   = "failed"
)

// Message представляет запрос пользователя к языковой модели и его ответ.
type Message struct {
	ID        int64
	UserUID   string
	Content   string
	Response  string
	Status    string
	CreatedAt time.Time
}

// WorkItem полезная нагрузка канала работ: задание для inference-воркера.
type WorkItem struct {
	MessageID int64  `json:"message_id"`
	Content   string `json:"content"`
}

// ReplyItem полезная нагрузка канала ответов, коррелируется по MessageID.
type ReplyItem struct {
	MessageID int64  `json:"message_id"`
	Response  string `json:"response"`
}
