package models

import "time"

// BookingStatus — единое перечисляемое состояние брони.
// Переходы: Pending → Done (пришёл), Pending/Done → Cancelled (не пришёл),
// любое не-Deleted → Deleted (бронь отменена, терминальное состояние).
// Редактирование брони всегда возвращает статус в Pending.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusDone      BookingStatus = "done"
	StatusCancelled BookingStatus = "cancelled"
	StatusDeleted   BookingStatus = "deleted"
)

// Booking — одна бронь внутри смены чата.
type Booking struct {
	ID             int64         `json:"id"`
	ChatID         int64         `json:"chat_id"`
	Time           string        `json:"time"` // "HH:MM"
	Descriptor     string        `json:"descriptor"`
	DurationSec    int           `json:"duration_sec"`
	DurationLabel  string        `json:"duration_label"`
	RawText        string        `json:"raw_text"`
	Status         BookingStatus `json:"status"`
	AuthorID       int64         `json:"author_id"`
	ReplyMessageID int           `json:"reply_message_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Active сообщает, учитывается ли бронь в списках (не удалена).
func (b *Booking) Active() bool {
	return b.Status != StatusDeleted
}

// Arrived сообщает, пришёл ли клиент — только такие брони попадают в выручку.
func (b *Booking) Arrived() bool {
	return b.Status == StatusDone
}

// ExtractionSource возвращает текст, по которому ищутся суммы.
// Дескриптор очищен от токенов длительности и мог потерять валютные токены,
// поэтому приоритет всегда у исходного текста.
func (b *Booking) ExtractionSource() string {
	if b.RawText != "" {
		return b.RawText
	}
	return b.Descriptor
}
