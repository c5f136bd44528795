package models

import "time"

// EditState — состояние диалога редактирования брони: пользователь нажал
// «Редактировать» и от него ждут новый текст брони.
type EditState struct {
	UserID          int64     `json:"user_id"`
	ChatID          int64     `json:"chat_id"`
	BookingID       int64     `json:"booking_id"`
	PromptMessageID int       `json:"prompt_message_id,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}
