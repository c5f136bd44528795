package models

import "time"

// Shift — рабочий набор одного чата между двумя границами 09:00.
type Shift struct {
	ChatID         int64     `json:"chat_id"`
	BusinessDate   string    `json:"business_date"` // "DD.MM.YYYY"
	Title          string    `json:"title"`
	Bookings       []Booking `json:"bookings"`
	Expenses       []Expense `json:"expenses"`
	NextBookingID  int64     `json:"next_booking_id"`
	BoardMessageID int       `json:"board_message_id,omitempty"`
}

// HasBookings — пустые смены не архивируются.
func (s *Shift) HasBookings() bool {
	return len(s.Bookings) > 0
}

// FindBooking возвращает бронь по id или nil.
func (s *Shift) FindBooking(id int64) *Booking {
	for i := range s.Bookings {
		if s.Bookings[i].ID == id {
			return &s.Bookings[i]
		}
	}
	return nil
}

// Expense — строка расходов, привязанная к чату и явной дате.
type Expense struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Date      string    `json:"date"` // "DD.MM.YYYY"
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Currency  Currency  `json:"currency"`
	AmountUSD float64   `json:"amount_usd"` // фиксируется в момент ввода
	Comment   string    `json:"comment"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ShiftArchiveRecord — неизменяемый снимок закрытой смены.
type ShiftArchiveRecord struct {
	ID           int64     `json:"id"`
	ChatID       int64     `json:"chat_id"`
	BusinessDate string    `json:"business_date"`
	Title        string    `json:"title"`
	Bookings     []Booking `json:"bookings"`
	Expenses     []Expense `json:"expenses"`
	ArchivedAt   time.Time `json:"archived_at"`
}
