package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smena/internal/models"
)

// GetShift возвращает смену чата с бронями и расходами её даты.
// Отсутствие смены — ErrNotFound: ленивое создание решает вызывающий.
func (db *DB) GetShift(ctx context.Context, chatID int64) (*models.Shift, error) {
	shift := &models.Shift{ChatID: chatID}
	var dateISO string
	err := db.db.QueryRowContext(ctx,
		`SELECT business_date, title, next_booking_id, board_message_id FROM shifts WHERE chat_id = ?`,
		chatID,
	).Scan(&dateISO, &shift.Title, &shift.NextBookingID, &shift.BoardMessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("смена чата %d: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}

	shift.BusinessDate, err = dateFromISO(dateISO)
	if err != nil {
		return nil, err
	}

	shift.Bookings, err = db.getBookings(ctx, chatID)
	if err != nil {
		return nil, err
	}

	shift.Expenses, err = db.GetExpenses(ctx, chatID, shift.BusinessDate)
	if err != nil {
		return nil, err
	}
	return shift, nil
}

// CreateShift заводит пустую смену чата.
func (db *DB) CreateShift(ctx context.Context, shift *models.Shift) error {
	dateISO, err := dateToISO(shift.BusinessDate)
	if err != nil {
		return err
	}
	if shift.NextBookingID == 0 {
		shift.NextBookingID = 1
	}
	_, err = db.db.ExecContext(ctx,
		`INSERT INTO shifts (chat_id, business_date, title, next_booking_id, board_message_id) VALUES (?, ?, ?, ?, ?)`,
		shift.ChatID, dateISO, shift.Title, shift.NextBookingID, shift.BoardMessageID,
	)
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

// ResetShift сбрасывает смену чата на новую дату: брони удаляются,
// счётчик id начинается заново. Одна транзакция, чтобы переход смены
// не оставил полусброшенное состояние.
func (db *DB) ResetShift(ctx context.Context, chatID int64, businessDate, title string) error {
	dateISO, err := dateToISO(businessDate)
	if err != nil {
		return err
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to clear bookings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE shifts SET business_date = ?, title = ?, next_booking_id = 1, updated_at = ? WHERE chat_id = ?`,
		dateISO, title, time.Now(), chatID,
	); err != nil {
		return fmt.Errorf("failed to reset shift: %w", err)
	}

	return tx.Commit()
}

// UpdateShiftTitle обновляет отображаемое имя чата в смене.
func (db *DB) UpdateShiftTitle(ctx context.Context, chatID int64, title string) error {
	_, err := db.db.ExecContext(ctx,
		`UPDATE shifts SET title = ?, updated_at = ? WHERE chat_id = ?`,
		title, time.Now(), chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to update shift title: %w", err)
	}
	return nil
}

// UpdateBoardMessage запоминает id сообщения-табло чата.
func (db *DB) UpdateBoardMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := db.db.ExecContext(ctx,
		`UPDATE shifts SET board_message_id = ?, updated_at = ? WHERE chat_id = ?`,
		messageID, time.Now(), chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to update board message: %w", err)
	}
	return nil
}

// GetAllShifts возвращает смены всех чатов (без броней) для обходов
// планировщика и сводных отчётов.
func (db *DB) GetAllShifts(ctx context.Context) ([]models.Shift, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT chat_id, business_date, title, next_booking_id, board_message_id FROM shifts`)
	if err != nil {
		return nil, fmt.Errorf("failed to get shifts: %w", err)
	}
	defer rows.Close()

	var shifts []models.Shift
	for rows.Next() {
		var s models.Shift
		var dateISO string
		if err := rows.Scan(&s.ChatID, &dateISO, &s.Title, &s.NextBookingID, &s.BoardMessageID); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		if s.BusinessDate, err = dateFromISO(dateISO); err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// InsertBooking добавляет бронь и продвигает счётчик id смены атомарно.
func (db *DB) InsertBooking(ctx context.Context, b *models.Booking) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (chat_id, id, time, descriptor, duration_sec, duration_label, raw_text, status, author_id, reply_message_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ChatID, b.ID, b.Time, b.Descriptor, b.DurationSec, b.DurationLabel,
		b.RawText, b.Status, b.AuthorID, b.ReplyMessageID, b.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE shifts SET next_booking_id = ?, updated_at = ? WHERE chat_id = ?`,
		b.ID+1, time.Now(), b.ChatID,
	); err != nil {
		return fmt.Errorf("failed to advance booking counter: %w", err)
	}

	return tx.Commit()
}

// UpdateBooking перезаписывает изменяемые поля брони.
func (db *DB) UpdateBooking(ctx context.Context, b *models.Booking) error {
	result, err := db.db.ExecContext(ctx,
		`UPDATE bookings SET time = ?, descriptor = ?, duration_sec = ?, duration_label = ?,
                raw_text = ?, status = ?, reply_message_id = ? WHERE chat_id = ? AND id = ?`,
		b.Time, b.Descriptor, b.DurationSec, b.DurationLabel,
		b.RawText, b.Status, b.ReplyMessageID, b.ChatID, b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("бронь %d в чате %d: %w", b.ID, b.ChatID, ErrNotFound)
	}
	return nil
}

func (db *DB) getBookings(ctx context.Context, chatID int64) ([]models.Booking, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT chat_id, id, time, descriptor, duration_sec, duration_label, raw_text, status, author_id, reply_message_id, created_at
         FROM bookings WHERE chat_id = ? ORDER BY id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ChatID, &b.ID, &b.Time, &b.Descriptor, &b.DurationSec, &b.DurationLabel,
			&b.RawText, &b.Status, &b.AuthorID, &b.ReplyMessageID, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
