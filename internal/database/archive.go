package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smena/internal/models"
)

// InsertArchiveRecord дописывает снимок смены в архив.
func (db *DB) InsertArchiveRecord(ctx context.Context, rec *models.ShiftArchiveRecord) error {
	dateISO, err := dateToISO(rec.BusinessDate)
	if err != nil {
		return err
	}

	bookings, err := json.Marshal(rec.Bookings)
	if err != nil {
		return fmt.Errorf("failed to marshal archived bookings: %w", err)
	}
	expenses, err := json.Marshal(rec.Expenses)
	if err != nil {
		return fmt.Errorf("failed to marshal archived expenses: %w", err)
	}

	result, err := db.db.ExecContext(ctx,
		`INSERT INTO shift_archive (chat_id, business_date, title, bookings, expenses, archived_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ChatID, dateISO, rec.Title, string(bookings), string(expenses), rec.ArchivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert archive record: %w", err)
	}

	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get archive record id: %w", err)
	}
	return nil
}

// GetArchiveByDateRange возвращает архивные смены с бизнес-датой в
// [dateFrom, dateTo] включительно.
func (db *DB) GetArchiveByDateRange(ctx context.Context, dateFrom, dateTo string) ([]models.ShiftArchiveRecord, error) {
	fromISO, err := dateToISO(dateFrom)
	if err != nil {
		return nil, err
	}
	toISO, err := dateToISO(dateTo)
	if err != nil {
		return nil, err
	}

	rows, err := db.db.QueryContext(ctx,
		`SELECT id, chat_id, business_date, title, bookings, expenses, archived_at
         FROM shift_archive WHERE business_date >= ? AND business_date <= ?
         ORDER BY business_date ASC, id ASC`, fromISO, toISO)
	if err != nil {
		return nil, fmt.Errorf("failed to get archive: %w", err)
	}
	defer rows.Close()

	var records []models.ShiftArchiveRecord
	for rows.Next() {
		rec, err := scanArchiveRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// HasArchiveRecord сообщает, архивировалась ли уже смена чата на дату.
// Отчёты используют это для дедупликации: архив побеждает живые данные.
func (db *DB) HasArchiveRecord(ctx context.Context, chatID int64, businessDate string) (bool, error) {
	dateISO, err := dateToISO(businessDate)
	if err != nil {
		return false, err
	}
	var one int
	err = db.db.QueryRowContext(ctx,
		`SELECT 1 FROM shift_archive WHERE chat_id = ? AND business_date = ? LIMIT 1`,
		chatID, dateISO,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check archive record: %w", err)
	}
	return true, nil
}

// PruneArchive удаляет записи с бизнес-датой старше cutoff и возвращает
// количество удалённых.
func (db *DB) PruneArchive(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.db.ExecContext(ctx,
		`DELETE FROM shift_archive WHERE business_date < ?`, cutoff.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to prune archive: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned records: %w", err)
	}
	return removed, nil
}

func scanArchiveRecord(rows *sql.Rows) (*models.ShiftArchiveRecord, error) {
	var rec models.ShiftArchiveRecord
	var dateISO, bookings, expenses string
	if err := rows.Scan(&rec.ID, &rec.ChatID, &dateISO, &rec.Title, &bookings, &expenses, &rec.ArchivedAt); err != nil {
		return nil, fmt.Errorf("failed to scan archive record: %w", err)
	}

	var err error
	if rec.BusinessDate, err = dateFromISO(dateISO); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(bookings), &rec.Bookings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archived bookings: %w", err)
	}
	if err := json.Unmarshal([]byte(expenses), &rec.Expenses); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archived expenses: %w", err)
	}
	return &rec, nil
}
