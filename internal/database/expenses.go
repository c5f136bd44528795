package database

import (
	"context"
	"fmt"

	"smena/internal/models"
)

// InsertExpense добавляет расход; глобальный id присваивает sqlite.
func (db *DB) InsertExpense(ctx context.Context, e *models.Expense) error {
	dateISO, err := dateToISO(e.Date)
	if err != nil {
		return err
	}

	result, err := db.db.ExecContext(ctx,
		`INSERT INTO expenses (chat_id, date, type, amount, currency, amount_usd, comment, author_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ChatID, dateISO, e.Type, e.Amount, e.Currency, e.AmountUSD, e.Comment, e.AuthorID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	e.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get expense id: %w", err)
	}
	return nil
}

// GetExpenses возвращает расходы чата за бизнес-дату.
func (db *DB) GetExpenses(ctx context.Context, chatID int64, businessDate string) ([]models.Expense, error) {
	dateISO, err := dateToISO(businessDate)
	if err != nil {
		return nil, err
	}
	return db.queryExpenses(ctx,
		`SELECT id, chat_id, date, type, amount, currency, amount_usd, comment, author_id, created_at
         FROM expenses WHERE chat_id = ? AND date = ? ORDER BY id ASC`, chatID, dateISO)
}

// GetExpensesByDateRange возвращает расходы всех чатов за период включительно.
func (db *DB) GetExpensesByDateRange(ctx context.Context, dateFrom, dateTo string) ([]models.Expense, error) {
	fromISO, err := dateToISO(dateFrom)
	if err != nil {
		return nil, err
	}
	toISO, err := dateToISO(dateTo)
	if err != nil {
		return nil, err
	}
	return db.queryExpenses(ctx,
		`SELECT id, chat_id, date, type, amount, currency, amount_usd, comment, author_id, created_at
         FROM expenses WHERE date >= ? AND date <= ? ORDER BY date ASC, id ASC`, fromISO, toISO)
}

func (db *DB) queryExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var dateISO string
		if err := rows.Scan(
			&e.ID, &e.ChatID, &dateISO, &e.Type, &e.Amount, &e.Currency,
			&e.AmountUSD, &e.Comment, &e.AuthorID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if e.Date, err = dateFromISO(dateISO); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
