package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"smena/internal/models"
)

// GetSettings возвращает настройки процесса. Отсутствие строки — не
// ошибка: возвращаются пустые настройки, работают значения по умолчанию.
func (db *DB) GetSettings(ctx context.Context) (*models.Settings, error) {
	var payload string
	err := db.db.QueryRowContext(ctx, `SELECT payload FROM settings WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var settings models.Settings
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings перезаписывает настройки целиком. Вызывается после каждой
// административной мутации.
func (db *DB) SaveSettings(ctx context.Context, settings *models.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = db.db.ExecContext(ctx,
		`INSERT INTO settings (id, payload) VALUES (1, ?)
         ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
