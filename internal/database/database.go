package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB — единое хранилище: смены, брони, расходы, архив смен и настройки.
// sqlite сериализует записи сам; многошаговые мутации идут в транзакциях.
type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// иначе каждое соединение пула получает свою пустую базу
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("База данных инициализирована")
	return &DB{db: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Живая смена каждого чата
		`CREATE TABLE IF NOT EXISTS shifts (
            chat_id INTEGER PRIMARY KEY,
            business_date TEXT NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            next_booking_id INTEGER NOT NULL DEFAULT 1,
            board_message_id INTEGER NOT NULL DEFAULT 0,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Брони активной смены; id уникален в пределах (чат, смена)
		`CREATE TABLE IF NOT EXISTS bookings (
            chat_id INTEGER NOT NULL,
            id INTEGER NOT NULL,
            time TEXT NOT NULL,
            descriptor TEXT NOT NULL,
            duration_sec INTEGER NOT NULL,
            duration_label TEXT NOT NULL,
            raw_text TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            author_id INTEGER NOT NULL,
            reply_message_id INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (chat_id, id)
        )`,
		// Расходы: глобальные id, привязка к чату и явной дате
		`CREATE TABLE IF NOT EXISTS expenses (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            chat_id INTEGER NOT NULL,
            date TEXT NOT NULL,
            type TEXT NOT NULL,
            amount REAL NOT NULL,
            currency TEXT NOT NULL,
            amount_usd REAL NOT NULL,
            comment TEXT NOT NULL DEFAULT '',
            author_id INTEGER NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		// Архив закрытых смен, append-only; снимки броней и расходов — JSON
		`CREATE TABLE IF NOT EXISTS shift_archive (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            chat_id INTEGER NOT NULL,
            business_date TEXT NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            bookings TEXT NOT NULL,
            expenses TEXT NOT NULL,
            archived_at DATETIME NOT NULL
        )`,
		// Настройки процесса одной JSON-строкой
		`CREATE TABLE IF NOT EXISTS settings (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            payload TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_chat_id ON bookings(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_chat_date ON expenses(chat_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
		`CREATE INDEX IF NOT EXISTS idx_archive_date ON shift_archive(business_date)`,
		`CREATE INDEX IF NOT EXISTS idx_archive_chat_date ON shift_archive(chat_id, business_date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Ping() error {
	return db.db.Ping()
}

func (db *DB) Close() error {
	return db.db.Close()
}

// dateToISO переводит бизнес-дату "DD.MM.YYYY" в сортируемый вид для SQL.
func dateToISO(businessDate string) (string, error) {
	t, err := time.Parse("02.01.2006", businessDate)
	if err != nil {
		return "", fmt.Errorf("%w: некорректная бизнес-дата %q", ErrValidation, businessDate)
	}
	return t.Format("2006-01-02"), nil
}

func dateFromISO(iso string) (string, error) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return "", fmt.Errorf("некорректная дата в хранилище %q: %w", iso, err)
	}
	return t.Format("02.01.2006"), nil
}
