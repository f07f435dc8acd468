package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"wealthtracker/internal/infrastructure/migration"
	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/model"
)

// Storage - RecordStore поверх SQLite. Схема создается миграциями,
// индекс idx_<table>_expiry обслуживает SweepExpired.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open открывает базу и применяет встроенные миграции
func Open(ctx context.Context, path string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: ошибка создания каталога: %v", storage.ErrUnavailable, err)
	}

	if err := migration.NewMigration(path, migration.DefaultEngine).Up(); err != nil {
		return nil, fmt.Errorf("%w: ошибка миграции схемы: %v", storage.ErrUnavailable, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка открытия базы данных: %v", storage.ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: база данных недоступна: %v", storage.ErrUnavailable, err)
	}

	logger.Debug("opened record store", "path", path, "backend", "sqlite")
	return &Storage{db: db, logger: logger}, nil
}

// Opener адаптирует Open к storage.Opener
func Opener(path string, logger *slog.Logger) storage.Opener {
	return func(ctx context.Context) (storage.RecordStore, error) {
		return Open(ctx, path, logger)
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, ex execer, table storage.Table, rec model.StoredRecord) error {
	var expiry sql.NullInt64
	if rec.Expiry != nil {
		expiry = sql.NullInt64{Int64: *rec.Expiry, Valid: true}
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO `+string(table)+` (key, data, timestamp, encrypted, compressed, expiry)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			timestamp = excluded.timestamp,
			encrypted = excluded.encrypted,
			compressed = excluded.compressed,
			expiry = excluded.expiry
	`, rec.Key, string(rec.Data), rec.Timestamp, rec.Encrypted, rec.Compressed, expiry)
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи %q: %w", rec.Key, err)
	}
	return nil
}

func (s *Storage) Put(ctx context.Context, table storage.Table, rec model.StoredRecord) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	if err := storage.ValidateRecord(rec); err != nil {
		return err
	}
	return upsert(ctx, s.db, table, rec)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (model.StoredRecord, error) {
	var (
		rec    model.StoredRecord
		data   string
		expiry sql.NullInt64
	)
	if err := row.Scan(&rec.Key, &data, &rec.Timestamp, &rec.Encrypted, &rec.Compressed, &expiry); err != nil {
		return rec, err
	}
	rec.Data = []byte(data)
	if expiry.Valid {
		rec.Expiry = model.ExpiryPtr(expiry.Int64)
	}
	return rec, nil
}

const selectColumns = "SELECT key, data, timestamp, encrypted, compressed, expiry FROM "

func (s *Storage) Get(ctx context.Context, table storage.Table, key string) (model.StoredRecord, error) {
	if err := s.check(ctx, table); err != nil {
		return model.StoredRecord{}, err
	}

	row := s.db.QueryRowContext(ctx, selectColumns+string(table)+" WHERE key = ?", key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return model.StoredRecord{}, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

func (s *Storage) GetAll(ctx context.Context, table storage.Table) ([]model.StoredRecord, error) {
	if err := s.check(ctx, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+string(table)+" ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var records []model.StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Storage) Delete(ctx context.Context, table storage.Table, key string) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+string(table)+" WHERE key = ?", key); err != nil {
		return fmt.Errorf("ошибка удаления записи: %w", err)
	}
	return nil
}

func (s *Storage) ClearTable(ctx context.Context, table storage.Table) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+string(table)); err != nil {
		return fmt.Errorf("ошибка очистки таблицы: %w", err)
	}
	return nil
}

func (s *Storage) GetAllKeys(ctx context.Context, table storage.Table) ([]string, error) {
	if err := s.check(ctx, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT key FROM "+string(table)+" ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ключа: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// BulkPut пишет весь пакет в одной транзакции
func (s *Storage) BulkPut(ctx context.Context, table storage.Table, recs []model.StoredRecord) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := storage.ValidateRecord(rec); err != nil {
			return err
		}
	}
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if err := upsert(ctx, tx, table, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// SweepExpired удаляет записи по индексу expiry
func (s *Storage) SweepExpired(ctx context.Context, table storage.Table, now int64) (int, error) {
	if err := s.check(ctx, table); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM "+string(table)+" WHERE expiry IS NOT NULL AND expiry <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления просроченных записей: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета удаленных записей: %w", err)
	}
	return int(n), nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// check допускает только известные таблицы: имя таблицы подставляется в SQL
func (s *Storage) check(ctx context.Context, table storage.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return storage.ValidateTable(table)
}

var _ storage.RecordStore = (*Storage)(nil)
