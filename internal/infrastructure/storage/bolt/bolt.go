package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/exp/slog"

	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/model"
)

// Store реализует storage.RecordStore на bbolt. Каждая таблица - бакет записей
// в JSON, прямой индекс сроков (be64(expiry)||key -> key) и обратный индекс
// (key -> be64(expiry)), по которому перезапись удаляет старый элемент индекса.
type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
	noSync bool
}

// Option настраивает Store
type Option func(*Store)

// WithLogger задает логгер хранилища
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNoSync отключает fsync на транзакцию. Только для тестов.
func WithNoSync(noSync bool) Option {
	return func(s *Store) {
		s.noSync = noSync
	}
}

// Open открывает (или создает) базу по path и создает недостающие бакеты
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating data dir: %v", storage.ErrUnavailable, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout: time.Second,
		NoSync:  s.noSync,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", storage.ErrUnavailable, err)
	}
	s.db = db

	if err := s.createBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("opened record store", "path", path, "backend", "bolt")
	return s, nil
}

// Opener адаптирует Open к storage.Opener
func Opener(path string, opts ...Option) storage.Opener {
	return func(_ context.Context) (storage.RecordStore, error) {
		return Open(path, opts...)
	}
}

func (s *Store) createBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, table := range storage.Tables {
			for _, name := range bucketNames(table) {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("creating bucket %s: %w", name, err)
				}
			}
		}
		return nil
	})
}

// Close закрывает базу
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Debug("closing record store")
	return s.db.Close()
}

// Put вставляет или заменяет rec по ключу
func (s *Store) Put(ctx context.Context, table storage.Table, rec model.StoredRecord) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	if err := storage.ValidateRecord(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return putTx(tx, table, rec, data)
	})
}

// Get возвращает storage.ErrNotFound, если ключа нет
func (s *Store) Get(ctx context.Context, table storage.Table, key string) (model.StoredRecord, error) {
	var rec model.StoredRecord
	if err := s.check(ctx, table); err != nil {
		return rec, err
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		val := tx.Bucket(dataBucket(table)).Get([]byte(key))
		if val == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(val, &rec)
	})
	return rec, err
}

// GetAll возвращает все записи в порядке ключей
func (s *Store) GetAll(ctx context.Context, table storage.Table) ([]model.StoredRecord, error) {
	if err := s.check(ctx, table); err != nil {
		return nil, err
	}

	var recs []model.StoredRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(dataBucket(table)).ForEach(func(_, v []byte) error {
			var rec model.StoredRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

// Delete удаляет ключ и его элементы индекса. Отсутствующий ключ не ошибка.
func (s *Store) Delete(ctx context.Context, table storage.Table, key string) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return deleteTx(tx, table, []byte(key))
	})
}

// ClearTable пересоздает бакеты таблицы
func (s *Store) ClearTable(ctx context.Context, table storage.Table) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range bucketNames(table) {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return fmt.Errorf("deleting bucket %s: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// GetAllKeys возвращает ключи таблицы в порядке байтов
func (s *Store) GetAllKeys(ctx context.Context, table storage.Table) ([]string, error) {
	if err := s.check(ctx, table); err != nil {
		return nil, err
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(dataBucket(table)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// BulkPut пишет все записи одной транзакцией bbolt
func (s *Store) BulkPut(ctx context.Context, table storage.Table, recs []model.StoredRecord) error {
	if err := s.check(ctx, table); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}

	// Кодируем все до открытия транзакции
	encoded := make([][]byte, len(recs))
	for i, rec := range recs {
		if err := storage.ValidateRecord(rec); err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record %q: %w", rec.Key, err)
		}
		encoded[i] = data
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for i, rec := range recs {
			if err := putTx(tx, table, rec, encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SweepExpired проходит индекс сроков до now и удаляет найденные записи
func (s *Store) SweepExpired(ctx context.Context, table storage.Table, now int64) (int, error) {
	if err := s.check(ctx, table); err != nil {
		return 0, err
	}

	var removed int
	cutoff := encodeExpiry(now)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var expired [][]byte
		cursor := tx.Bucket(expiryBucket(table)).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			// Ключи отсортированы по сроку, дальше границы не идем
			if bytes.Compare(k[:8], cutoff) > 0 {
				break
			}
			key := make([]byte, len(v))
			copy(key, v)
			expired = append(expired, key)
		}

		for _, key := range expired {
			if err := deleteTx(tx, table, key); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *Store) check(ctx context.Context, table storage.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db == nil {
		return storage.ErrClosed
	}
	return storage.ValidateTable(table)
}

func putTx(tx *bbolt.Tx, table storage.Table, rec model.StoredRecord, data []byte) error {
	key := []byte(rec.Key)
	if err := tx.Bucket(dataBucket(table)).Put(key, data); err != nil {
		return fmt.Errorf("putting record: %w", err)
	}
	return updateExpiryIndex(tx, table, key, rec.Expiry)
}

func deleteTx(tx *bbolt.Tx, table storage.Table, key []byte) error {
	if err := updateExpiryIndex(tx, table, key, nil); err != nil {
		return err
	}
	if err := tx.Bucket(dataBucket(table)).Delete(key); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// updateExpiryIndex удаляет старый прямой элемент, найденный по обратному
// индексу, и пишет новые, если срок задан
func updateExpiryIndex(tx *bbolt.Tx, table storage.Table, key []byte, expiry *int64) error {
	forward := tx.Bucket(expiryBucket(table))
	reverse := tx.Bucket(reverseBucket(table))

	if ts := reverse.Get(key); ts != nil {
		if err := forward.Delete(makeExpiryKey(ts, key)); err != nil {
			return fmt.Errorf("deleting old expiry index: %w", err)
		}
		if err := reverse.Delete(key); err != nil {
			return fmt.Errorf("deleting expiry reverse index: %w", err)
		}
	}

	if expiry == nil {
		return nil
	}

	ts := encodeExpiry(*expiry)
	if err := forward.Put(makeExpiryKey(ts, key), key); err != nil {
		return fmt.Errorf("putting expiry index: %w", err)
	}
	if err := reverse.Put(key, ts); err != nil {
		return fmt.Errorf("putting expiry reverse index: %w", err)
	}
	return nil
}

func dataBucket(table storage.Table) []byte {
	return []byte(table)
}

func expiryBucket(table storage.Table) []byte {
	return []byte(string(table) + "_by_expiry")
}

func reverseBucket(table storage.Table) []byte {
	return []byte(string(table) + "_expiry_by_key")
}

func bucketNames(table storage.Table) [][]byte {
	return [][]byte{dataBucket(table), expiryBucket(table), reverseBucket(table)}
}

// encodeExpiry инвертирует знаковый бит, чтобы отрицательные метки шли первыми
func encodeExpiry(ms int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ms)^(1<<63))
	return buf
}

func makeExpiryKey(ts, key []byte) []byte {
	out := make([]byte, 0, len(ts)+len(key))
	out = append(out, ts...)
	return append(out, key...)
}

var _ storage.RecordStore = (*Store)(nil)
