package memory

import (
	"context"
	"sort"
	"sync"

	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/model"
)

// Storage - in-memory хранилище записей, используется в тестах
// и при DURABLE_BACKEND=memory
type Storage struct {
	mu     sync.RWMutex
	tables map[storage.Table]map[string]model.StoredRecord
	closed bool
}

func New() *Storage {
	tables := make(map[storage.Table]map[string]model.StoredRecord, len(storage.Tables))
	for _, t := range storage.Tables {
		tables[t] = make(map[string]model.StoredRecord)
	}
	return &Storage{tables: tables}
}

// Opener возвращает один и тот же экземпляр при каждом открытии
func Opener(s *Storage) storage.Opener {
	return func(_ context.Context) (storage.RecordStore, error) {
		return s, nil
	}
}

func (m *Storage) Put(ctx context.Context, table storage.Table, rec model.StoredRecord) error {
	if err := storage.ValidateRecord(rec); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, table)
	if err != nil {
		return err
	}
	t[rec.Key] = clone(rec)
	return nil
}

func (m *Storage) Get(ctx context.Context, table storage.Table, key string) (model.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(ctx, table)
	if err != nil {
		return model.StoredRecord{}, err
	}
	rec, exists := t[key]
	if !exists {
		return model.StoredRecord{}, storage.ErrNotFound
	}
	return clone(rec), nil
}

func (m *Storage) GetAll(ctx context.Context, table storage.Table) ([]model.StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(ctx, table)
	if err != nil {
		return nil, err
	}
	records := make([]model.StoredRecord, 0, len(t))
	for _, key := range sortedKeys(t) {
		records = append(records, clone(t[key]))
	}
	return records, nil
}

func (m *Storage) Delete(ctx context.Context, table storage.Table, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, table)
	if err != nil {
		return err
	}
	delete(t, key)
	return nil
}

func (m *Storage) ClearTable(ctx context.Context, table storage.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.table(ctx, table); err != nil {
		return err
	}
	m.tables[table] = make(map[string]model.StoredRecord)
	return nil
}

func (m *Storage) GetAllKeys(ctx context.Context, table storage.Table) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.table(ctx, table)
	if err != nil {
		return nil, err
	}
	return sortedKeys(t), nil
}

// BulkPut сначала проверяет весь пакет, затем применяет его под одной блокировкой
func (m *Storage) BulkPut(ctx context.Context, table storage.Table, recs []model.StoredRecord) error {
	for _, rec := range recs {
		if err := storage.ValidateRecord(rec); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, table)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		t[rec.Key] = clone(rec)
	}
	return nil
}

// SweepExpired просматривает таблицу целиком: индекса в памяти нет
func (m *Storage) SweepExpired(ctx context.Context, table storage.Table, now int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.table(ctx, table)
	if err != nil {
		return 0, err
	}
	removed := 0
	for key, rec := range t {
		if rec.IsExpired(now) {
			delete(t, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Storage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Reopen снимает признак закрытия, данные сохраняются
func (m *Storage) Reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}

func (m *Storage) table(ctx context.Context, table storage.Table) (map[string]model.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed {
		return nil, storage.ErrClosed
	}
	if err := storage.ValidateTable(table); err != nil {
		return nil, err
	}
	return m.tables[table], nil
}

func clone(rec model.StoredRecord) model.StoredRecord {
	out := rec
	out.Data = append([]byte(nil), rec.Data...)
	if rec.Expiry != nil {
		out.Expiry = model.ExpiryPtr(*rec.Expiry)
	}
	return out
}

func sortedKeys(t map[string]model.StoredRecord) []string {
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var _ storage.RecordStore = (*Storage)(nil)
