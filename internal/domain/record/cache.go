package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/metrics"
	"wealthtracker/internal/model"
)

// Cache сохраняет value в таблице кэша. Значения кэша не шифруются и всегда
// истекают через ttl. Запасной записи в устаревшее хранилище для кэша нет.
func (s *Service) Cache(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	serialized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	store := s.durable()
	if store == nil {
		return storage.ErrUnavailable
	}

	now := s.now()
	rec := model.StoredRecord{
		Key:       key,
		Data:      serialized,
		Timestamp: now,
		Expiry:    model.ExpiryPtr(now + ttl.Milliseconds()),
	}
	if err := store.Put(ctx, storage.TableCache, rec); err != nil {
		s.deps.Metrics.Op("cache", metrics.ResultError)
		return fmt.Errorf("cache %q: %w", key, err)
	}
	s.deps.Metrics.Op("cache", metrics.ResultOK)
	return nil
}

// Cached возвращает неистекшее значение кэша
func (s *Service) Cached(ctx context.Context, key string) (json.RawMessage, bool) {
	value, res, err := s.readDurable(ctx, storage.TableCache, key)
	if err != nil {
		s.log.Debug("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return value, res == lookupFound
}

// Sweep удаляет истекшие записи из всех долговременных таблиц
func (s *Service) Sweep(ctx context.Context) (int, error) {
	store := s.durable()
	if store == nil {
		return 0, storage.ErrUnavailable
	}

	now := s.now()
	total := 0
	var errs []error
	for _, table := range storage.Tables {
		n, err := store.SweepExpired(ctx, table, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", table, err))
			continue
		}
		s.deps.Metrics.Swept(string(table), n)
		total += n
	}
	return total, errors.Join(errs...)
}

// GetAs декодирует значение по key в T
func GetAs[T any](ctx context.Context, s Servicer, key string) (T, bool) {
	var out T
	raw, ok := s.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
