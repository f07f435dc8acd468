// Package storagetest общий набор тестов поведения для реализаций storage.RecordStore.
package storagetest

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/model"
)

// Factory возвращает новое пустое хранилище. Закрывает его набор.
type Factory func(t *testing.T) storage.RecordStore

func record(key, data string, expiry *int64) model.StoredRecord {
	return model.StoredRecord{
		Key:       key,
		Data:      json.RawMessage(data),
		Timestamp: 1000,
		Expiry:    expiry,
	}
}

// Run прогоняет набор на хранилищах из newStore
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	open := func(t *testing.T) storage.RecordStore {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("put and get", func(t *testing.T) {
		s := open(t)
		rec := record("theme", `{"mode":"dark"}`, model.ExpiryPtr(5000))

		require.NoError(t, s.Put(ctx, storage.TableSecureData, rec))

		got, err := s.Get(ctx, storage.TableSecureData, "theme")
		require.NoError(t, err)
		assert.Equal(t, "theme", got.Key)
		assert.JSONEq(t, `{"mode":"dark"}`, string(got.Data))
		require.NotNil(t, got.Expiry)
		assert.Equal(t, int64(5000), *got.Expiry)
	})

	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(ctx, storage.TableSecureData, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, storage.TableSecureData, record("k", `1`, model.ExpiryPtr(10))))
		require.NoError(t, s.Put(ctx, storage.TableSecureData, record("k", `2`, nil)))

		got, err := s.Get(ctx, storage.TableSecureData, "k")
		require.NoError(t, err)
		assert.Equal(t, "2", string(got.Data))
		assert.Nil(t, got.Expiry)

		// Старый срок не должен удалить перезаписанную запись
		n, err := s.SweepExpired(ctx, storage.TableSecureData, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		_, err = s.Get(ctx, storage.TableSecureData, "k")
		assert.NoError(t, err)
	})

	t.Run("tables are isolated", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, storage.TableCache, record("k", `"cache"`, nil)))

		_, err := s.Get(ctx, storage.TableSecureData, "k")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.NoError(t, s.ClearTable(ctx, storage.TableSecureData))
		_, err = s.Get(ctx, storage.TableCache, "k")
		assert.NoError(t, err)
	})

	t.Run("unknown table", func(t *testing.T) {
		s := open(t)
		err := s.Put(ctx, storage.Table("bogus"), record("k", `1`, nil))
		assert.ErrorIs(t, err, storage.ErrTableUnknown)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, storage.TableSecureData, record("k", `1`, model.ExpiryPtr(10))))
		require.NoError(t, s.Delete(ctx, storage.TableSecureData, "k"))
		require.NoError(t, s.Delete(ctx, storage.TableSecureData, "k"))

		_, err := s.Get(ctx, storage.TableSecureData, "k")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		n, err := s.SweepExpired(ctx, storage.TableSecureData, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("get all and keys", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.BulkPut(ctx, storage.TableSecureData, []model.StoredRecord{
			record("b", `2`, nil),
			record("a", `1`, nil),
			record("c", `3`, nil),
		}))

		keys, err := s.GetAllKeys(ctx, storage.TableSecureData)
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"a", "b", "c"}, keys)

		all, err := s.GetAll(ctx, storage.TableSecureData)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("clear table", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Put(ctx, storage.TableSecureData, record("a", `1`, model.ExpiryPtr(10))))
		require.NoError(t, s.ClearTable(ctx, storage.TableSecureData))

		keys, err := s.GetAllKeys(ctx, storage.TableSecureData)
		require.NoError(t, err)
		assert.Empty(t, keys)

		n, err := s.SweepExpired(ctx, storage.TableSecureData, 100)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("bulk put is all or nothing", func(t *testing.T) {
		s := open(t)
		bad := record("bad", `"x"`, nil)
		bad.Encrypted = true
		bad.Compressed = true

		err := s.BulkPut(ctx, storage.TableSecureData, []model.StoredRecord{
			record("a", `1`, nil),
			bad,
		})
		require.Error(t, err)

		keys, err := s.GetAllKeys(ctx, storage.TableSecureData)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("sweep expired uses boundary inclusive", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.BulkPut(ctx, storage.TableSecureData, []model.StoredRecord{
			record("past", `1`, model.ExpiryPtr(100)),
			record("edge", `2`, model.ExpiryPtr(200)),
			record("future", `3`, model.ExpiryPtr(201)),
			record("forever", `4`, nil),
		}))

		n, err := s.SweepExpired(ctx, storage.TableSecureData, 200)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		keys, err := s.GetAllKeys(ctx, storage.TableSecureData)
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"forever", "future"}, keys)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := s.Put(cctx, storage.TableSecureData, record("k", `1`, nil))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
