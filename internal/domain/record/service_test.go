package record

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wealthtracker/internal/app/client/crypto"
	"wealthtracker/internal/domain/migration"
	"wealthtracker/internal/infrastructure/kv"
	"wealthtracker/internal/infrastructure/quota"
	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/infrastructure/storage/memory"
	"wealthtracker/internal/metrics"
	"wealthtracker/internal/model"
	"wealthtracker/internal/utils/clock"
	"wealthtracker/internal/utils/logger"
	"wealthtracker/internal/utils/scheduler"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc     *Service
	durable *memory.Storage
	legacy  *kv.MemoryStore
	session *kv.MemoryStore
	clock   *clock.Fake
	timers  *scheduler.Manual
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()

	e := &testEnv{
		durable: memory.New(),
		legacy:  kv.NewMemoryStore(),
		session: kv.NewMemoryStore(),
		clock:   clock.NewFake(start),
		timers:  scheduler.NewManual(),
	}
	deps := Deps{
		OpenStore: memory.Opener(e.durable),
		Legacy:    e.legacy,
		Session:   e.session,
		Codec:     crypto.NewCodec(crypto.NewKeyManager(e.session, nil, logger.Discard()), nil),
		Clock:     e.clock,
		Scheduler: e.timers,
		Log:       logger.Discard(),
		Metrics:   metrics.New(nil),
	}
	for _, m := range mutate {
		m(&deps)
	}
	e.svc = NewService(deps, Config{})
	return e
}

func (e *testEnv) init(t *testing.T) {
	t.Helper()
	require.NoError(t, e.svc.Init(context.Background()))
	require.True(t, e.svc.Ready())
}

func (e *testEnv) stored(t *testing.T, key string) model.StoredRecord {
	t.Helper()
	rec, err := e.durable.Get(context.Background(), storage.TableSecureData, key)
	require.NoError(t, err)
	return rec
}

func seedLegacy(t *testing.T, s kv.Store, items map[string]string) {
	t.Helper()
	for k, v := range items {
		require.NoError(t, s.SetItem(k, v))
	}
}

// MockRecordStore мок storage.RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Put(ctx context.Context, table storage.Table, rec model.StoredRecord) error {
	args := m.Called(ctx, table, rec)
	return args.Error(0)
}

func (m *MockRecordStore) Get(ctx context.Context, table storage.Table, key string) (model.StoredRecord, error) {
	args := m.Called(ctx, table, key)
	return args.Get(0).(model.StoredRecord), args.Error(1)
}

func (m *MockRecordStore) GetAll(ctx context.Context, table storage.Table) ([]model.StoredRecord, error) {
	args := m.Called(ctx, table)
	return args.Get(0).([]model.StoredRecord), args.Error(1)
}

func (m *MockRecordStore) Delete(ctx context.Context, table storage.Table, key string) error {
	args := m.Called(ctx, table, key)
	return args.Error(0)
}

func (m *MockRecordStore) ClearTable(ctx context.Context, table storage.Table) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

func (m *MockRecordStore) GetAllKeys(ctx context.Context, table storage.Table) ([]string, error) {
	args := m.Called(ctx, table)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRecordStore) BulkPut(ctx context.Context, table storage.Table, recs []model.StoredRecord) error {
	args := m.Called(ctx, table, recs)
	return args.Error(0)
}

func (m *MockRecordStore) SweepExpired(ctx context.Context, table storage.Table, now int64) (int, error) {
	args := m.Called(ctx, table, now)
	return args.Int(0), args.Error(1)
}

func (m *MockRecordStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func mockOpener(store storage.RecordStore) storage.Opener {
	return func(context.Context) (storage.RecordStore, error) {
		return store, nil
	}
}

type failingLegacy struct {
	*kv.MemoryStore
}

func (failingLegacy) SetItem(string, string) error { return errors.New("quota exceeded") }

// poisonCodec не шифрует значения, содержащие "poison"
type poisonCodec struct {
	Codec
}

func (p poisonCodec) Encrypt(value any) (string, error) {
	b, _ := json.Marshal(value)
	if strings.Contains(string(b), "poison") {
		return "", errors.New("encrypt failed")
	}
	return p.Codec.Encrypt(value)
}

type stubEstimator struct {
	est quota.Estimate
	err error
}

func (s stubEstimator) Estimate(context.Context) (quota.Estimate, error) {
	return s.est, s.err
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{name: "sensitive object", key: KeyAccounts, value: map[string]any{"id": "1", "balance": 1000}, want: `{"id":"1","balance":1000}`},
		{name: "plain object", key: KeyTheme, value: map[string]string{"mode": "dark"}, want: `{"mode":"dark"}`},
		{name: "pattern match", key: "debtPlan", value: []int{1, 2}, want: `[1,2]`},
		{name: "string", key: KeyAccentColor, value: "blue", want: `"blue"`},
		{name: "number", key: KeyBudgetAlertThreshold, value: 80, want: `80`},
		{name: "bool", key: KeyNotificationsEnabled, value: false, want: `false`},
		{name: "large plain", key: "notes", value: strings.Repeat("n", 20000), want: `"` + strings.Repeat("n", 20000) + `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, e.svc.Set(ctx, tt.key, tt.value))

			got, ok := e.svc.Get(ctx, tt.key)
			require.True(t, ok)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestService_SensitiveByDefault(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, KeyAccounts, map[string]any{"id": "1", "balance": 1000}))

	rec := e.stored(t, KeyAccounts)
	assert.True(t, rec.Encrypted)
	assert.False(t, rec.Compressed)
	assert.Nil(t, rec.Expiry)
	assert.NotContains(t, string(rec.Data), "balance")
	assert.Equal(t, start.UnixMilli(), rec.Timestamp)
}

func TestService_PlainDataExpiresByDefault(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, KeyTheme, map[string]string{"mode": "dark"}))

	rec := e.stored(t, KeyTheme)
	assert.False(t, rec.Encrypted)
	require.NotNil(t, rec.Expiry)
	assert.Equal(t, start.Add(30*24*time.Hour).UnixMilli(), *rec.Expiry)
	assert.JSONEq(t, `{"mode":"dark"}`, string(rec.Data))
}

func TestService_SetOptions(t *testing.T) {
	ctx := context.Background()
	day := int64(24 * time.Hour / time.Millisecond)

	tests := []struct {
		name          string
		key           string
		opts          []SetOption
		wantEncrypted bool
		wantExpiry    *int64
	}{
		{
			name:          "encryption disabled on sensitive key",
			key:           KeyAccounts,
			opts:          []SetOption{WithEncryption(false)},
			wantEncrypted: false,
			wantExpiry:    model.ExpiryPtr(start.UnixMilli() + 30*day),
		},
		{
			name:          "encryption forced on plain key",
			key:           KeyTheme,
			opts:          []SetOption{WithEncryption(true)},
			wantEncrypted: true,
		},
		{
			name:          "explicit expiry on sensitive key",
			key:           KeyGoals,
			opts:          []SetOption{WithExpiryDays(2)},
			wantEncrypted: true,
			wantExpiry:    model.ExpiryPtr(start.UnixMilli() + 2*day),
		},
		{
			name:          "fractional expiry",
			key:           KeyTags,
			opts:          []SetOption{WithExpiryDays(0.5)},
			wantEncrypted: false,
			wantExpiry:    model.ExpiryPtr(start.UnixMilli() + day/2),
		},
		{
			name:          "zero expiry disables default",
			key:           KeyPreferences,
			opts:          []SetOption{WithExpiryDays(0)},
			wantEncrypted: false,
		},
		{
			name:          "wire options",
			key:           KeyTheme,
			opts:          Options{ExpiryDays: func() *float64 { d := 3.0; return &d }()}.SetOptions(),
			wantEncrypted: false,
			wantExpiry:    model.ExpiryPtr(start.UnixMilli() + 3*day),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.init(t)

			require.NoError(t, e.svc.Set(ctx, tt.key, []string{"v"}, tt.opts...))

			rec := e.stored(t, tt.key)
			assert.Equal(t, tt.wantEncrypted, rec.Encrypted)
			assert.Equal(t, tt.wantExpiry, rec.Expiry)

			got, ok := e.svc.Get(ctx, tt.key)
			require.True(t, ok)
			assert.JSONEq(t, `["v"]`, string(got))
		})
	}
}

func TestService_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, KeyTheme, "dark", WithExpiryDays(1)))

	e.clock.Add(24*time.Hour - time.Millisecond)
	got, ok := e.svc.Get(ctx, KeyTheme)
	require.True(t, ok)
	assert.JSONEq(t, `"dark"`, string(got))

	e.clock.Add(time.Millisecond)
	_, ok = e.svc.Get(ctx, KeyTheme)
	assert.False(t, ok)

	_, err := e.durable.Get(ctx, storage.TableSecureData, KeyTheme)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_CompressionThreshold(t *testing.T) {
	ctx := context.Background()

	// JSON-строка из n символов сериализуется в n+2 байта
	atThreshold := strings.Repeat("a", crypto.DefaultCompressionThreshold-2)
	aboveThreshold := strings.Repeat("a", crypto.DefaultCompressionThreshold-1)

	tests := []struct {
		name           string
		key            string
		value          string
		wantCompressed bool
	}{
		{name: "above threshold", key: "notes", value: aboveThreshold, wantCompressed: true},
		{name: "at threshold", key: "notes", value: atThreshold, wantCompressed: false},
		{name: "encrypted never compressed", key: KeyTransactions, value: aboveThreshold, wantCompressed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.init(t)

			require.NoError(t, e.svc.Set(ctx, tt.key, tt.value, WithCompression()))

			rec := e.stored(t, tt.key)
			assert.Equal(t, tt.wantCompressed, rec.Compressed)
			assert.False(t, rec.Compressed && rec.Encrypted)

			got, ok := e.svc.Get(ctx, tt.key)
			require.True(t, ok)
			var s string
			require.NoError(t, json.Unmarshal(got, &s))
			assert.Equal(t, tt.value, s)
		})
	}
}

func TestService_InitMigratesLegacyData(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	seedLegacy(t, e.legacy, map[string]string{
		KeyAccounts:                `[{"id":"1","balance":1000}]`,
		KeyTheme:                   `dark`,
		"money_management_custom":  `{"a":1}`,
		"wealthtracker_onboarding": `true`,
		"other_key":                `keep`,
	})

	e.init(t)

	flag, ok, err := e.session.GetItem(MigrationFlagKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", flag)

	keys, err := e.legacy.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"other_key"}, keys)

	for _, key := range []string{KeyAccounts, KeyTheme, "money_management_custom", "wealthtracker_onboarding"} {
		rec := e.stored(t, key)
		assert.True(t, rec.Encrypted, key)
	}

	got, ok := e.svc.Get(ctx, KeyAccounts)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"1","balance":1000}]`, string(got))

	got, ok = e.svc.Get(ctx, KeyTheme)
	require.True(t, ok)
	assert.JSONEq(t, `"dark"`, string(got))
}

func TestService_InitSkipsMigrationWhenFlagged(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.session.SetItem(MigrationFlagKey, "true"))
	seedLegacy(t, e.legacy, map[string]string{KeyGoals: `[]`})

	e.init(t)

	_, ok, err := e.legacy.GetItem(KeyGoals)
	require.NoError(t, err)
	assert.True(t, ok)

	keys, err := e.durable.GetAllKeys(context.Background(), storage.TableSecureData)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestService_ConcurrentInitRunsOnce(t *testing.T) {
	var opens atomic.Int32
	durable := memory.New()

	e := newTestEnv(t, func(d *Deps) {
		d.OpenStore = func(ctx context.Context) (storage.RecordStore, error) {
			opens.Add(1)
			time.Sleep(10 * time.Millisecond)
			return durable, nil
		}
	})
	seedLegacy(t, e.legacy, map[string]string{KeyBudgets: `{"food":100}`})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.svc.Init(context.Background()))
		}()
	}
	wg.Wait()

	require.NoError(t, e.svc.Init(context.Background()))
	assert.Equal(t, int32(1), opens.Load())
	assert.True(t, e.svc.Ready())
	// Одна пара таймеров очистки
	assert.Equal(t, 2, e.timers.Pending())

	got, ok := e.svc.Get(context.Background(), KeyBudgets)
	require.True(t, ok)
	assert.JSONEq(t, `{"food":100}`, string(got))
}

func TestService_MigrationBulkFailureKeepsLegacy(t *testing.T) {
	e := newTestEnv(t, func(d *Deps) {
		d.Codec = poisonCodec{Codec: d.Codec}
	})
	seedLegacy(t, e.legacy, map[string]string{
		KeyAccounts: `[{"id":"1"}]`,
		KeyGoals:    `poison`,
	})

	e.init(t)

	keys, err := e.durable.GetAllKeys(context.Background(), storage.TableSecureData)
	require.NoError(t, err)
	assert.Empty(t, keys)

	legacyKeys, err := e.legacy.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyAccounts, KeyGoals}, legacyKeys)

	// Флаг ставится после одной попытки
	flag, _, err := e.session.GetItem(MigrationFlagKey)
	require.NoError(t, err)
	assert.Equal(t, "true", flag)
}

func TestService_BulkSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, func(d *Deps) {
		d.Codec = poisonCodec{Codec: d.Codec}
	})
	require.NoError(t, e.session.SetItem(MigrationFlagKey, "true"))
	e.init(t)

	err := e.svc.BulkSave(ctx, []migration.Entry{
		{Key: "a", Value: json.RawMessage(`1`)},
		{Key: "b", Value: json.RawMessage(`"poison"`)},
		{Key: "c", Value: json.RawMessage(`3`)},
	})
	require.Error(t, err)

	keys, err := e.durable.GetAllKeys(ctx, storage.TableSecureData)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, e.svc.BulkSave(ctx, []migration.Entry{
		{Key: "a", Value: json.RawMessage(`1`)},
		{Key: "c", Value: json.RawMessage(`3`)},
	}))
	keys, err = e.durable.GetAllKeys(ctx, storage.TableSecureData)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)
	assert.True(t, e.stored(t, "a").Encrypted)
}

func TestService_DurableUnavailable(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, func(d *Deps) {
		d.OpenStore = func(context.Context) (storage.RecordStore, error) {
			return nil, storage.ErrUnavailable
		}
	})
	seedLegacy(t, e.legacy, map[string]string{KeyAccounts: `[1]`})

	e.init(t)
	assert.True(t, e.svc.Degraded())
	assert.Equal(t, 0, e.timers.Pending())

	_, ok, err := e.session.GetItem(MigrationFlagKey)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok := e.svc.Get(ctx, KeyAccounts)
	require.True(t, ok)
	assert.JSONEq(t, `[1]`, string(got))

	require.NoError(t, e.svc.Set(ctx, KeyTheme, map[string]string{"mode": "light"}))
	raw, ok, err := e.legacy.GetItem(KeyTheme)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"mode":"light"}`, raw)

	keys, err := e.svc.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{KeyAccounts, KeyTheme}, keys)

	_, err = e.svc.Sweep(ctx)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestService_GetFallsBackOnDurableError(t *testing.T) {
	ctx := context.Background()
	store := new(MockRecordStore)
	store.On("Get", mock.Anything, storage.TableSecureData, mock.Anything).
		Return(model.StoredRecord{}, errors.New("io error"))

	e := newTestEnv(t, func(d *Deps) {
		d.OpenStore = mockOpener(store)
	})
	require.NoError(t, e.session.SetItem(MigrationFlagKey, "true"))
	e.init(t)
	seedLegacy(t, e.legacy, map[string]string{KeyTheme: `{"mode":"dark"}`, KeyAccentColor: `teal`})

	got, ok := e.svc.Get(ctx, KeyTheme)
	require.True(t, ok)
	assert.JSONEq(t, `{"mode":"dark"}`, string(got))

	got, ok = e.svc.Get(ctx, KeyAccentColor)
	require.True(t, ok)
	assert.JSONEq(t, `"teal"`, string(got))

	_, ok = e.svc.Get(ctx, "missing")
	assert.False(t, ok)
	store.AssertExpectations(t)
}

func TestService_GetMissingAfterMigration(t *testing.T) {
	e := newTestEnv(t)
	e.init(t)

	// После миграции устаревшее хранилище не читается для отсутствующих ключей
	seedLegacy(t, e.legacy, map[string]string{KeyTags: `["x"]`})
	_, ok := e.svc.Get(context.Background(), KeyTags)
	assert.False(t, ok)
}

func TestService_DecryptionFailureReturnsAbsent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	require.NoError(t, e.durable.Put(ctx, storage.TableSecureData, model.StoredRecord{
		Key:       KeyAccounts,
		Data:      json.RawMessage(`"not-a-ciphertext"`),
		Encrypted: true,
	}))
	seedLegacy(t, e.legacy, map[string]string{KeyAccounts: `[1]`})

	_, ok := e.svc.Get(ctx, KeyAccounts)
	assert.False(t, ok)
}

func TestService_SetFallsBackToLegacy(t *testing.T) {
	ctx := context.Background()
	store := new(MockRecordStore)
	store.On("Put", mock.Anything, storage.TableSecureData, mock.Anything).Return(errors.New("disk full"))

	e := newTestEnv(t, func(d *Deps) {
		d.OpenStore = mockOpener(store)
	})
	require.NoError(t, e.session.SetItem(MigrationFlagKey, "true"))
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, KeyBudgets, map[string]int{"food": 100}))

	raw, ok, err := e.legacy.GetItem(KeyBudgets)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"food":100}`, raw)
	store.AssertExpectations(t)
}

func TestService_SetNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := new(MockRecordStore)
	store.On("Put", mock.Anything, storage.TableSecureData, mock.Anything).Return(errors.New("disk full"))

	e := newTestEnv(t, func(d *Deps) {
		d.OpenStore = mockOpener(store)
		d.Legacy = failingLegacy{MemoryStore: kv.NewMemoryStore()}
	})
	require.NoError(t, e.session.SetItem(MigrationFlagKey, "true"))
	e.init(t)

	err := e.svc.Set(ctx, KeyBudgets, map[string]int{"food": 100})
	assert.ErrorIs(t, err, ErrNotPersisted)
}

func TestService_SetSerializationFailure(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	err := e.svc.Set(ctx, "notes", make(chan int))
	assert.ErrorIs(t, err, ErrSerialization)
	assert.NotErrorIs(t, err, ErrNotPersisted)

	_, ok, lerr := e.legacy.GetItem("notes")
	require.NoError(t, lerr)
	assert.True(t, ok)
}

func TestService_SetSerializationFailureKeepsRawBytes(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	err := e.svc.Set(ctx, "notes", json.RawMessage(`{"broken":`))
	assert.ErrorIs(t, err, ErrSerialization)

	raw, ok, lerr := e.legacy.GetItem("notes")
	require.NoError(t, lerr)
	require.True(t, ok)
	assert.Equal(t, `{"broken":`, raw)
}

func TestService_SetRemovesLegacyCopyAfterMigration(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)
	seedLegacy(t, e.legacy, map[string]string{KeyTags: `["old"]`})

	require.NoError(t, e.svc.Set(ctx, KeyTags, []string{"new"}))

	_, ok, err := e.legacy.GetItem(KeyTags)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, KeyGoals, []string{"house"}))
	seedLegacy(t, e.legacy, map[string]string{KeyGoals: `["car"]`})

	e.svc.Remove(ctx, KeyGoals)
	e.svc.Remove(ctx, KeyGoals)

	_, ok := e.svc.Get(ctx, KeyGoals)
	assert.False(t, ok)
	_, ok, err := e.legacy.GetItem(KeyGoals)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_ClearKeepsForeignLegacyKeys(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.session.SetItem(MigrationFlagKey, "true"))
	e.init(t)

	seedLegacy(t, e.legacy, map[string]string{
		"wealthtracker_custom":    "1",
		"money_management_custom": "2",
		"other_key":               "3",
	})
	require.NoError(t, e.svc.Set(ctx, KeyAccounts, []int{1}))
	require.NoError(t, e.svc.Cache(ctx, "rates", map[string]float64{"EUR": 1.1}, time.Hour))

	e.svc.Clear(ctx)

	keys, err := e.legacy.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"other_key"}, keys)

	for _, table := range storage.Tables {
		durableKeys, err := e.durable.GetAllKeys(ctx, table)
		require.NoError(t, err)
		assert.Empty(t, durableKeys, table)
	}
}

func TestService_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestEnv(t)
	src.init(t)

	require.NoError(t, src.svc.Set(ctx, KeyAccounts, []map[string]any{{"id": "1", "balance": 1000}}))
	require.NoError(t, src.svc.Set(ctx, KeyTheme, "dark"))
	require.NoError(t, src.svc.Set(ctx, "wealthtracker_notes", "hello"))

	dump := src.svc.ExportData(ctx)
	assert.Len(t, dump, 3)
	assert.JSONEq(t, `"hello"`, string(dump["wealthtracker_notes"]))

	dst := newTestEnv(t)
	dst.init(t)
	require.NoError(t, dst.svc.ImportData(ctx, dump))

	for key, want := range dump {
		got, ok := dst.svc.Get(ctx, key)
		require.True(t, ok, key)
		assert.JSONEq(t, string(want), string(got), key)
	}
	assert.True(t, dst.stored(t, KeyAccounts).Encrypted)
	assert.False(t, dst.stored(t, KeyTheme).Encrypted)
}

func TestService_CacheTable(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	assert.ErrorIs(t, e.svc.Cache(ctx, "rates", 1, 0), ErrInvalidTTL)

	require.NoError(t, e.svc.Cache(ctx, "rates", map[string]float64{"EUR": 1.1}, time.Minute))
	got, ok := e.svc.Cached(ctx, "rates")
	require.True(t, ok)
	assert.JSONEq(t, `{"EUR":1.1}`, string(got))

	_, ok = e.svc.Get(ctx, "rates")
	assert.False(t, ok)

	e.clock.Add(time.Minute)
	_, ok = e.svc.Cached(ctx, "rates")
	assert.False(t, ok)
}

func TestService_CleanupSweepsBothTables(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)
	assert.Equal(t, 2, e.timers.Pending())

	require.NoError(t, e.svc.Set(ctx, KeyTheme, "dark", WithExpiryDays(1)))
	require.NoError(t, e.svc.Set(ctx, KeyAccounts, []int{1}))
	require.NoError(t, e.svc.Cache(ctx, "rates", 1.1, time.Minute))

	e.clock.Add(48 * time.Hour)
	e.timers.Advance(5 * time.Second)

	_, err := e.durable.Get(ctx, storage.TableSecureData, KeyTheme)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = e.durable.Get(ctx, storage.TableCache, "rates")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = e.durable.Get(ctx, storage.TableSecureData, KeyAccounts)
	assert.NoError(t, err)
}

func TestService_SweepCountsExpired(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, KeyTheme, "dark", WithExpiryDays(1)))
	require.NoError(t, e.svc.Cache(ctx, "rates", 1.1, time.Minute))

	n, err := e.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	e.clock.Add(24 * time.Hour)
	n, err = e.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestService_DisposeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	e.svc.Dispose()
	e.svc.Dispose()
	assert.Equal(t, 0, e.timers.Pending())

	// После закрытия запись уходит в устаревшее хранилище
	require.NoError(t, e.svc.Set(ctx, KeyTheme, "dark"))
	_, ok, err := e.legacy.GetItem(KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_DisposeBeforeInit(t *testing.T) {
	e := newTestEnv(t)
	e.svc.Dispose()
	e.init(t)
	assert.Equal(t, 0, e.timers.Pending())
}

func TestService_GetStorageInfo(t *testing.T) {
	tests := []struct {
		name      string
		estimator quota.Estimator
		want      quota.Estimate
	}{
		{name: "no estimator", estimator: nil, want: quota.Estimate{}},
		{name: "estimate", estimator: stubEstimator{est: quota.Estimate{Usage: 10, Quota: 100}}, want: quota.Estimate{Usage: 10, Quota: 100}},
		{name: "estimator fails", estimator: stubEstimator{err: errors.New("unsupported")}, want: quota.Estimate{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t, func(d *Deps) {
				d.Quota = tt.estimator
			})
			assert.Equal(t, tt.want, e.svc.GetStorageInfo(context.Background()))
		})
	}
}

func TestGetAs(t *testing.T) {
	type account struct {
		ID      string `json:"id"`
		Balance int    `json:"balance"`
	}

	ctx := context.Background()
	e := newTestEnv(t)
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, KeyAccounts, []account{{ID: "1", Balance: 1000}}))

	got, ok := GetAs[[]account](ctx, e.svc, KeyAccounts)
	require.True(t, ok)
	assert.Equal(t, []account{{ID: "1", Balance: 1000}}, got)

	_, ok = GetAs[[]account](ctx, e.svc, KeyGoals)
	assert.False(t, ok)

	_, ok = GetAs[int](ctx, e.svc, KeyAccounts)
	assert.False(t, ok)
}

func TestIsSensitive(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{key: KeyAccounts, want: true},
		{key: KeyRecurringTransactions, want: true},
		{key: "monthlyBudgetPlan", want: true},
		{key: "InvestmentPortfolio", want: true},
		{key: "financialSummary", want: true},
		{key: KeyTheme, want: false},
		{key: KeyTags, want: false},
		{key: KeyPreferences, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSensitive(tt.key))
		})
	}
}

// hookedLegacy вызывает onGet перед чтением ключа, пока идет миграция
type hookedLegacy struct {
	*kv.MemoryStore
	onGet func(key string)
}

func (h *hookedLegacy) GetItem(key string) (string, bool, error) {
	if h.onGet != nil {
		h.onGet(key)
	}
	return h.MemoryStore.GetItem(key)
}

func TestService_WritesDuringMigrationWin(t *testing.T) {
	ctx := context.Background()
	legacy := &hookedLegacy{MemoryStore: kv.NewMemoryStore()}
	e := newTestEnv(t, func(d *Deps) { d.Legacy = legacy })
	seedLegacy(t, legacy, map[string]string{
		KeyAccounts: `{"balance":1}`,
		KeyGoals:    `["car"]`,
		KeyTags:     `["old"]`,
	})

	legacy.onGet = func(key string) {
		switch key {
		case KeyAccounts:
			require.NoError(t, e.svc.Set(ctx, KeyAccounts, map[string]int{"balance": 2}))
		case KeyGoals:
			e.svc.Remove(ctx, KeyGoals)
		}
	}
	e.init(t)
	legacy.onGet = nil

	got, ok := e.svc.Get(ctx, KeyAccounts)
	require.True(t, ok)
	assert.JSONEq(t, `{"balance":2}`, string(got))

	_, ok = e.svc.Get(ctx, KeyGoals)
	assert.False(t, ok)

	got, ok = e.svc.Get(ctx, KeyTags)
	require.True(t, ok)
	assert.JSONEq(t, `["old"]`, string(got))

	keys, err := legacy.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestService_DisposeDuringInitClosesStore(t *testing.T) {
	store := new(MockRecordStore)
	store.On("Close").Return(nil).Once()

	var e *testEnv
	e = newTestEnv(t, func(d *Deps) {
		d.OpenStore = func(context.Context) (storage.RecordStore, error) {
			e.svc.Dispose()
			return store, nil
		}
	})

	e.init(t)

	store.AssertExpectations(t)
	assert.Nil(t, e.svc.durable())
	assert.Equal(t, 0, e.timers.Pending())
}

func TestService_ManualCompression(t *testing.T) {
	ctx := context.Background()
	large := strings.Repeat("a", crypto.DefaultCompressionThreshold)

	e := newTestEnv(t)
	e.svc = NewService(e.svc.deps, Config{ManualCompression: true})
	e.init(t)

	require.NoError(t, e.svc.Set(ctx, "notes", large))
	assert.False(t, e.stored(t, "notes").Compressed)

	require.NoError(t, e.svc.Set(ctx, "draft", large, WithCompression()))
	assert.True(t, e.stored(t, "draft").Compressed)

	got, ok := e.svc.Get(ctx, "draft")
	require.True(t, ok)
	var s string
	require.NoError(t, json.Unmarshal(got, &s))
	assert.Equal(t, large, s)
}
