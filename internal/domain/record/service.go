package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"

	"wealthtracker/internal/domain/cleanup"
	"wealthtracker/internal/domain/migration"
	"wealthtracker/internal/infrastructure/kv"
	"wealthtracker/internal/infrastructure/quota"
	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/metrics"
	"wealthtracker/internal/model"
	"wealthtracker/internal/utils/clock"
	"wealthtracker/internal/utils/scheduler"
)

const (
	msPerDay          = 24 * 60 * 60 * 1000
	defaultExpiryDays = 30
)

// Codec шифрует и сжимает сериализованные значения
type Codec interface {
	Encrypt(value any) (string, error)
	Decrypt(ciphertext string) (json.RawMessage, error)
	Compress(serialized []byte) (string, error)
	Decompress(encoded string) ([]byte, error)
	ShouldCompress(size int, requested, encrypted bool) bool
}

// Servicer интерфейс хранилища для CLI и локального API
type Servicer interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, value any, opts ...SetOption) error
	Remove(ctx context.Context, key string)
	Clear(ctx context.Context)
	ExportData(ctx context.Context) map[string]json.RawMessage
	ImportData(ctx context.Context, data map[string]json.RawMessage) error
	GetStorageInfo(ctx context.Context) quota.Estimate
	Cache(ctx context.Context, key string, value any, ttl time.Duration) error
	Cached(ctx context.Context, key string) (json.RawMessage, bool)
	Sweep(ctx context.Context) (int, error)
	Keys(ctx context.Context) ([]string, error)
	Ready() bool
	Degraded() bool
	Dispose()
}

// Deps зависимости окружения сервиса
type Deps struct {
	OpenStore storage.Opener
	Legacy    kv.Store
	Session   kv.Store
	Codec     Codec
	Clock     clock.Clock
	Scheduler scheduler.Scheduler
	Quota     quota.Estimator
	Log       *slog.Logger
	Metrics   *metrics.Metrics
}

type Config struct {
	DefaultExpiryDays float64
	// ManualCompression сжимает только при WithCompression; по умолчанию
	// большие незашифрованные значения сжимаются всегда
	ManualCompression bool
	Cleanup           cleanup.Config
}

// Service единая точка входа движка хранения. Пишет в долговременное
// хранилище и при любой ошибке откатывается на устаревшее.
type Service struct {
	deps Deps
	cfg  Config
	log  *slog.Logger

	initGroup singleflight.Group
	guard     migrationGuard

	mu            sync.RWMutex
	store         storage.RecordStore
	ready         bool
	degraded      bool
	migratedLocal bool
	cleanup       *cleanup.Scheduler
	disposed      bool
}

func NewService(deps Deps, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Legacy == nil {
		deps.Legacy = kv.NewMemoryStore()
	}
	if cfg.DefaultExpiryDays == 0 {
		cfg.DefaultExpiryDays = defaultExpiryDays
	}
	if cfg.Cleanup.InitialDelay == 0 {
		cfg.Cleanup.InitialDelay = cleanup.DefaultInitialDelay
	}
	return &Service{
		deps: deps,
		cfg:  cfg,
		log:  deps.Log.With("component", "storage"),
	}
}

var _ Servicer = (*Service)(nil)
var _ migration.BatchWriter = (*Service)(nil)

// Init открывает долговременное хранилище, один раз за сессию переносит
// устаревшие данные и запускает очистку. Параллельные вызовы разделяют одну
// инициализацию. Ошибок не возвращает: без долговременного хранилища сервис
// работает на устаревшем.
func (s *Service) Init(ctx context.Context) error {
	if s.Ready() {
		return nil
	}
	_, _, _ = s.initGroup.Do("init", func() (interface{}, error) {
		s.initialize(ctx)
		return nil, nil
	})
	return nil
}

func (s *Service) initialize(ctx context.Context) {
	s.mu.Lock()
	if s.ready || s.disposed {
		s.ready = true
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	store, err := s.openStore(ctx)
	if err != nil {
		s.log.Warn("durable store unavailable, using legacy store only", "error", err)
	}

	s.mu.Lock()
	if s.disposed {
		// Dispose успел раньше: хранилище никому не отдаем
		s.ready = true
		s.mu.Unlock()
		if store != nil {
			if err := store.Close(); err != nil {
				s.log.Warn("failed to close durable store", "error", err)
			}
		}
		return
	}
	s.store = store
	s.degraded = store == nil
	s.mu.Unlock()
	s.deps.Metrics.SetDegraded(store == nil)

	if store != nil && !s.migrationDone() {
		s.guard.begin()
		coordinator := migration.NewCoordinator(s.deps.Legacy, migrationWriter{svc: s, store: store}, s.deps.Log, s.deps.Metrics)
		if _, err := coordinator.Migrate(ctx, s.migrationKeys()); err != nil {
			s.log.Warn("legacy migration failed, will not retry this session", "error", err)
		}
		s.setMigrationDone()
		s.guard.end()
	}

	s.mu.Lock()
	s.ready = true
	if store != nil && s.deps.Scheduler != nil && !s.disposed {
		s.cleanup = cleanup.New(s, s.deps.Scheduler, s.deps.Log, s.cfg.Cleanup)
		s.cleanup.Start()
	}
	s.mu.Unlock()
}

func (s *Service) openStore(ctx context.Context) (storage.RecordStore, error) {
	if s.deps.OpenStore == nil {
		return nil, storage.ErrUnavailable
	}
	store, err := s.deps.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, storage.ErrUnavailable
	}
	return store, nil
}

// migrationKeys объединение канонических ключей и устаревших ключей с известными префиксами
func (s *Service) migrationKeys() []string {
	keys := append([]string(nil), CanonicalKeys...)
	legacyKeys, err := s.deps.Legacy.Keys()
	if err != nil {
		s.log.Warn("failed to enumerate legacy keys", "error", err)
		return keys
	}
	for _, k := range legacyKeys {
		if HasLegacyPrefix(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Service) migrationDone() bool {
	s.mu.RLock()
	local := s.migratedLocal
	s.mu.RUnlock()
	if local {
		return true
	}
	if s.deps.Session == nil {
		return false
	}
	v, ok, err := s.deps.Session.GetItem(MigrationFlagKey)
	if err != nil {
		return false
	}
	return ok && v == "true"
}

func (s *Service) setMigrationDone() {
	s.mu.Lock()
	s.migratedLocal = true
	s.mu.Unlock()

	if s.deps.Session == nil {
		return
	}
	if err := s.deps.Session.SetItem(MigrationFlagKey, "true"); err != nil {
		s.log.Warn("failed to persist migration flag", "error", err)
	}
}

// Ready сообщает, завершилась ли Init
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Degraded сообщает, работает ли сервис только на устаревшем хранилище
func (s *Service) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Service) durable() storage.RecordStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *Service) now() int64 {
	return clock.NowMillis(s.deps.Clock)
}

// Get возвращает JSON по ключу или false, если значение нигде не найдено
func (s *Service) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	value, res, err := s.readDurable(ctx, storage.TableSecureData, key)
	switch {
	case err != nil:
		s.log.Warn("durable read failed, using legacy store", "key", key, "error", err)
		s.deps.Metrics.Fallback("get")
		return s.readLegacy(key)
	case res == lookupFound:
		s.deps.Metrics.Op("get", metrics.ResultOK)
		return value, true
	case res == lookupGone:
		s.deps.Metrics.Op("get", metrics.ResultMiss)
		return nil, false
	case !s.migrationDone():
		return s.readLegacy(key)
	}
	s.deps.Metrics.Op("get", metrics.ResultMiss)
	return nil, false
}

type lookup int

const (
	lookupAbsent lookup = iota
	lookupFound
	// lookupGone истекшая или нерасшифровываемая запись; устаревшее хранилище не читается
	lookupGone
)

func (s *Service) readDurable(ctx context.Context, table storage.Table, key string) (json.RawMessage, lookup, error) {
	store := s.durable()
	if store == nil {
		return nil, lookupAbsent, storage.ErrUnavailable
	}

	rec, err := store.Get(ctx, table, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, lookupAbsent, nil
	}
	if err != nil {
		return nil, lookupAbsent, err
	}

	if rec.IsExpired(s.now()) {
		if err := store.Delete(ctx, table, key); err != nil {
			s.log.Warn("failed to delete expired record", "key", key, "error", err)
		}
		return nil, lookupGone, nil
	}

	value, err := s.decode(rec)
	if err != nil {
		s.log.Warn("failed to decode record", "key", key, "error", err)
		s.deps.Metrics.DecryptFailure()
		return nil, lookupGone, nil
	}
	return value, lookupFound, nil
}

func (s *Service) decode(rec model.StoredRecord) (json.RawMessage, error) {
	if !rec.Encrypted && !rec.Compressed {
		return rec.Data, nil
	}

	var text string
	if err := json.Unmarshal(rec.Data, &text); err != nil {
		return nil, fmt.Errorf("record payload is not a string: %w", err)
	}
	if s.deps.Codec == nil {
		return nil, errors.New("codec is not configured")
	}

	if rec.Encrypted {
		return s.deps.Codec.Decrypt(text)
	}

	serialized, err := s.deps.Codec.Decompress(text)
	if err != nil {
		return nil, err
	}
	if !json.Valid(serialized) {
		return nil, errors.New("decompressed payload is not json")
	}
	return serialized, nil
}

func (s *Service) readLegacy(key string) (json.RawMessage, bool) {
	raw, ok, err := s.deps.Legacy.GetItem(key)
	if err != nil {
		s.log.Warn("legacy read failed", "key", key, "error", err)
		s.deps.Metrics.Op("get", metrics.ResultError)
		return nil, false
	}
	if !ok {
		s.deps.Metrics.Op("get", metrics.ResultMiss)
		return nil, false
	}
	s.deps.Metrics.Op("get", metrics.ResultFallback)
	return legacyValue(raw), true
}

// legacyValue возвращает raw как JSON, если он разбирается, иначе как JSON-строку
func legacyValue(raw string) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

// Set сохраняет value под key. Возвращает nil, если удалась запись в
// долговременное или в устаревшее хранилище, ErrSerialization для
// несериализуемого значения и ErrNotPersisted, если не удались обе записи.
func (s *Service) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	serialized, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("value is not serializable, storing plain text in legacy store", "key", key, "error", err)
		if lerr := s.deps.Legacy.SetItem(key, plainText(value)); lerr != nil {
			s.log.Error("legacy write failed", "key", key, "error", lerr)
			s.deps.Metrics.Op("set", metrics.ResultError)
			return fmt.Errorf("%w: %w: %v", ErrNotPersisted, ErrSerialization, err)
		}
		s.deps.Metrics.Op("set", metrics.ResultFallback)
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	err = s.writeDurable(ctx, key, serialized, applyOptions(opts))
	if err == nil {
		if s.migrationDone() {
			if rerr := s.deps.Legacy.RemoveItem(key); rerr != nil {
				s.log.Warn("failed to remove legacy copy", "key", key, "error", rerr)
			}
		}
		s.deps.Metrics.Op("set", metrics.ResultOK)
		return nil
	}

	s.log.Warn("durable write failed, using legacy store", "key", key, "error", err)
	s.deps.Metrics.Fallback("set")
	if lerr := s.deps.Legacy.SetItem(key, string(serialized)); lerr != nil {
		s.log.Error("write failed on both stores", "key", key, "durable_error", err, "legacy_error", lerr)
		s.deps.Metrics.Op("set", metrics.ResultError)
		return fmt.Errorf("%w: durable: %v; legacy: %v", ErrNotPersisted, err, lerr)
	}
	s.deps.Metrics.Op("set", metrics.ResultFallback)
	return nil
}

// plainText текстовая форма несериализуемого значения для устаревшего хранилища
func plainText(value any) string {
	switch v := value.(type) {
	case json.RawMessage:
		return string(v)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}

func (s *Service) writeDurable(ctx context.Context, key string, serialized []byte, o setOptions) error {
	store := s.durable()
	if store == nil {
		return storage.ErrUnavailable
	}
	rec, err := s.prepare(key, serialized, o)
	if err != nil {
		return err
	}
	return s.guard.write(key, func() error {
		return store.Put(ctx, storage.TableSecureData, rec)
	})
}

// prepare собирает запись: шифрование и сжатие взаимоисключающие, побеждает
// шифрование. У чувствительных данных нет срока жизни по умолчанию.
func (s *Service) prepare(key string, serialized []byte, o setOptions) (model.StoredRecord, error) {
	now := s.now()

	encrypted := IsSensitive(key)
	if o.encrypted != nil {
		encrypted = *o.encrypted
	}

	rec := model.StoredRecord{
		Key:       key,
		Timestamp: now,
		Encrypted: encrypted,
	}

	switch {
	case encrypted:
		if s.deps.Codec == nil {
			return rec, errors.New("codec is not configured")
		}
		ciphertext, err := s.deps.Codec.Encrypt(json.RawMessage(serialized))
		if err != nil {
			return rec, fmt.Errorf("encrypt %q: %w", key, err)
		}
		rec.Data, _ = json.Marshal(ciphertext)
	case s.deps.Codec != nil && s.deps.Codec.ShouldCompress(len(serialized), o.compress || !s.cfg.ManualCompression, false):
		encoded, err := s.deps.Codec.Compress(serialized)
		if err != nil {
			return rec, fmt.Errorf("compress %q: %w", key, err)
		}
		rec.Data, _ = json.Marshal(encoded)
		rec.Compressed = true
	default:
		rec.Data = json.RawMessage(serialized)
	}

	switch {
	case o.expiryDays != nil:
		if *o.expiryDays > 0 {
			rec.Expiry = model.ExpiryPtr(now + int64(*o.expiryDays*msPerDay))
		}
	case !encrypted:
		rec.Expiry = model.ExpiryPtr(now + int64(s.cfg.DefaultExpiryDays*msPerDay))
	}
	return rec, nil
}

// BulkSave готовит все записи зашифрованными и только потом атомарно пишет пакет
func (s *Service) BulkSave(ctx context.Context, entries []migration.Entry) error {
	return s.bulkSave(ctx, s.durable(), entries)
}

func (s *Service) bulkSave(ctx context.Context, store storage.RecordStore, entries []migration.Entry) error {
	if store == nil {
		return storage.ErrUnavailable
	}

	recs := make([]model.StoredRecord, 0, len(entries))
	encrypt := applyOptions([]SetOption{WithEncryption(true)})
	for _, e := range entries {
		rec, err := s.prepare(e.Key, e.Value, encrypt)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}
		recs = append(recs, rec)
	}
	return store.BulkPut(ctx, storage.TableSecureData, recs)
}

// Remove удаляет key из обоих хранилищ независимо друг от друга
func (s *Service) Remove(ctx context.Context, key string) {
	if store := s.durable(); store != nil {
		s.guard.remove(key, func() {
			if err := store.Delete(ctx, storage.TableSecureData, key); err != nil {
				s.log.Warn("durable delete failed", "key", key, "error", err)
			}
		})
	}
	if err := s.deps.Legacy.RemoveItem(key); err != nil {
		s.log.Warn("legacy delete failed", "key", key, "error", err)
	}
	s.deps.Metrics.Op("remove", metrics.ResultOK)
}

// Clear очищает долговременные таблицы и удаляет из устаревшего хранилища
// только ключи приложения
func (s *Service) Clear(ctx context.Context) {
	if store := s.durable(); store != nil {
		s.guard.clear(func() {
			for _, table := range storage.Tables {
				if err := store.ClearTable(ctx, table); err != nil {
					s.log.Warn("failed to clear table", "table", table, "error", err)
				}
			}
		})
	}

	keys, err := s.deps.Legacy.Keys()
	if err != nil {
		s.log.Warn("failed to enumerate legacy keys", "error", err)
		return
	}
	for _, k := range keys {
		if !isOwnedLegacyKey(k) {
			continue
		}
		if err := s.deps.Legacy.RemoveItem(k); err != nil {
			s.log.Warn("legacy delete failed", "key", k, "error", err)
		}
	}
	s.deps.Metrics.Op("clear", metrics.ResultOK)
}

// ExportData выгружает канонические ключи и все читаемые долговременные ключи
func (s *Service) ExportData(ctx context.Context) map[string]json.RawMessage {
	keys := append([]string(nil), CanonicalKeys...)
	if store := s.durable(); store != nil {
		durableKeys, err := store.GetAllKeys(ctx, storage.TableSecureData)
		if err != nil {
			s.log.Warn("failed to list durable keys", "error", err)
		}
		keys = append(keys, durableKeys...)
	}

	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if _, seen := out[k]; seen {
			continue
		}
		if v, ok := s.Get(ctx, k); ok {
			out[k] = v
		}
	}
	return out
}

// ImportData пишет каждую запись через Set, классификация применяется одинаково
func (s *Service) ImportData(ctx context.Context, data map[string]json.RawMessage) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		if err := s.Set(ctx, k, data[k]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// GetStorageInfo возвращает нули, если оценка недоступна
func (s *Service) GetStorageInfo(ctx context.Context) quota.Estimate {
	if s.deps.Quota == nil {
		return quota.Estimate{}
	}
	est, err := s.deps.Quota.Estimate(ctx)
	if err != nil {
		s.log.Warn("storage estimate unavailable", "error", err)
		return quota.Estimate{}
	}
	return est
}

// Keys список долговременных ключей, в деградированном режиме - ключей приложения в устаревшем хранилище
func (s *Service) Keys(ctx context.Context) ([]string, error) {
	if store := s.durable(); store != nil {
		return store.GetAllKeys(ctx, storage.TableSecureData)
	}

	legacyKeys, err := s.deps.Legacy.Keys()
	if err != nil {
		return nil, fmt.Errorf("list legacy keys: %w", err)
	}
	keys := make([]string, 0, len(legacyKeys))
	for _, k := range legacyKeys {
		if isOwnedLegacyKey(k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Dispose останавливает очистку и закрывает долговременное хранилище. Идемпотентен.
func (s *Service) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	sched := s.cleanup
	store := s.store
	s.cleanup = nil
	s.store = nil
	s.mu.Unlock()

	if sched != nil {
		sched.Dispose()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			s.log.Warn("failed to close durable store", "error", err)
		}
	}
}
