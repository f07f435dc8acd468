package record

import (
	"context"
	"sync"

	"wealthtracker/internal/domain/migration"
	"wealthtracker/internal/infrastructure/storage"
)

// migrationGuard упорядочивает записи фасада и пакетную запись миграции.
// Ключи, записанные или удаленные фасадом во время миграции, миграция
// пропускает: их долговременная копия новее прочитанной из устаревшего хранилища.
type migrationGuard struct {
	mu      sync.Mutex
	active  bool
	all     bool
	touched map[string]struct{}
}

func (g *migrationGuard) begin() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = true
	g.all = false
	g.touched = make(map[string]struct{})
}

func (g *migrationGuard) end() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = false
	g.all = false
	g.touched = nil
}

// write выполняет fn под замком и при успехе помечает key
func (g *migrationGuard) write(key string, fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	err := fn()
	if err == nil && g.active {
		g.touched[key] = struct{}{}
	}
	return err
}

// remove помечает key независимо от результата fn
func (g *migrationGuard) remove(key string, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
	if g.active {
		g.touched[key] = struct{}{}
	}
}

// clear помечает все ключи
func (g *migrationGuard) clear(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
	if g.active {
		g.all = true
	}
}

// save отбрасывает помеченные записи и вызывает fn для остальных под тем же замком
func (g *migrationGuard) save(entries []migration.Entry, fn func([]migration.Entry) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.all {
		return nil
	}

	fresh := make([]migration.Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := g.touched[e.Key]; ok {
			continue
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return nil
	}
	return fn(fresh)
}

// migrationWriter пишет пакет миграции в конкретное открытое хранилище
type migrationWriter struct {
	svc   *Service
	store storage.RecordStore
}

func (w migrationWriter) BulkSave(ctx context.Context, entries []migration.Entry) error {
	return w.svc.guard.save(entries, func(fresh []migration.Entry) error {
		return w.svc.bulkSave(ctx, w.store, fresh)
	})
}
