package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slog"

	"wealthtracker/internal/infrastructure/kv"
	"wealthtracker/internal/metrics"
)

// Entry одно устаревшее значение, готовое к долговременной записи
type Entry struct {
	Key   string
	Value json.RawMessage
}

// BatchWriter атомарно пишет пакет, шифруя каждую запись
type BatchWriter interface {
	BulkSave(ctx context.Context, entries []Entry) error
}

// Report итоги одного прохода миграции
type Report struct {
	Read     int `json:"read"`
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
	NonJSON  int `json:"non_json"`
}

// Coordinator переносит записи из устаревшего хранилища в долговременную таблицу.
// Запускать ли перенос, решает вызывающий по сессионному флагу.
type Coordinator struct {
	legacy  kv.Store
	writer  BatchWriter
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewCoordinator(legacy kv.Store, writer BatchWriter, log *slog.Logger, m *metrics.Metrics) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		legacy:  legacy,
		writer:  writer,
		log:     log.With("component", "migration"),
		metrics: m,
	}
}

// Migrate читает ключи из устаревшего хранилища, пишет их одним пакетом и
// удаляет устаревшие копии только после успешной записи пакета.
func (c *Coordinator) Migrate(ctx context.Context, keys []string) (Report, error) {
	var report Report

	entries := make([]Entry, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		raw, ok, err := c.legacy.GetItem(key)
		if err != nil {
			c.log.Warn("failed to read legacy entry", "key", key, "error", err)
			report.Skipped++
			continue
		}
		if !ok {
			continue
		}

		entries = append(entries, Entry{Key: key, Value: c.parse(key, raw, &report)})
		report.Read++
	}

	if len(entries) == 0 {
		return report, nil
	}

	if err := c.writer.BulkSave(ctx, entries); err != nil {
		c.log.Error("bulk save failed, legacy entries kept", "entries", len(entries), "error", err)
		return report, fmt.Errorf("bulk save: %w", err)
	}
	report.Migrated = len(entries)
	c.metrics.Migrated(report.Migrated)

	for _, entry := range entries {
		if err := c.legacy.RemoveItem(entry.Key); err != nil {
			c.log.Warn("failed to remove migrated legacy entry", "key", entry.Key, "error", err)
		}
	}

	c.log.Info("legacy data migrated", "migrated", report.Migrated, "non_json", report.NonJSON, "skipped", report.Skipped)
	return report, nil
}

// parse сохраняет значения не в JSON как JSON-строки, не отбрасывая их
func (c *Coordinator) parse(key, raw string, report *Report) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}

	c.log.Warn("legacy entry is not JSON, keeping raw string", "key", key)
	report.NonJSON++
	quoted, _ := json.Marshal(raw)
	return quoted
}
