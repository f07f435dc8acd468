package storage

import (
	"context"
	"errors"
	"fmt"

	"wealthtracker/internal/model"
)

// Table именованная долговременная таблица StoredRecord с ключом Key
type Table string

const (
	TableSecureData Table = "secure_data"
	TableCache      Table = "cache"
)

// Tables все таблицы, которые обязан предоставить RecordStore
var Tables = []Table{TableSecureData, TableCache}

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnavailable  = errors.New("durable store unavailable")
	ErrTableUnknown = errors.New("unknown table")
	ErrClosed       = errors.New("store closed")
)

// RecordStore долговременная таблица ключ -> запись со вторичным индексом по expiry
type RecordStore interface {
	Put(ctx context.Context, table Table, rec model.StoredRecord) error
	Get(ctx context.Context, table Table, key string) (model.StoredRecord, error)
	GetAll(ctx context.Context, table Table) ([]model.StoredRecord, error)
	Delete(ctx context.Context, table Table, key string) error
	ClearTable(ctx context.Context, table Table) error
	GetAllKeys(ctx context.Context, table Table) ([]string, error)

	// BulkPut записывает либо все записи, либо ни одной
	BulkPut(ctx context.Context, table Table, recs []model.StoredRecord) error

	// SweepExpired удаляет записи с expiry <= now и возвращает их число
	SweepExpired(ctx context.Context, table Table, now int64) (int, error)

	Close() error
}

// Opener лениво открывает RecordStore, чтобы вызывающий мог деградировать при ошибке
type Opener func(ctx context.Context) (RecordStore, error)

// ValidateTable возвращает ErrTableUnknown для таблиц не из Tables
func ValidateTable(table Table) error {
	for _, t := range Tables {
		if t == table {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrTableUnknown, table)
}

// ValidateRecord проверяет инварианты записи, общие для всех хранилищ
func ValidateRecord(rec model.StoredRecord) error {
	if rec.Key == "" {
		return errors.New("record key is empty")
	}
	if rec.Encrypted && rec.Compressed {
		return fmt.Errorf("record %q is both encrypted and compressed", rec.Key)
	}
	return nil
}
