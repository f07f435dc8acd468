package record

import (
	"errors"

	"wealthtracker/internal/app/client/crypto"
)

var (
	// ErrNotPersisted не удалась ни запись в долговременное хранилище, ни запасная в устаревшее
	ErrNotPersisted = errors.New("value not persisted")
	// ErrSerialization значение не кодируется в JSON
	ErrSerialization = crypto.ErrSerialization
	ErrInvalidTTL    = errors.New("cache ttl must be positive")
)
