package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/exp/slog"

	"wealthtracker/internal/infrastructure/kv"
)

const (
	// KeyName - имя ключа шифрования в сессионном хранилище
	KeyName = "wealthtracker_encryption_key"

	keySize = 32
)

// KeySource выдает материал ключа шифрования
type KeySource interface {
	GetOrCreateKey() string
}

// KeyManager хранит ключ сессии в сессионном хранилище. Если оно
// недоступно, ключ живет в защищенном буфере memguard до конца процесса.
type KeyManager struct {
	mu       sync.Mutex
	session  kv.Store
	random   io.Reader
	log      *slog.Logger
	fallback *memguard.LockedBuffer
}

// NewKeyManager создает менеджер ключа. session может быть nil.
func NewKeyManager(session kv.Store, random io.Reader, log *slog.Logger) *KeyManager {
	if random == nil {
		random = rand.Reader
	}
	if log == nil {
		log = slog.Default()
	}
	return &KeyManager{
		session: session,
		random:  random,
		log:     log.With("component", "key_manager"),
	}
}

// GetOrCreateKey всегда возвращает пригодный ключ в hex
func (k *KeyManager) GetOrCreateKey() string {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.session != nil {
		key, err := k.fromSession()
		if err == nil {
			return key
		}
		k.log.Warn("session storage unavailable, using in-process key", "error", err)
	}

	return k.inProcessKey()
}

func (k *KeyManager) fromSession() (string, error) {
	stored, ok, err := k.session.GetItem(KeyName)
	if err != nil {
		return "", err
	}
	if ok && validKey(stored) {
		return stored, nil
	}
	if ok {
		k.log.Warn("stored session key is malformed, generating a new one")
	}

	key := k.generate()
	if err := k.session.SetItem(KeyName, key); err != nil {
		return "", err
	}
	return key, nil
}

func (k *KeyManager) inProcessKey() string {
	if k.fallback == nil || !k.fallback.IsAlive() {
		raw := k.generateRaw()
		k.fallback = memguard.NewBufferFromBytes(raw)
		k.fallback.Freeze()
	}
	return hex.EncodeToString(k.fallback.Bytes())
}

func (k *KeyManager) generate() string {
	raw := k.generateRaw()
	defer ClearMemory(raw)
	return hex.EncodeToString(raw)
}

// generateRaw переходит на crypto/rand, если внедренный источник отказал
func (k *KeyManager) generateRaw() []byte {
	raw, err := GenerateRandomBytes(k.random, keySize)
	if err == nil {
		return raw
	}
	k.log.Warn("random source failed, using system entropy", "error", err)
	raw, err = GenerateRandomBytes(rand.Reader, keySize)
	if err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return raw
}

// Destroy уничтожает ключ, хранящийся в памяти процесса
func (k *KeyManager) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.fallback != nil {
		k.fallback.Destroy()
		k.fallback = nil
	}
}

func validKey(s string) bool {
	b, err := hex.DecodeString(s)
	return err == nil && len(b) == keySize
}
