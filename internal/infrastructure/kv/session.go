package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"wealthtracker/internal/utils/clock"
)

// Session - содержимое файла сессии
type Session struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Items     map[string]string `json:"items"`
}

// SessionStore - хранилище, живущее одну сессию. Истекший или
// поврежденный файл сессии отбрасывается, и начинается новая пустая сессия.
type SessionStore struct {
	mu    sync.Mutex
	path  string
	ttl   time.Duration
	clock clock.Clock
}

func NewSessionStore(path string, ttl time.Duration, clk clock.Clock) *SessionStore {
	if clk == nil {
		clk = clock.System()
	}
	return &SessionStore{path: path, ttl: ttl, clock: clk}
}

// Current возвращает текущую сессию, при необходимости начиная новую
func (s *SessionStore) Current() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SessionStore) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := sess.Items[key]
	return v, ok, nil
}

func (s *SessionStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load()
	if err != nil {
		return err
	}
	sess.Items[key] = value
	return writeAtomic(s.path, sess)
}

func (s *SessionStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := sess.Items[key]; !ok {
		return nil
	}
	delete(sess.Items, key)
	return writeAtomic(s.path, sess)
}

func (s *SessionStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load()
	if err != nil {
		return nil, err
	}
	return sortedKeys(sess.Items), nil
}

func (s *SessionStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(sess.Items), nil
}

// End удаляет файл сессии
func (s *SessionStore) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

func (s *SessionStore) load() (Session, error) {
	now := s.clock.Now()

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s.start(now)
	case err != nil:
		return Session{}, fmt.Errorf("%w: ошибка чтения сессии: %v", ErrUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.ID == "" {
		return s.start(now)
	}

	// Проверяем срок действия сессии
	if !now.Before(sess.ExpiresAt) {
		return s.start(now)
	}
	if sess.Items == nil {
		sess.Items = make(map[string]string)
	}
	return sess, nil
}

func (s *SessionStore) start(now time.Time) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Items:     make(map[string]string),
	}
	if err := writeAtomic(s.path, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}
