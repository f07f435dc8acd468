package clock

import (
	"sync"
	"time"
)

// Clock источник текущего времени
type Clock interface {
	Now() time.Time
}

// NowMillis возвращает время часов в миллисекундах Unix
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System возвращает системные часы
func System() Clock {
	return systemClock{}
}

// Fake часы с ручным управлением для тестов
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake создает часы, остановленные на now
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set переставляет часы
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Add сдвигает часы вперед на d
func (f *Fake) Add(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
