// Package scheduler абстрагирует таймеры, чтобы фоновые задачи
// можно было тестировать без реальных задержек.
package scheduler

import (
	"sync"
	"time"
)

// Handle отменяет запланированную задачу. Cancel идемпотентен.
type Handle interface {
	Cancel()
}

// Scheduler планирует однократные и периодические задачи
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func()) Handle
	ScheduleRepeating(interval time.Duration, fn func()) Handle
}

// Timer реализация на time.AfterFunc и time.Ticker
type Timer struct{}

// NewTimer создает планировщик на реальном времени
func NewTimer() *Timer {
	return &Timer{}
}

type onceHandle struct {
	t *time.Timer
}

func (h *onceHandle) Cancel() {
	h.t.Stop()
}

func (Timer) ScheduleOnce(delay time.Duration, fn func()) Handle {
	return &onceHandle{t: time.AfterFunc(delay, fn)}
}

type repeatingHandle struct {
	stop chan struct{}
	once sync.Once
}

func (h *repeatingHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}

func (Timer) ScheduleRepeating(interval time.Duration, fn func()) Handle {
	h := &repeatingHandle{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return h
}
