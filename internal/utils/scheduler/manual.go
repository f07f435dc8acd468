package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual планировщик с ручным временем. Задачи выполняются синхронно
// внутри Advance, в порядке наступления сроков.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks map[int]*manualTask
}

type manualTask struct {
	id       int
	due      time.Duration
	interval time.Duration
	fn       func()
}

type manualHandle struct {
	m  *Manual
	id int
}

func (h *manualHandle) Cancel() {
	h.m.mu.Lock()
	delete(h.m.tasks, h.id)
	h.m.mu.Unlock()
}

// NewManual создает планировщик с нулевым временем
func NewManual() *Manual {
	return &Manual{tasks: make(map[int]*manualTask)}
}

func (m *Manual) ScheduleOnce(delay time.Duration, fn func()) Handle {
	return m.add(delay, 0, fn)
}

func (m *Manual) ScheduleRepeating(interval time.Duration, fn func()) Handle {
	return m.add(interval, interval, fn)
}

func (m *Manual) add(delay, interval time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.tasks[m.seq] = &manualTask{id: m.seq, due: m.now + delay, interval: interval, fn: fn}
	return &manualHandle{m: m, id: m.seq}
}

// Pending возвращает число активных задач
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance сдвигает время на d и выполняет все наступившие задачи
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		task := m.nextDue(target)
		if task == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = task.due
		if task.interval > 0 {
			task.due += task.interval
		} else {
			delete(m.tasks, task.id)
		}
		fn := task.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *Manual) nextDue(target time.Duration) *manualTask {
	due := make([]*manualTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.due <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due == due[j].due {
			return due[i].id < due[j].id
		}
		return due[i].due < due[j].due
	})
	return due[0]
}
