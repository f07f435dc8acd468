package cleanup

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"wealthtracker/internal/utils/scheduler"
)

const (
	DefaultInitialDelay = 5 * time.Second
	DefaultInterval     = time.Hour

	sweepTimeout = 30 * time.Second
)

// Sweeper удаляет истекшие записи из всех долговременных таблиц
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Config struct {
	InitialDelay time.Duration
	Interval     time.Duration
}

// Scheduler запускает одну очистку с короткой задержкой и периодическую
type Scheduler struct {
	mu       sync.Mutex
	sweeper  Sweeper
	timers   scheduler.Scheduler
	log      *slog.Logger
	cfg      Config
	handles  []scheduler.Handle
	started  bool
	disposed bool
}

func New(sweeper Sweeper, timers scheduler.Scheduler, log *slog.Logger, cfg Config) *Scheduler {
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		sweeper: sweeper,
		timers:  timers,
		log:     log.With("component", "cleanup"),
		cfg:     cfg,
	}
}

// Start планирует очистки. Повторный вызов или вызов после Dispose ничего не делает.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.disposed {
		return
	}
	s.started = true
	s.handles = append(s.handles,
		s.timers.ScheduleOnce(s.cfg.InitialDelay, s.run),
		s.timers.ScheduleRepeating(s.cfg.Interval, s.run),
	)
	s.log.Debug("cleanup scheduled", "initial_delay", s.cfg.InitialDelay, "interval", s.cfg.Interval)
}

// Dispose отменяет оба таймера. Можно вызывать повторно и до Start.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true
	for _, h := range s.handles {
		h.Cancel()
	}
	s.handles = nil
}

func (s *Scheduler) run() {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("expired records removed", "count", removed)
	}
}
