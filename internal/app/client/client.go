package client

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/exp/slog"

	"wealthtracker/internal/app/client/config"
	"wealthtracker/internal/app/client/crypto"
	"wealthtracker/internal/domain/cleanup"
	"wealthtracker/internal/domain/record"
	"wealthtracker/internal/infrastructure/kv"
	"wealthtracker/internal/infrastructure/quota"
	"wealthtracker/internal/infrastructure/storage"
	"wealthtracker/internal/infrastructure/storage/bolt"
	"wealthtracker/internal/infrastructure/storage/memory"
	"wealthtracker/internal/infrastructure/storage/sqlite"
	"wealthtracker/internal/metrics"
	"wealthtracker/internal/utils/clock"
	"wealthtracker/internal/utils/scheduler"
)

// App собирает движок хранения из конфигурации
type App struct {
	config  *config.Config
	log     *slog.Logger
	keys    *crypto.KeyManager
	session *kv.SessionStore
	legacy  *kv.FileStore
	storage *record.Service

	cancel   context.CancelFunc
	mu       sync.Mutex
	shutdown bool
}

// Option настраивает App
type Option func(*appOptions)

type appOptions struct {
	metrics *metrics.Metrics
	clock   clock.Clock
	timers  scheduler.Scheduler
}

// WithMetrics подменяет набор метрик (по умолчанию metrics.Default())
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *appOptions) {
		o.metrics = m
	}
}

// WithClock подменяет часы
func WithClock(c clock.Clock) Option {
	return func(o *appOptions) {
		o.clock = c
	}
}

// WithScheduler подменяет планировщик очистки
func WithScheduler(s scheduler.Scheduler) Option {
	return func(o *appOptions) {
		o.timers = s
	}
}

func New(cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("конфигурация не задана")
	}
	if log == nil {
		log = slog.Default()
	}

	o := appOptions{
		clock:  clock.System(),
		timers: scheduler.NewTimer(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.Default()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		// Без каталога данных работаем только на сессионном хранилище и памяти
		log.Warn("Не удалось создать каталог данных", "dir", cfg.DataDir, "error", err)
	}

	session := kv.NewSessionStore(cfg.SessionPath, cfg.SessionTTL, o.clock)
	legacy := kv.NewFileStore(cfg.LegacyPath)
	keys := crypto.NewKeyManager(session, nil, log)
	codec := crypto.NewCodec(keys, nil, crypto.WithCompressionThreshold(cfg.CompressionThreshold))

	svc := record.NewService(record.Deps{
		OpenStore: openerFor(cfg, log),
		Legacy:    legacy,
		Session:   session,
		Codec:     codec,
		Clock:     o.clock,
		Scheduler: o.timers,
		Quota:     quota.NewDirEstimator(cfg.DataDir, 0),
		Log:       log,
		Metrics:   o.metrics,
	}, record.Config{
		DefaultExpiryDays: cfg.DefaultExpiryDays,
		ManualCompression: cfg.ManualCompression,
		Cleanup: cleanup.Config{
			InitialDelay: cfg.CleanupInitialDelay,
			Interval:     cfg.CleanupInterval,
		},
	})

	return &App{
		config:  cfg,
		log:     log,
		keys:    keys,
		session: session,
		legacy:  legacy,
		storage: svc,
	}, nil
}

// openerFor выбирает долговременное хранилище по DURABLE_BACKEND
func openerFor(cfg *config.Config, log *slog.Logger) storage.Opener {
	switch cfg.DurableBackend {
	case config.BackendSQLite:
		return sqlite.Opener(cfg.DurablePath, log)
	case config.BackendMemory:
		return memory.Opener(memory.New())
	default:
		return bolt.Opener(cfg.DurablePath, bolt.WithLogger(log))
	}
}

// Storage возвращает фасад хранилища
func (a *App) Storage() record.Servicer {
	return a.storage
}

// Config возвращает конфигурацию приложения
func (a *App) Config() *config.Config {
	return a.config
}

// Init инициализирует хранилище; при недоступном долговременном хранилище
// приложение продолжает работать на устаревшем
func (a *App) Init(ctx context.Context) error {
	if err := a.storage.Init(ctx); err != nil {
		return err
	}
	if a.storage.Degraded() {
		a.log.Warn("Долговременное хранилище недоступно, данные пишутся в устаревшее хранилище",
			"backend", a.config.DurableBackend,
			"path", a.config.DurablePath,
		)
	}
	return nil
}

// Session возвращает текущую сессию
func (a *App) Session() (kv.Session, error) {
	return a.session.Current()
}

// EndSession завершает сессию: ключ шифрования и флаг миграции забываются
func (a *App) EndSession() error {
	a.keys.Destroy()
	if err := a.session.End(); err != nil {
		return fmt.Errorf("ошибка завершения сессии: %w", err)
	}
	return nil
}

// Run инициализирует хранилище и держит очистку запущенной до сигнала или отмены ctx
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	if err := a.Init(ctx); err != nil {
		return err
	}

	a.log.Info("Хранилище запущено",
		"backend", a.config.DurableBackend,
		"data_dir", a.config.DataDir,
		"env", a.config.Env,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
	case <-ctx.Done():
	}

	a.Shutdown()
	return nil
}

// Shutdown останавливает очистку и закрывает хранилища. Повторный вызов ничего не делает.
func (a *App) Shutdown() {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return
	}
	a.shutdown = true
	cancel := a.cancel
	a.mu.Unlock()

	a.log.Info("Завершение работы хранилища...")
	if cancel != nil {
		cancel()
	}
	a.storage.Dispose()
	a.keys.Destroy()
	a.log.Info("Хранилище остановлено")
}
