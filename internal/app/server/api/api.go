// Локальное API движка хранения (только для того же пользователя, по умолчанию loopback):
//
//GET    /api/v1/health       # Состояние хранилища (публичный)
//GET    /api/v1/items        # Список ключей
//GET    /api/v1/items/{key}  # Получить значение
//PUT    /api/v1/items/{key}  # Сохранить значение
//DELETE /api/v1/items/{key}  # Удалить значение
//DELETE /api/v1/items        # Очистить хранилище
//GET    /api/v1/export       # Выгрузка
//POST   /api/v1/import       # Загрузка
//GET    /api/v1/storage      # Оценка места
//POST   /api/v1/sweep        # Удалить истекшие записи
//GET    /metrics             # Prometheus

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/exp/slog"

	dataAPI "wealthtracker/internal/app/server/api/http/data"
	healthAPI "wealthtracker/internal/app/server/api/http/health"
	itemAPI "wealthtracker/internal/app/server/api/http/item"
	"wealthtracker/internal/app/server/api/http/middleware"
	"wealthtracker/internal/app/server/api/http/middleware/auth"
	"wealthtracker/internal/app/server/api/http/middleware/logger"
	"wealthtracker/internal/domain/record"
)

type Handlers struct {
	Health *healthAPI.Handler
	Item   *itemAPI.Handler
	Data   *dataAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register.
// gatherer может быть nil, тогда /metrics не публикуется.
func New(storage record.Servicer, token string, gatherer prometheus.Gatherer, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Wealthtracker Storage API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(storage, token, log)
	h.Health.SetupRoutes(API)
	h.Item.SetupRoutes(API)
	h.Data.SetupRoutes(API)

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

func handlers(storage record.Servicer, token string, log *slog.Logger) *Handlers {
	authMW := auth.New(token, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	var security []map[string][]string
	if authMW.Enabled() {
		security = []map[string][]string{{"bearer": {}}}
	}

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(storage, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware(), authMW.Middleware())
	itemHandler := itemAPI.NewHandler(storage, log, middlewares.GetAllAndClear(), security)

	middlewares.Add(loggerMW.Middleware(), authMW.Middleware())
	dataHandler := dataAPI.NewHandler(storage, log, middlewares.GetAllAndClear(), security)

	return &Handlers{
		Health: healthHandler,
		Item:   itemHandler,
		Data:   dataHandler,
	}
}
