package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const (
	StatusOK       = "OK"
	StatusDegraded = "DEGRADED"
	StatusStarting = "STARTING"
)

// StorageState сообщает состояние движка хранения
type StorageState interface {
	Ready() bool
	Degraded() bool
}

type Handler struct {
	state      StorageState
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(state StorageState, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		state:      state,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

// healthCheck всегда отвечает 200: деградация не делает хранилище недоступным
func (h *Handler) healthCheck(_ context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	resp := Response{Status: StatusOK}
	if h.state != nil {
		resp.Ready = h.state.Ready()
		resp.Degraded = h.state.Degraded()
	}

	switch {
	case h.state != nil && !resp.Ready:
		resp.Status = StatusStarting
	case resp.Degraded:
		resp.Status = StatusDegraded
	}

	return &Output{Body: resp}, nil
}
