package item

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"wealthtracker/internal/domain/record"
)

type Handler struct {
	service    record.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
	security   []map[string][]string
}

// NewHandler создает обработчик; security задается, когда включен токен API
func NewHandler(service record.Servicer, log *slog.Logger, mws huma.Middlewares, security []map[string][]string) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
		security:   security,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.putOp(), h.put)
	huma.Register(api, h.deleteOp(), h.delete)
	huma.Register(api, h.clearOp(), h.clear)
}

func (h *Handler) list(ctx context.Context, _ *struct{}) (*listOutput, error) {
	keys, err := h.service.Keys(ctx)
	if err != nil {
		h.log.Error("list keys", "error", err)
		return nil, huma.Error500InternalServerError("failed to list keys")
	}
	if keys == nil {
		keys = []string{}
	}
	return &listOutput{Body: listResponse{Keys: keys}}, nil
}

func (h *Handler) get(ctx context.Context, input *keyInput) (*getOutput, error) {
	value, ok := h.service.Get(ctx, input.Key)
	if !ok {
		return nil, huma.Error404NotFound("key not found")
	}
	return &getOutput{Body: itemResponse{Key: input.Key, Value: value}}, nil
}

func (h *Handler) put(ctx context.Context, input *putInput) (*mutationOutput, error) {
	if len(input.Body.Value) == 0 {
		return nil, huma.Error422UnprocessableEntity("value is required")
	}

	err := h.service.Set(ctx, input.Key, input.Body.Value, input.Body.options()...)
	switch {
	case errors.Is(err, record.ErrNotPersisted):
		return nil, huma.NewError(http.StatusInsufficientStorage, "value not persisted", err)
	case errors.Is(err, record.ErrSerialization):
		return nil, huma.Error422UnprocessableEntity("value is not serializable", err)
	case err != nil:
		h.log.Error("set value", "key", input.Key, "error", err)
		return nil, huma.Error500InternalServerError("failed to store value")
	}

	return &mutationOutput{Body: mutationResponse{Key: input.Key, Status: "Ok"}}, nil
}

func (h *Handler) delete(ctx context.Context, input *keyInput) (*mutationOutput, error) {
	h.service.Remove(ctx, input.Key)
	return &mutationOutput{Body: mutationResponse{Key: input.Key, Status: "Ok"}}, nil
}

func (h *Handler) clear(ctx context.Context, _ *struct{}) (*mutationOutput, error) {
	h.service.Clear(ctx)
	return &mutationOutput{Body: mutationResponse{Status: "Ok"}}, nil
}
