package data

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"wealthtracker/internal/domain/record"
	"wealthtracker/internal/infrastructure/storage"
)

type Handler struct {
	service    record.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
	security   []map[string][]string
}

func NewHandler(service record.Servicer, log *slog.Logger, mws huma.Middlewares, security []map[string][]string) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
		security:   security,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.exportOp(), h.export)
	huma.Register(api, h.importOp(), h.importData)
	huma.Register(api, h.storageOp(), h.storageInfo)
	huma.Register(api, h.sweepOp(), h.sweep)
}

func (h *Handler) export(ctx context.Context, _ *struct{}) (*exportOutput, error) {
	return &exportOutput{Body: h.service.ExportData(ctx)}, nil
}

func (h *Handler) importData(ctx context.Context, input *importInput) (*importOutput, error) {
	if err := h.service.ImportData(ctx, input.Body); err != nil {
		h.log.Error("import", "entries", len(input.Body), "error", err)
		if errors.Is(err, record.ErrNotPersisted) {
			return nil, huma.NewError(http.StatusInsufficientStorage, "import incomplete", err)
		}
		return nil, huma.Error422UnprocessableEntity("import incomplete", err)
	}
	return &importOutput{Body: importResponse{Imported: len(input.Body), Status: "Ok"}}, nil
}

func (h *Handler) storageInfo(ctx context.Context, _ *struct{}) (*storageOutput, error) {
	est := h.service.GetStorageInfo(ctx)
	return &storageOutput{Body: storageResponse{
		Usage:    est.Usage,
		Quota:    est.Quota,
		Ready:    h.service.Ready(),
		Degraded: h.service.Degraded(),
	}}, nil
}

func (h *Handler) sweep(ctx context.Context, _ *struct{}) (*sweepOutput, error) {
	removed, err := h.service.Sweep(ctx)
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return nil, huma.Error503ServiceUnavailable("durable store unavailable")
	case err != nil:
		h.log.Error("sweep", "error", err)
		return nil, huma.Error500InternalServerError("sweep failed")
	}
	return &sweepOutput{Body: sweepResponse{Removed: removed}}, nil
}
