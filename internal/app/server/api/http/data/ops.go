package data

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) exportOp() huma.Operation {
	return huma.Operation{
		OperationID: "data-export",
		Method:      http.MethodGet,
		Path:        "/api/v1/export",
		Summary:     "Выгрузить все данные",
		Description: "Возвращает канонические ключи и все ключи долговременного хранилища в расшифрованном виде.",
		Tags:        []string{"data"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}

func (h *Handler) importOp() huma.Operation {
	return huma.Operation{
		OperationID: "data-import",
		Method:      http.MethodPost,
		Path:        "/api/v1/import",
		Summary:     "Загрузить данные",
		Description: "Каждое значение сохраняется как обычная запись, с той же классификацией и сроком жизни.",
		Tags:        []string{"data"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}

func (h *Handler) storageOp() huma.Operation {
	return huma.Operation{
		OperationID: "data-storage",
		Method:      http.MethodGet,
		Path:        "/api/v1/storage",
		Summary:     "Оценка занятого места",
		Tags:        []string{"data"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}

func (h *Handler) sweepOp() huma.Operation {
	return huma.Operation{
		OperationID: "data-sweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/sweep",
		Summary:     "Удалить истекшие записи",
		Tags:        []string{"data"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}
