package item

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "items-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "Список ключей долговременного хранилища",
		Tags:        []string{"items"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "items-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{key}",
		Summary:     "Получить значение",
		Description: "Возвращает значение из долговременного хранилища или, при его сбое, из устаревшего.",
		Tags:        []string{"items"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}

func (h *Handler) putOp() huma.Operation {
	return huma.Operation{
		OperationID:   "items-put",
		Method:        http.MethodPut,
		Path:          "/api/v1/items/{key}",
		Summary:       "Сохранить значение",
		Description:   "Финансовые ключи шифруются и не истекают, остальные хранятся открыто 30 дней, если не указано иное.",
		Tags:          []string{"items"},
		Security:      h.security,
		Middlewares:   h.middleware,
		DefaultStatus: http.StatusOK,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "items-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/items/{key}",
		Summary:     "Удалить значение из обоих хранилищ",
		Tags:        []string{"items"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}

func (h *Handler) clearOp() huma.Operation {
	return huma.Operation{
		OperationID: "items-clear",
		Method:      http.MethodDelete,
		Path:        "/api/v1/items",
		Summary:     "Очистить хранилище",
		Description: "Очищает таблицы и удаляет из устаревшего хранилища только ключи приложения.",
		Tags:        []string{"items"},
		Security:    h.security,
		Middlewares: h.middleware,
	}
}
