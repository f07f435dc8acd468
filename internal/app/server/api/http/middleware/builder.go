package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// Container копит мидлвари для очередной группы операций
type Container struct {
	huma.Middlewares
}

func NewContainer() *Container {
	return &Container{
		Middlewares: make(huma.Middlewares, 0),
	}
}

// Add добавляет мидлвари в порядке вызова; nil пропускаются
func (mc *Container) Add(mws ...func(ctx huma.Context, next func(huma.Context))) *Container {
	for _, mw := range mws {
		if mw != nil {
			mc.Middlewares = append(mc.Middlewares, mw)
		}
	}
	return mc
}

// GetAllAndClear возвращает накопленные мидлвари и очищает контейнер
func (mc *Container) GetAllAndClear() huma.Middlewares {
	result := mc.Middlewares
	mc.Middlewares = make(huma.Middlewares, 0)
	return result
}
