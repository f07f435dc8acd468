package data

import (
	"encoding/json"
)

type exportOutput struct {
	Body map[string]json.RawMessage
}

type importInput struct {
	Body map[string]json.RawMessage
}

type importOutput struct {
	Body importResponse
}

type importResponse struct {
	Imported int    `json:"imported"`
	Status   string `json:"status"`
}

type storageOutput struct {
	Body storageResponse
}

type storageResponse struct {
	Usage    int64 `json:"usage" doc:"Занято байт"`
	Quota    int64 `json:"quota" doc:"Доступно байт всего"`
	Ready    bool  `json:"ready"`
	Degraded bool  `json:"degraded"`
}

type sweepOutput struct {
	Body sweepResponse
}

type sweepResponse struct {
	Removed int `json:"removed"`
}
