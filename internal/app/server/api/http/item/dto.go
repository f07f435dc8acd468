package item

import (
	"encoding/json"

	"wealthtracker/internal/domain/record"
)

type keyInput struct {
	Key string `path:"key" example:"accounts" doc:"Ключ значения" minLength:"1"`
}

type getOutput struct {
	Body itemResponse
}

type itemResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type putInput struct {
	Key  string `path:"key" example:"accounts" doc:"Ключ значения" minLength:"1"`
	Body putRequest
}

type putRequest struct {
	Value      json.RawMessage `json:"value" doc:"Любое JSON-значение"`
	Encrypted  *bool           `json:"encrypted,omitempty" doc:"Переопределяет классификацию чувствительности"`
	ExpiryDays *float64        `json:"expiryDays,omitempty" doc:"Срок жизни в днях, 0 - без срока"`
	Compress   bool            `json:"compress,omitempty" doc:"Запросить сжатие"`
}

func (r putRequest) options() []record.SetOption {
	return record.Options{
		Encrypted:  r.Encrypted,
		ExpiryDays: r.ExpiryDays,
		Compress:   r.Compress,
	}.SetOptions()
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Keys []string `json:"keys"`
}

type mutationOutput struct {
	Body mutationResponse
}

type mutationResponse struct {
	Key    string `json:"key,omitempty"`
	Status string `json:"status"`
}
