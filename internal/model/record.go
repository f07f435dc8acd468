package model

import "encoding/json"

// StoredRecord - запись долговременного хранилища.
// Если Encrypted, то Data содержит JSON-строку с шифротекстом.
// Если Compressed (только без шифрования), то Data содержит JSON-строку
// с закодированным сжатым JSON.
type StoredRecord struct {
	Key        string          `json:"key"`
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
	Encrypted  bool            `json:"encrypted"`
	Compressed bool            `json:"compressed"`
	Expiry     *int64          `json:"expiry,omitempty"`
}

// IsExpired сообщает, что запись логически отсутствует на момент now (мс).
func (r *StoredRecord) IsExpired(now int64) bool {
	return r.Expiry != nil && *r.Expiry <= now
}

// ExpiryPtr возвращает указатель на срок истечения
func ExpiryPtr(ms int64) *int64 {
	return &ms
}
