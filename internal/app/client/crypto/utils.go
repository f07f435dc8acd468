package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
)

// ClearMemory затирает чувствительные данные из памяти
func ClearMemory(data []byte) {
	memguard.WipeBytes(data)
}

// GenerateRandomBytes читает size байт из r; при nil используется crypto/rand
func GenerateRandomBytes(r io.Reader, size int) ([]byte, error) {
	if r == nil {
		r = rand.Reader
	}
	bytes := make([]byte, size)
	if _, err := io.ReadFull(r, bytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return bytes, nil
}

// GenerateRandomHex генерирует случайную hex строку
func GenerateRandomHex(r io.Reader, size int) (string, error) {
	bytes, err := GenerateRandomBytes(r, size)
	if err != nil {
		return "", err
	}
	defer ClearMemory(bytes)
	return hex.EncodeToString(bytes), nil
}

// EncodeBase64 кодирует данные в стандартный base64
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 декодирует стандартный base64
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
