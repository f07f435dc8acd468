package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestEncodeBase64_DecodeBase64(t *testing.T) {
	data := []byte("hello world")
	encoded := EncodeBase64(data)
	assert.NotEmpty(t, encoded)

	decoded, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	// Некорректный base64
	_, err = DecodeBase64("invalid")
	require.Error(t, err)
}

func TestGenerateRandomBytes(t *testing.T) {
	b, err := GenerateRandomBytes(nil, 32)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	fixed, err := GenerateRandomBytes(bytes.NewReader(bytes.Repeat([]byte{7}, 4)), 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7, 7}, fixed)

	_, err = GenerateRandomBytes(failingReader{}, 4)
	assert.Error(t, err)
}

func TestGenerateRandomHex(t *testing.T) {
	h, err := GenerateRandomHex(nil, 16)
	require.NoError(t, err)
	assert.Len(t, h, 32)

	_, err = hex.DecodeString(h)
	assert.NoError(t, err)
}

func TestClearMemory(t *testing.T) {
	data := []byte{1, 2, 3}
	ClearMemory(data)
	assert.Equal(t, []byte{0, 0, 0}, data)
}
