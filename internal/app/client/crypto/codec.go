package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultCompressionThreshold - размер сериализованного значения, начиная
	// с которого (строго больше) разрешено сжатие
	DefaultCompressionThreshold = 10 * 1024

	recordKeyInfo = "wealthtracker-record-v1"
)

var (
	ErrDecryption    = errors.New("decryption failed")
	ErrSerialization = errors.New("serialization failed")
	ErrCompression   = errors.New("compression failed")
)

// Codec шифрует и сжимает сериализованные JSON-значения записей
type Codec struct {
	keys      KeySource
	random    io.Reader
	threshold int

	encoderPool sync.Pool
	decoderPool sync.Pool
}

// CodecOption настраивает Codec
type CodecOption func(*Codec)

// WithCompressionThreshold переопределяет порог сжатия
func WithCompressionThreshold(n int) CodecOption {
	return func(c *Codec) {
		c.threshold = n
	}
}

func NewCodec(keys KeySource, random io.Reader, opts ...CodecOption) *Codec {
	if random == nil {
		random = rand.Reader
	}
	c := &Codec{
		keys:      keys,
		random:    random,
		threshold: DefaultCompressionThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.encoderPool = sync.Pool{
		New: func() interface{} {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			return enc
		},
	}
	c.decoderPool = sync.Pool{
		New: func() interface{} {
			dec, _ := zstd.NewReader(nil)
			return dec
		},
	}
	return c
}

// Threshold возвращает порог сжатия в байтах
func (c *Codec) Threshold() int {
	return c.threshold
}

// ShouldCompress: сжатие только по запросу, только без шифрования
// и только если размер строго больше порога
func (c *Codec) ShouldCompress(size int, requested, encrypted bool) bool {
	return requested && !encrypted && size > c.threshold
}

// Encrypt сериализует value и шифрует его ключом сессии.
// Результат - base64(nonce || ciphertext).
func (c *Codec) Encrypt(value any) (string, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	key, err := c.recordKey()
	if err != nil {
		return "", err
	}
	defer ClearMemory(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("construct xchacha20-poly1305: %w", err)
	}

	nonce, err := GenerateRandomBytes(c.random, chacha20poly1305.NonceSizeX)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return EncodeBase64(sealed), nil
}

// Decrypt возвращает исходный JSON. Любой сбой (подмена, чужой ключ,
// повреждение) оборачивает ErrDecryption.
func (c *Codec) Decrypt(ciphertext string) (json.RawMessage, error) {
	sealed, err := DecodeBase64(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrDecryption, err)
	}
	if len(sealed) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}

	key, err := c.recordKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	defer ClearMemory(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	nonce, body := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if !json.Valid(plaintext) {
		return nil, fmt.Errorf("%w: plaintext is not json", ErrDecryption)
	}
	return json.RawMessage(plaintext), nil
}

// Compress сжимает сериализованное значение zstd и кодирует в base64
func (c *Codec) Compress(serialized []byte) (string, error) {
	enc, ok := c.encoderPool.Get().(*zstd.Encoder)
	if !ok || enc == nil {
		return "", fmt.Errorf("%w: encoder unavailable", ErrCompression)
	}
	defer c.encoderPool.Put(enc)

	return EncodeBase64(enc.EncodeAll(serialized, nil)), nil
}

// Decompress обращает Compress
func (c *Codec) Decompress(encoded string) ([]byte, error) {
	compressed, err := DecodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCompression, err)
	}

	dec, ok := c.decoderPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		return nil, fmt.Errorf("%w: decoder unavailable", ErrCompression)
	}
	defer c.decoderPool.Put(dec)

	out, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompression, err)
	}
	return out, nil
}

// recordKey выводит ключ записи из материала сессии через HKDF-SHA256
func (c *Codec) recordKey() ([]byte, error) {
	if c.keys == nil {
		return nil, errors.New("key source is not configured")
	}
	material := c.keys.GetOrCreateKey()

	ikm, err := hex.DecodeString(material)
	if err != nil {
		ikm = []byte(material)
	}
	defer ClearMemory(ikm)
	if len(ikm) == 0 {
		return nil, errors.New("empty key material")
	}

	r := hkdf.New(sha256.New, ikm, nil, []byte(recordKeyInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive record key: %w", err)
	}
	return key, nil
}
