// Package airq talks to air-Q devices: fetching their encrypted telemetry
// and turning it into measurements.
package airq

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hamed0406/airqmon/internal/domain"
)

// DecryptReason classifies why a payload could not be decrypted.
type DecryptReason string

const (
	BadEncoding      DecryptReason = "bad_encoding"
	BadPadding       DecryptReason = "bad_padding"
	MalformedPayload DecryptReason = "malformed_payload"
	UnknownKeyLength DecryptReason = "unknown_key_length"
)

// DecryptError reports a failed decode of a device payload.
type DecryptError struct {
	Reason DecryptReason
	Err    error
}

func (e *DecryptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decrypt: %s: %v", e.Reason, e.Err)
	}
	return "decrypt: " + string(e.Reason)
}

func (e *DecryptError) Unwrap() error { return e.Err }

// Crypto decrypts air-Q payloads with a key derived from the device secret.
// The device pads short secrets with ASCII '0' up to 32 bytes and truncates
// longer ones, so we do the same.
type Crypto struct {
	key []byte
}

func NewCrypto(secret string) *Crypto {
	key := []byte(secret)
	for len(key) < 32 {
		key = append(key, '0')
	}
	return &Crypto{key: key[:32]}
}

// DecodeMessage reverses the vendor transport: base64 decode, AES-256-CBC
// decrypt with the IV carried in the first block, strip PKCS#7 padding.
// Pure function of (payload, secret).
func (c *Crypto) DecodeMessage(msgb64 string) ([]byte, error) {
	msg, err := base64.StdEncoding.DecodeString(msgb64)
	if err != nil {
		return nil, &DecryptError{Reason: BadEncoding, Err: err}
	}
	if len(msg) < aes.BlockSize || len(msg)%aes.BlockSize != 0 {
		return nil, &DecryptError{Reason: MalformedPayload,
			Err: fmt.Errorf("ciphertext length %d not a block multiple", len(msg))}
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		// key is always derived to 32 bytes; kept for safety
		return nil, &DecryptError{Reason: UnknownKeyLength, Err: err}
	}

	iv, ct := msg[:aes.BlockSize], msg[aes.BlockSize:]
	if len(ct) == 0 {
		return nil, &DecryptError{Reason: MalformedPayload, Err: fmt.Errorf("empty ciphertext")}
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	unpadded, err := pkcs7Unpad(plain)
	if err != nil {
		return nil, &DecryptError{Reason: BadPadding, Err: err}
	}
	return unpadded, nil
}

// EncodeMessage is the inverse of DecodeMessage (random IV, PKCS#7 pad,
// AES-256-CBC). It exists for tests and the fake device server.
func (c *Crypto) EncodeMessage(plaintext []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", &DecryptError{Reason: UnknownKeyLength, Err: err}
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("encode: read iv: %w", err)
	}
	padded := pkcs7Pad(plaintext)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecodeMeasurement decrypts one payload and parses it into a typed
// measurement. Missing or null metrics stay absent; they are never errors.
func (c *Crypto) DecodeMeasurement(path domain.SensorPath, msgb64 string, fetchedAt time.Time) (*domain.Measurement, error) {
	plain, err := c.DecodeMessage(msgb64)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(plain, &fields); err != nil {
		return nil, &DecryptError{Reason: MalformedPayload, Err: err}
	}

	m := &domain.Measurement{
		SensorPath: path,
		ObservedAt: observedAt(fields, fetchedAt),
	}
	for _, name := range domain.MetricNames {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if v, ok := numeric(raw); ok {
			m.Set(name, v)
		}
	}
	return m, nil
}

// deviceClockSkewMax bounds how far a device timestamp may sit from the
// fetch time before it is distrusted. Devices with a wrong clock (or
// reporting epoch seconds instead of milliseconds) would otherwise place
// rows decades away under the (sensor_path, observed_at) key.
const deviceClockSkewMax = 24 * time.Hour

// observedAt prefers the device-reported epoch-milliseconds timestamp when
// it sits within the skew window, and falls back to the fetch time.
// Always UTC.
func observedAt(fields map[string]any, fetchedAt time.Time) time.Time {
	if raw, ok := fields["timestamp"]; ok {
		if ms, ok := numeric(raw); ok && ms > 0 {
			ts := time.UnixMilli(int64(ms)).UTC()
			if d := ts.Sub(fetchedAt); d > -deviceClockSkewMax && d < deviceClockSkewMax {
				return ts
			}
		}
	}
	return fetchedAt.UTC()
}

// numeric coerces an air-Q value: plain numbers or [value, error] pairs.
// Nulls and anything else are treated as metric absent.
func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case []any:
		if len(t) > 0 {
			return numeric(t[0])
		}
	}
	return 0, false
}

func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("pad length %d out of range", n)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("inconsistent padding bytes")
		}
	}
	return b[:len(b)-n], nil
}
