package common

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is twice as long as size.
func MakeRandHexString(size int) (string, error) {
	b, err := GenerateRandByteArray(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeRandBase64String returns size random bytes in standard padded base64.
func MakeRandBase64String(size int) (string, error) {
	b, err := GenerateRandByteArray(size)
	if err != nil {
		return "", err
	}
	defer WipeByteArray(b)
	return base64.StdEncoding.EncodeToString(b), nil
}

// GenerateRandByteArray reads size bytes from the system CSPRNG.
func GenerateRandByteArray(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// WipeByteArray overwrites b with zeros. Nil is ignored.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// StripBearer removes an optional "Bearer " prefix (case-insensitive) and
// surrounding whitespace from an Authorization value.
func StripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= len(BearerPrefix) && strings.EqualFold(v[:len(BearerPrefix)], BearerPrefix) {
		v = strings.TrimSpace(v[len(BearerPrefix):])
	}
	return v
}
