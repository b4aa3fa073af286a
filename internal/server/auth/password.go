package auth

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/echo/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordSaltSize   = 16
	passwordKeySize    = 32
	passwordIterations = 100_000
)

// PasswordHasher derives PBKDF2-HMAC-SHA512 password hashes stored as
// "{iterations}.{base64 salt}.{base64 key}".
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher returns a hasher with the production work factor.
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{iterations: passwordIterations}
}

// NewPasswordHasherWithIterations lets tests trade work factor for speed.
// Verify always honours the iteration count stored in the hash.
func NewPasswordHasherWithIterations(iterations int) *PasswordHasher {
	if iterations <= 0 {
		iterations = passwordIterations
	}
	return &PasswordHasher{iterations: iterations}
}

// Hash salts and derives password. It fails only if the system random source does.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt, err := common.GenerateRandByteArray(passwordSaltSize)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, passwordKeySize, sha512.New)
	defer common.WipeByteArray(key)

	return strconv.Itoa(h.iterations) + "." +
		base64.StdEncoding.EncodeToString(salt) + "." +
		base64.StdEncoding.EncodeToString(key), nil
}

// Verify reports whether password matches encoded. Malformed input yields
// false, never an error or a panic.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	iterations, salt, stored, err := decodePasswordHash(encoded)
	if err != nil {
		return false
	}

	candidate := pbkdf2.Key([]byte(password), salt, iterations, len(stored), sha512.New)
	defer common.WipeByteArray(candidate)

	return subtle.ConstantTimeCompare(candidate, stored) == 1
}

func decodePasswordHash(encoded string) (int, []byte, []byte, error) {
	parts := strings.Split(encoded, ".")
	if len(parts) != 3 {
		return 0, nil, nil, common.ErrInvalidCredentialFormat
	}

	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, common.ErrInvalidCredentialFormat
	}

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, common.ErrInvalidCredentialFormat
	}

	key, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, common.ErrInvalidCredentialFormat
	}

	return iterations, salt, key, nil
}
