package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
	ErrInvalidHash      = errors.New("cryptox: invalid hash format")
)

// HashPassword generates a PHC-format Argon2id hash string including salt and parameters.
func HashPassword(password string) (string, error) {
	p, err := currentPepper()
	if err != nil {
		return "", err
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password+p), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword compares a plaintext password against a PHC-style Argon2id
// hash. It returns ErrPasswordMismatch on a wrong password and an error
// wrapping ErrInvalidHash when the stored hash cannot be parsed.
func VerifyPassword(password, encodedHash string) error {
	params, salt, expected, err := parsePHC(encodedHash)
	if err != nil {
		return err
	}

	p, err := currentPepper()
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(password+p),
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		uint32(len(expected)), // #nosec G115 - hash length is bounded by the PHC string
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// VerifyDummy burns the same amount of work as a real VerifyPassword call and
// always returns ErrPasswordMismatch. Call it when the account does not exist
// so the response time does not reveal that.
func VerifyDummy(password string) error {
	dummyOnce.Do(func() {
		h, err := HashPassword("dummy-password-for-timing")
		if err == nil {
			dummyHash = h
		}
	})
	if dummyHash != "" {
		_ = VerifyPassword(password, dummyHash)
	}
	return ErrPasswordMismatch
}

type argonParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// parsePHC splits $argon2id$v=19$m=X,t=Y,p=Z$salt$hash into its parts.
func parsePHC(encoded string) (argonParams, []byte, []byte, error) {
	var params argonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return params, nil, nil, fmt.Errorf("%w: expected 6 parts", ErrInvalidHash)
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, fmt.Errorf("%w: not argon2id", ErrInvalidHash)
	}
	if parts[2] != "v=19" {
		return params, nil, nil, fmt.Errorf("%w: wrong version", ErrInvalidHash)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return params, nil, nil, fmt.Errorf("%w: hash", ErrInvalidHash)
	}

	return params, salt, hash, nil
}

// GeneratePassword returns a random 16 character alphanumeric password. Used
// when the bootstrap admin is created without an explicit password.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 16

	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
