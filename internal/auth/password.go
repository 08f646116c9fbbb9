package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned when the presented key does not match the configured hash.
var ErrInvalidAPIKey = errors.New("invalid api key")

// HashAPIKey produces the bcrypt hash stored in OPS_API_KEY_HASH.
func HashAPIKey(key string, cost int) (string, error) {
	if key == "" {
		return "", ErrInvalidAPIKey
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyAPIKey checks key against the configured hash. An empty hash disables key login.
func VerifyAPIKey(hash, key string) error {
	if hash == "" || key == "" {
		return ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}
