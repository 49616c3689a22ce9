package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

const (
	refreshTokenBytes = 32
	sessionIDBytes    = 20
)

func randomHex(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("token length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewRefreshToken mints the opaque token a client trades for fresh access
// tokens; rotation invalidates the previous one.
func NewRefreshToken() (string, error) {
	return randomHex(refreshTokenBytes)
}

func NewSessionID() (string, error) {
	return randomHex(sessionIDBytes)
}
