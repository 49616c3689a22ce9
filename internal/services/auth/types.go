package auth

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionNotFound    = errors.New("session not found")
	ErrRefreshNotFound    = errors.New("refresh token not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type SessionRecord struct {
	SID       string
	SubjectID string
	Role      string
	ExpiresAt time.Time
}

type AccessClaims struct {
	SubjectID string
	SID       string
	Role      string
	ExpiresAt time.Time
}

type Me struct {
	ID    string
	Email string
	Name  string
	Role  string
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	Me            Me
}
