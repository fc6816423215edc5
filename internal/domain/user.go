package domain

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Height       float64
	Weight       float64
	Sex          string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser holds the fields supplied at registration, with the password already hashed.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Height       float64
	Weight       float64
	Sex          string
}

// SessionClaims identify the subject of a session token.
type SessionClaims struct {
	UserID   int64
	Username string
	Email    string
}

// Session is the transient result of a successful login.
type Session struct {
	UserID    int64
	Username  string
	Email     string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
