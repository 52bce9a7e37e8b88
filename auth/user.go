/*
Package auth identifies callers of the HTTP API.

PURPOSE:
  Registration, password login and bearer tokens. The billing core never
  sees any of this; handlers only need "who is calling" when a route
  requires it.

KEY CONCEPTS:
  User:         an account with a bcrypt password hash
  UserStore:    persistence port (store/sqlite, MemoryUsers)
  TokenService: HS256 access/refresh tokens
  Service:      Register, Login, Refresh on top of the two above
  Middleware:   Bearer header -> Identity in request context

SEE ALSO:
  - api/server.go: where the middleware is mounted
*/
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserExists         = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrUnauthenticated    = errors.New("authentication required")
)

// User is an API account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore persists users. Lookups return (nil, nil) when absent.
// CreateUser returns ErrUserExists on a duplicate username or email.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id int64) (*User, error)
}
