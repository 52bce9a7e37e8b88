package auth

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Service ties users to tokens.
type Service struct {
	Users      UserStore
	Tokens     *TokenService
	BcryptCost int
	Logger     *zap.Logger
}

func NewService(users UserStore, tokens *TokenService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Users: users, Tokens: tokens, BcryptCost: bcrypt.DefaultCost, Logger: logger}
}

// Registration is the input to Register.
type Registration struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates an active, non-superuser account.
func (s *Service) Register(ctx context.Context, r Registration) (User, error) {
	existing, err := s.Users.UserByUsername(ctx, r.Username)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return User{}, ErrUserExists
	}

	hash, err := HashPassword(r.Password, s.BcryptCost)
	if err != nil {
		return User{}, err
	}

	u, err := s.Users.CreateUser(ctx, User{
		Username:     r.Username,
		Email:        strings.ToLower(r.Email),
		FullName:     r.FullName,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return User{}, err
	}
	s.Logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login checks the password and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	u, err := s.Users.UserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return s.Tokens.Issue(*u)
}

// Refresh trades a valid refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.Tokens.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.Tokens.Issue(*u)
}

// Authenticate resolves an access token to an active user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.Tokens.Validate(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return s.userFromClaims(ctx, claims)
}

func (s *Service) userFromClaims(ctx context.Context, claims *Claims) (*User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	u, err := s.Users.UserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidToken
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
