package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const MinPasswordLength = 6

// AdminUser is the staff account behind a session.
type AdminUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a signed-in admin and the access token proving it.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        AdminUser `json:"user"`
}

// Claims are the access token claims issued by the auth API.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthProvider is the account store: the hosted auth API in production, a
// single env-configured admin in development.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	User(ctx context.Context, token string) (*AdminUser, error)
	UpdatePassword(ctx context.Context, token, password string) error
	SignOut(ctx context.Context, token string) error
}

// AuthService signs admins in and verifies their session tokens.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Verify(token string) (*AdminUser, error)
	CurrentUser(ctx context.Context, token string) (*AdminUser, error)
	UpdatePassword(ctx context.Context, token, password, confirm string) error
	SignOut(ctx context.Context, token string) error
}

type authService struct {
	provider AuthProvider
	secret   []byte
	log      *zap.Logger
}

// NewAuthService creates an AuthService that verifies tokens with jwtSecret.
func NewAuthService(provider AuthProvider, jwtSecret string, log *zap.Logger) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{provider: provider, secret: []byte(jwtSecret), log: log}
}

// SignIn exchanges credentials for a session.
func (s *authService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	return s.provider.SignIn(ctx, email, password)
}

// Verify checks the token signature and expiry locally, without a round
// trip to the auth API.
func (s *authService) Verify(token string) (*AdminUser, error) {
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return nil, err
	}
	return &AdminUser{ID: claims.Subject, Email: claims.Email}, nil
}

// CurrentUser verifies the token locally, then asks the provider for the
// account behind it.
func (s *authService) CurrentUser(ctx context.Context, token string) (*AdminUser, error) {
	if _, err := s.Verify(token); err != nil {
		return nil, err
	}
	return s.provider.User(ctx, token)
}

// UpdatePassword changes the admin's password and ends the session so the
// admin has to sign in again. Once the password has changed, a failed
// sign-out is only logged.
func (s *authService) UpdatePassword(ctx context.Context, token, password, confirm string) error {
	if err := ValidateNewPassword(password, confirm); err != nil {
		return err
	}
	if err := s.provider.UpdatePassword(ctx, token, password); err != nil {
		return err
	}
	if err := s.provider.SignOut(ctx, token); err != nil {
		s.log.Warn("sign out after password change failed", zap.Error(err))
	}
	return nil
}

// SignOut revokes the session. An empty token is a no-op.
func (s *authService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.provider.SignOut(ctx, token)
}

// ValidateNewPassword checks that both fields match and meet the minimum
// length.
func ValidateNewPassword(password, confirm string) error {
	if password == "" || confirm == "" {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ParseToken validates an HS256 access token and returns its claims.
func ParseToken(token string, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("token not valid")
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return claims, nil
}

// IssueToken signs an access token the same way the auth API does.
func IssueToken(user AdminUser, secret []byte, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := &Claims{
		Email: user.Email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}
