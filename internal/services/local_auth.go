package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const localAdminID = "local-admin"

// localAuth authenticates a single admin configured through the environment.
// Password changes live in memory until the process restarts.
type localAuth struct {
	email  string
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu   sync.RWMutex
	hash []byte
}

// NewLocalAuth returns a provider for a single admin whose bcrypt hash comes
// from the environment.
func NewLocalAuth(email, passwordHash, jwtSecret string, ttl time.Duration) AuthProvider {
	return &localAuth{
		email:  strings.TrimSpace(email),
		hash:   []byte(passwordHash),
		secret: []byte(jwtSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignIn checks the password against the hash and issues a signed token.
func (a *localAuth) SignIn(_ context.Context, email, password string) (*Session, error) {
	if !strings.EqualFold(strings.TrimSpace(email), a.email) {
		return nil, ErrInvalidCredentials
	}
	a.mu.RLock()
	hash := a.hash
	a.mu.RUnlock()
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user := AdminUser{ID: localAdminID, Email: a.email}
	token, exp, err := IssueToken(user, a.secret, a.ttl, a.now())
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, ExpiresAt: exp, User: user}, nil
}

// User reads the account from the token claims.
func (a *localAuth) User(_ context.Context, token string) (*AdminUser, error) {
	claims, err := ParseToken(token, a.secret)
	if err != nil {
		return nil, err
	}
	return &AdminUser{ID: claims.Subject, Email: claims.Email}, nil
}

// UpdatePassword replaces the in-memory hash. It is lost on restart.
func (a *localAuth) UpdatePassword(_ context.Context, _ string, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.mu.Lock()
	a.hash = hash
	a.mu.Unlock()
	return nil
}

// SignOut has nothing to revoke; the caller clears the cookie.
func (a *localAuth) SignOut(context.Context, string) error {
	return nil
}
