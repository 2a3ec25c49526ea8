package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// gotrueClient talks to the hosted auth API's REST endpoints.
type gotrueClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewRemoteAuth returns a provider backed by the hosted auth API at baseURL.
func NewRemoteAuth(baseURL, apiKey string, timeout time.Duration) AuthProvider {
	return &gotrueClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueToken struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	ExpiresAt   int64      `json:"expires_at"`
	User        gotrueUser `json:"user"`
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// SignIn uses the password grant.
func (c *gotrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tok gotrueToken
	status, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &tok)
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	exp := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.ExpiresAt > 0 {
		exp = time.Unix(tok.ExpiresAt, 0)
	}
	return &Session{
		AccessToken: tok.AccessToken,
		ExpiresAt:   exp,
		User:        AdminUser{ID: tok.User.ID, Email: tok.User.Email},
	}, nil
}

// User fetches the account that owns token.
func (c *gotrueClient) User(ctx context.Context, token string) (*AdminUser, error) {
	var u gotrueUser
	status, err := c.do(ctx, http.MethodGet, "/auth/v1/user", token, nil, &u)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	return &AdminUser{ID: u.ID, Email: u.Email}, nil
}

// UpdatePassword sets a new password for the account that owns token.
func (c *gotrueClient) UpdatePassword(ctx context.Context, token, password string) error {
	status, err := c.do(ctx, http.MethodPut, "/auth/v1/user", token, map[string]string{"password": password}, nil)
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return err
}

// SignOut revokes token. An already expired session counts as signed out.
func (c *gotrueClient) SignOut(ctx context.Context, token string) error {
	status, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", token, nil, nil)
	// an already expired session is as good as a revoked one
	if status == http.StatusUnauthorized || status == http.StatusNotFound {
		return nil
	}
	return err
}

// do sends one request and decodes a 2xx JSON body into out. The status
// code is returned even when err is set so callers can map it.
func (c *gotrueClient) do(ctx context.Context, method, path, token string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode auth request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("auth api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr gotrueError
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("auth api %s %s: %d %s", method, path, resp.StatusCode, msg)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode auth response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
