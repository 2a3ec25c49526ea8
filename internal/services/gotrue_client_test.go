package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newAuthServer(t *testing.T, handler http.HandlerFunc) AuthProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemoteAuth(srv.URL, "anon-key", 2*time.Second)
}

func TestRemoteAuth_SignIn(t *testing.T) {
	provider := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("missing apikey header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_at":1767225600,"user":{"id":"u-1","email":"` + body["email"] + `"}}`))
	})

	sess, err := provider.SignIn(context.Background(), "admin@campus.edu", "secret")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if sess.AccessToken != "tok" || sess.User.ID != "u-1" || sess.ExpiresAt.Unix() != 1767225600 {
		t.Errorf("unexpected session %+v", sess)
	}

	if _, err := provider.SignIn(context.Background(), "admin@campus.edu", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRemoteAuth_User(t *testing.T) {
	provider := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u-1","email":"admin@campus.edu"}`))
	})

	user, err := provider.User(context.Background(), "good")
	if err != nil || user.Email != "admin@campus.edu" {
		t.Errorf("User = %+v, %v", user, err)
	}
	if _, err := provider.User(context.Background(), "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRemoteAuth_UpdatePasswordAndSignOut(t *testing.T) {
	var calls []string
	provider := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/auth/v1/user":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "new-password" {
				t.Errorf("unexpected body %v", body)
			}
			_, _ = w.Write([]byte(`{"id":"u-1"}`))
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		}
	})

	if err := provider.UpdatePassword(context.Background(), "tok", "new-password"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := provider.SignOut(context.Background(), "tok"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(calls) != 2 || calls[0] != "PUT /auth/v1/user" || calls[1] != "POST /auth/v1/logout" {
		t.Errorf("unexpected calls %v", calls)
	}
}

func TestRemoteAuth_SignOutExpiredSession(t *testing.T) {
	provider := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := provider.SignOut(context.Background(), "stale"); err != nil {
		t.Errorf("expected expired session to sign out cleanly, got %v", err)
	}
}

func TestRemoteAuth_ServerError(t *testing.T) {
	provider := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"msg":"database unavailable"}`))
	})
	_, err := provider.SignIn(context.Background(), "admin@campus.edu", "secret")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected a server error, got %v", err)
	}
}
