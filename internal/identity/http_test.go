package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

type fakeGoTrue struct {
	t           *testing.T
	lastForm    url.Values
	lastAPIKey  string
	deletedUser string
}

func (f *fakeGoTrue) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			f.t.Fatalf("parse form: %v", err)
		}
		f.lastForm = r.PostForm
		f.lastAPIKey = r.Header.Get("apikey")
		switch r.PostForm.Get("grant_type") {
		case "password":
			if r.PostForm.Get("password") != "pw" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
		case "authorization_code":
			if r.PostForm.Get("code") != "good-code" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
		case "refresh_token":
			if r.PostForm.Get("refresh_token") != "r1" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "a2",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "r2",
			"user":          map[string]any{"id": "u1", "email": "u1@example.com"},
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a2" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		if r.Method == http.MethodPut {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] == "" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","email":"u1@example.com"}`))
	})
	mux.HandleFunc("/admin/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer service" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/admin/users/")
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"msg":"User not found"}`))
			return
		}
		f.deletedUser = id
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newFakeProvider(t *testing.T, serviceKey string) (*HTTPProvider, *fakeGoTrue) {
	t.Helper()
	fake := &fakeGoTrue{t: t}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	p, err := NewHTTPProvider(HTTPOptions{
		BaseURL:        srv.URL + "/",
		AnonKey:        "anon",
		ServiceRoleKey: serviceKey,
		RedirectURL:    "http://app.local/auth/callback",
		Client:         srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewHTTPProvider: %v", err)
	}
	return p, fake
}

func TestHTTPProviderPasswordGrant(t *testing.T) {
	p, fake := newFakeProvider(t, "")

	sess, err := p.SignInWithPassword(context.Background(), "u1@example.com", "pw")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.AccessToken != "a2" || sess.RefreshToken != "r2" || sess.User.ID != "u1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if fake.lastAPIKey != "anon" {
		t.Fatalf("expected apikey header, got %q", fake.lastAPIKey)
	}
	if fake.lastForm.Get("username") != "u1@example.com" {
		t.Fatalf("unexpected username %q", fake.lastForm.Get("username"))
	}

	_, err = p.SignInWithPassword(context.Background(), "u1@example.com", "nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHTTPProviderExchangeCodeSendsVerifier(t *testing.T) {
	p, fake := newFakeProvider(t, "")

	if _, err := p.ExchangeCode(context.Background(), "good-code", "verifier-123"); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if fake.lastForm.Get("code_verifier") != "verifier-123" {
		t.Fatalf("expected code_verifier, got %q", fake.lastForm.Get("code_verifier"))
	}

	_, err := p.ExchangeCode(context.Background(), "bad", "v")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHTTPProviderRefresh(t *testing.T) {
	p, _ := newFakeProvider(t, "")

	sess, err := p.Refresh(context.Background(), "r1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if sess.RefreshToken != "r2" {
		t.Fatalf("expected rotated refresh token, got %q", sess.RefreshToken)
	}
	if _, err := p.Refresh(context.Background(), "stale"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := p.Refresh(context.Background(), ""); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestHTTPProviderUserEndpoints(t *testing.T) {
	p, _ := newFakeProvider(t, "")

	user, err := p.GetUser(context.Background(), "a2")
	if err != nil || user.Email != "u1@example.com" {
		t.Fatalf("get user: %+v %v", user, err)
	}
	if _, err := p.GetUser(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := p.UpdatePassword(context.Background(), "a2", "new-password"); err != nil {
		t.Fatalf("update password: %v", err)
	}
}

func TestHTTPProviderDeleteUser(t *testing.T) {
	p, _ := newFakeProvider(t, "")
	if err := p.DeleteUser(context.Background(), "u1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	p, fake := newFakeProvider(t, "service")
	if err := p.DeleteUser(context.Background(), "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if fake.deletedUser != "u1" {
		t.Fatalf("expected u1 deleted, got %q", fake.deletedUser)
	}
	if err := p.DeleteUser(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestHTTPProviderAuthorizeURL(t *testing.T) {
	p, _ := newFakeProvider(t, "")

	raw := p.AuthorizeURL("google", "state-1", "verifier-1")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if u.Path != "/authorize" || q.Get("provider") != "google" || q.Get("state") != "state-1" {
		t.Fatalf("unexpected authorize url %s", raw)
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Fatalf("missing PKCE challenge in %s", raw)
	}
}

func TestNewHTTPProviderRequiresURL(t *testing.T) {
	if _, err := NewHTTPProvider(HTTPOptions{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
