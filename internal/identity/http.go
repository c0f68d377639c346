package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// HTTPOptions configures HTTPProvider.
type HTTPOptions struct {
	BaseURL        string
	AnonKey        string
	ServiceRoleKey string
	RedirectURL    string
	Client         *http.Client
}

// HTTPProvider talks to a GoTrue-style identity service: OAuth2 grants on
// /token and REST endpoints for the user and admin APIs.
type HTTPProvider struct {
	baseURL        string
	serviceRoleKey string
	client         *http.Client
	oauth          *oauth2.Config
}

// APIError is a non-2xx answer from the provider REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider status %d: %s", e.StatusCode, e.Message)
}

// NewHTTPProvider builds a provider client. The anon key is attached to every call.
func NewHTTPProvider(opts HTTPOptions) (*HTTPProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base url is empty", ErrNotConfigured)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped := &http.Client{
		Timeout:   client.Timeout,
		Transport: apiKeyTransport{key: opts.AnonKey, next: next},
	}
	return &HTTPProvider{
		baseURL:        base,
		serviceRoleKey: strings.TrimSpace(opts.ServiceRoleKey),
		client:         wrapped,
		oauth: &oauth2.Config{
			RedirectURL: opts.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}, nil
}

type apiKeyTransport struct {
	key  string
	next http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key != "" && req.Header.Get("apikey") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("apikey", t.key)
	}
	return t.next.RoundTrip(req)
}

func (p *HTTPProvider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

// SignInWithPassword runs the resource-owner password grant.
func (p *HTTPProvider) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	tok, err := p.oauth.PasswordCredentialsToken(p.oauthContext(ctx), email, password)
	if err != nil {
		return Session{}, mapGrantError(err, ErrInvalidCredentials)
	}
	return p.sessionFromToken(ctx, tok)
}

// ExchangeCode completes the authorization-code grant with the PKCE verifier.
func (p *HTTPProvider) ExchangeCode(ctx context.Context, code, verifier string) (Session, error) {
	opts := []oauth2.AuthCodeOption{}
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := p.oauth.Exchange(p.oauthContext(ctx), code, opts...)
	if err != nil {
		return Session{}, mapGrantError(err, ErrInvalidToken)
	}
	return p.sessionFromToken(ctx, tok)
}

// Refresh trades a refresh token for a new token pair.
func (p *HTTPProvider) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, ErrNoSession
	}
	src := p.oauth.TokenSource(p.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Session{}, mapGrantError(err, ErrInvalidToken)
	}
	return p.sessionFromToken(ctx, tok)
}

// AuthorizeURL builds the third-party sign-in redirect with a S256 PKCE challenge.
func (p *HTTPProvider) AuthorizeURL(oauthProvider, state, verifier string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("provider", oauthProvider),
		oauth2.SetAuthURLParam("redirect_to", p.oauth.RedirectURL),
	)
}

// GetUser validates the access token remotely and returns its user.
func (p *HTTPProvider) GetUser(ctx context.Context, accessToken string) (User, error) {
	var user User
	if err := p.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return User{}, err
	}
	if user.ID == "" {
		return User{}, ErrInvalidToken
	}
	return user, nil
}

// UpdatePassword sets a new password for the token's user.
func (p *HTTPProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	return p.do(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": newPassword}, nil)
}

// SignOut revokes the user's refresh tokens.
func (p *HTTPProvider) SignOut(ctx context.Context, accessToken string) error {
	return p.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// DeleteUser removes the identity using the service-role credential.
func (p *HTTPProvider) DeleteUser(ctx context.Context, userID string) error {
	if p.serviceRoleKey == "" {
		return fmt.Errorf("%w: service role key missing", ErrNotConfigured)
	}
	err := p.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(userID), p.serviceRoleKey, nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	return err
}

func (p *HTTPProvider) sessionFromToken(ctx context.Context, tok *oauth2.Token) (Session, error) {
	sess := Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if raw, ok := tok.Extra("user").(map[string]interface{}); ok {
		sess.User.ID, _ = raw["id"].(string)
		sess.User.Email, _ = raw["email"].(string)
	}
	if sess.User.ID == "" {
		user, err := p.GetUser(ctx, tok.AccessToken)
		if err != nil {
			return Session{}, err
		}
		sess.User = user
	}
	return sess, nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if bearer == p.serviceRoleKey && bearer != "" {
		req.Header.Set("apikey", bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %v", ErrInvalidToken, apiErr)
		}
		return apiErr
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode identity response: %w", err)
		}
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, v := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.Error} {
			if v != "" {
				return v
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// mapGrantError turns a 4xx token-endpoint rejection into kind; transport
// and 5xx failures pass through wrapped.
func mapGrantError(err error, kind error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		code := retrieveErr.Response.StatusCode
		if code >= 400 && code < 500 {
			return fmt.Errorf("%w: %s", kind, errorMessage(retrieveErr.Body))
		}
	}
	return fmt.Errorf("identity token grant: %w", err)
}

var _ Provider = (*HTTPProvider)(nil)
