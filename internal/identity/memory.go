package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	memoryAccessTTL = time.Hour
	memoryCodeTTL   = 5 * time.Minute
)

type memoryAccount struct {
	user     User
	passHash []byte
}

type memoryCode struct {
	userID    string
	expiresAt time.Time
}

// MemoryProvider is an in-process identity provider for local development
// and tests. It signs access tokens with the same secret the resolver
// verifies with, and rotates refresh tokens on every use.
type MemoryProvider struct {
	mu       sync.Mutex
	secret   []byte
	now      func() time.Time
	byEmail  map[string]*memoryAccount
	byID     map[string]*memoryAccount
	refresh  map[string]string
	codes    map[string]memoryCode
	revoked  map[string]bool
	accessTT time.Duration
}

// NewMemoryProvider returns an empty provider signing with secret.
func NewMemoryProvider(secret []byte, now func() time.Time) *MemoryProvider {
	if now == nil {
		now = time.Now
	}
	return &MemoryProvider{
		secret:   secret,
		now:      now,
		byEmail:  make(map[string]*memoryAccount),
		byID:     make(map[string]*memoryAccount),
		refresh:  make(map[string]string),
		codes:    make(map[string]memoryCode),
		revoked:  make(map[string]bool),
		accessTT: memoryAccessTTL,
	}
}

// SetAccessTTL changes the lifetime of newly issued access tokens.
func (p *MemoryProvider) SetAccessTTL(ttl time.Duration) {
	p.mu.Lock()
	p.accessTT = ttl
	p.mu.Unlock()
}

// CreateUser registers an email/password account.
func (p *MemoryProvider) CreateUser(email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return User{}, fmt.Errorf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return User{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byEmail[email]; ok {
		return User{}, fmt.Errorf("user %s already exists", email)
	}
	acct := &memoryAccount{user: User{ID: uuid.NewString(), Email: email}, passHash: hash}
	p.byEmail[email] = acct
	p.byID[acct.user.ID] = acct
	return acct.user, nil
}

// IssueCode returns a one-time authorization code for userID.
func (p *MemoryProvider) IssueCode(userID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byID[userID]; !ok {
		return "", ErrUserNotFound
	}
	code := randomToken()
	p.codes[code] = memoryCode{userID: userID, expiresAt: p.now().Add(memoryCodeTTL)}
	return code, nil
}

func (p *MemoryProvider) SignInWithPassword(_ context.Context, email, password string) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passHash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return p.issueLocked(acct.user)
}

func (p *MemoryProvider) ExchangeCode(_ context.Context, code, _ string) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.codes[code]
	if !ok {
		return Session{}, ErrInvalidToken
	}
	delete(p.codes, code)
	if p.now().After(entry.expiresAt) {
		return Session{}, ErrInvalidToken
	}
	acct, ok := p.byID[entry.userID]
	if !ok {
		return Session{}, ErrUserNotFound
	}
	return p.issueLocked(acct.user)
}

func (p *MemoryProvider) Refresh(_ context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, ErrNoSession
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.refresh[refreshToken]
	if !ok {
		return Session{}, ErrInvalidToken
	}
	delete(p.refresh, refreshToken)
	acct, ok := p.byID[userID]
	if !ok {
		return Session{}, ErrInvalidToken
	}
	return p.issueLocked(acct.user)
}

func (p *MemoryProvider) GetUser(_ context.Context, accessToken string) (User, error) {
	claims, err := ParseAccessToken(accessToken, p.secret, p.now)
	if err != nil {
		return User{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.revoked[accessToken] {
		return User{}, ErrInvalidToken
	}
	acct, ok := p.byID[claims.Subject]
	if !ok {
		return User{}, ErrInvalidToken
	}
	return acct.user, nil
}

func (p *MemoryProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	user, err := p.GetUser(ctx, accessToken)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.byID[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	acct.passHash = hash
	return nil
}

func (p *MemoryProvider) SignOut(_ context.Context, accessToken string) error {
	claims, err := ParseAccessToken(accessToken, p.secret, p.now)
	if err != nil && err != ErrTokenExpired {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[accessToken] = true
	for tok, uid := range p.refresh {
		if uid == claims.Subject {
			delete(p.refresh, tok)
		}
	}
	return nil
}

func (p *MemoryProvider) DeleteUser(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	delete(p.byID, userID)
	delete(p.byEmail, acct.user.Email)
	for tok, uid := range p.refresh {
		if uid == userID {
			delete(p.refresh, tok)
		}
	}
	return nil
}

// AuthorizeURL is empty: the memory provider has no browser flow.
func (p *MemoryProvider) AuthorizeURL(string, string, string) string { return "" }

func (p *MemoryProvider) issueLocked(user User) (Session, error) {
	access, expiresAt, err := IssueAccessToken(p.secret, user, p.accessTT, p.now())
	if err != nil {
		return Session{}, err
	}
	refresh := randomToken()
	p.refresh[refresh] = user.ID
	return Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt, User: user}, nil
}

func randomToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

var _ Provider = (*MemoryProvider)(nil)
