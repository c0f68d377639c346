package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/identity"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/storage/object/local"
)

type countingStore struct {
	object.ObjectStore
	mu   sync.Mutex
	puts int
}

func (s *countingStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.ObjectStore.Put(ctx, key, contentType, r)
}

func (s *countingStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

type testEnv struct {
	router *gin.Engine
	store  *countingStore
	idp    *identity.MemoryProvider
	repo   *MemoryRepo
}

func newTestEnv(t *testing.T, userID, email string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	env := &testEnv{
		store: &countingStore{ObjectStore: local.New(t.TempDir(), "http://localhost:8080/files")},
		idp:   identity.NewMemoryProvider([]byte("test-secret"), nil),
		repo:  NewMemoryRepo(),
	}
	svc := NewService(env.repo, env.idp, env.store)
	svc.Now = now

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("userEmail", email)
		c.Next()
	})
	NewHandler(svc, false).RegisterRoutes(router.Group("/api"))
	env.router = router
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func jsonRequest(method, path string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func avatarRequest(t *testing.T, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngOfSize(n int) []byte {
	data := make([]byte, n)
	copy(data, []byte("\x89PNG\r\n\x1a\n"))
	return data
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", resp.Body.String(), err)
	}
	return out
}

func errorMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, resp)
	errObj, _ := body["error"].(map[string]any)
	msg, _ := errObj["message"].(string)
	return msg
}

func TestGetProfileCreatesRowLazily(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	resp := env.do(httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	if body["email"] != "ada@example.com" || body["name"] != "" {
		t.Fatalf("unexpected profile body: %v", body)
	}
	if body["profilePicture"] != nil {
		t.Fatalf("expected null profilePicture, got %v", body["profilePicture"])
	}
	if _, err := env.repo.Get(context.Background(), "user-1"); err != nil {
		t.Fatalf("expected profile row to exist: %v", err)
	}
}

func TestUpdateNameValidation(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	cases := []struct {
		name string
		want int
	}{
		{"", http.StatusBadRequest},
		{"   ", http.StatusBadRequest},
		{" A ", http.StatusBadRequest},
		{strings.Repeat("x", MaxNameLength+1), http.StatusBadRequest},
		{"  Ada Lovelace  ", http.StatusOK},
		{strings.Repeat("y", MaxNameLength), http.StatusOK},
	}
	for _, tc := range cases {
		resp := env.do(jsonRequest(http.MethodPut, "/api/profile", map[string]string{"name": tc.name}))
		if resp.Code != tc.want {
			t.Fatalf("name %q: expected %d, got %d: %s", tc.name, tc.want, resp.Code, resp.Body.String())
		}
	}
}

func TestUpdateNameTrimsAndPersists(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	resp := env.do(jsonRequest(http.MethodPut, "/api/profile", map[string]string{"name": "  Ada  "}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.do(httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	if got := decodeBody(t, resp)["name"]; got != "Ada" {
		t.Fatalf("expected trimmed name Ada, got %v", got)
	}
}

func TestAvatarTooLargeRejectedBeforeStorage(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	resp := env.do(avatarRequest(t, "big.png", "image/png", pngOfSize(3<<20)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if msg := errorMessage(t, resp); msg != "Image must be under 2MB" {
		t.Fatalf("unexpected message %q", msg)
	}
	if env.store.Puts() != 0 {
		t.Fatalf("expected no storage writes, got %d", env.store.Puts())
	}
}

func TestAvatarJustOverLimitRejected(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	resp := env.do(avatarRequest(t, "edge.png", "image/png", pngOfSize(MaxAvatarBytes+1)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if env.store.Puts() != 0 {
		t.Fatalf("expected no storage writes, got %d", env.store.Puts())
	}
}

func TestAvatarTypeChecks(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	resp := env.do(avatarRequest(t, "notes.txt", "text/plain", pngOfSize(1024)))
	if resp.Code != http.StatusBadRequest || errorMessage(t, resp) != "Only image files are allowed" {
		t.Fatalf("declared text: got %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(avatarRequest(t, "fake.png", "image/png", []byte("%PDF-1.4 definitely not an image")))
	if resp.Code != http.StatusBadRequest || errorMessage(t, resp) != "Only image files are allowed" {
		t.Fatalf("sniffed pdf: got %d %s", resp.Code, resp.Body.String())
	}
	if env.store.Puts() != 0 {
		t.Fatalf("expected no storage writes, got %d", env.store.Puts())
	}
}

func TestAvatarUploadOverwritesAndChangesURL(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	first := env.do(avatarRequest(t, "me.png", "image/png", pngOfSize(1<<20)))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	firstURL, _ := decodeBody(t, first)["profilePicture"].(string)
	if !strings.Contains(firstURL, "/avatars/user-1/avatar.png?v=") {
		t.Fatalf("unexpected avatar url %q", firstURL)
	}

	second := env.do(avatarRequest(t, "me.png", "image/png", pngOfSize(1<<20)))
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", second.Code)
	}
	secondURL, _ := decodeBody(t, second)["profilePicture"].(string)
	if secondURL == firstURL {
		t.Fatalf("expected avatar url to change after overwrite, still %q", secondURL)
	}

	profile := decodeBody(t, env.do(httptest.NewRequest(http.MethodGet, "/api/profile", nil)))
	if profile["profilePicture"] != secondURL {
		t.Fatalf("expected persisted url %q, got %v", secondURL, profile["profilePicture"])
	}

	rc, err := env.store.Open(context.Background(), AvatarKey("user-1", "png"))
	if err != nil {
		t.Fatalf("open stored avatar: %v", err)
	}
	defer rc.Close()
	stored, _ := io.ReadAll(rc)
	if len(stored) != 1<<20 {
		t.Fatalf("expected 1MiB stored avatar, got %d bytes", len(stored))
	}
}

func TestAvatarMissingFile(t *testing.T) {
	env := newTestEnv(t, "user-1", "ada@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	resp := env.do(req)
	if resp.Code != http.StatusBadRequest || errorMessage(t, resp) != "No file provided" {
		t.Fatalf("expected No file provided, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestChangePasswordWrongCurrentKeepsOldPassword(t *testing.T) {
	env := newTestEnv(t, "", "ada@example.com")
	if _, err := env.idp.CreateUser("ada@example.com", "old-password"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp := env.do(jsonRequest(http.MethodPost, "/api/profile/password", map[string]string{
		"currentPassword": "not-it",
		"newPassword":     "brand-new-password",
	}))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.Code, resp.Body.String())
	}
	if msg := errorMessage(t, resp); msg != "Current password is incorrect" {
		t.Fatalf("unexpected message %q", msg)
	}
	if _, err := env.idp.SignInWithPassword(context.Background(), "ada@example.com", "old-password"); err != nil {
		t.Fatalf("old password should still work: %v", err)
	}
}

func TestChangePasswordSucceeds(t *testing.T) {
	env := newTestEnv(t, "", "ada@example.com")
	if _, err := env.idp.CreateUser("ada@example.com", "old-password"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resp := env.do(jsonRequest(http.MethodPost, "/api/profile/password", map[string]string{
		"currentPassword": "old-password",
		"newPassword":     "brand-new-password",
	}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(strings.Join(resp.Header().Values("Set-Cookie"), ";"), identity.AccessCookie+"=") {
		t.Fatalf("expected rotated session cookies")
	}
	if _, err := env.idp.SignInWithPassword(context.Background(), "ada@example.com", "brand-new-password"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}
	if _, err := env.idp.SignInWithPassword(context.Background(), "ada@example.com", "old-password"); err == nil {
		t.Fatalf("old password should be rejected")
	}
}

func TestChangePasswordValidation(t *testing.T) {
	env := newTestEnv(t, "", "ada@example.com")

	resp := env.do(jsonRequest(http.MethodPost, "/api/profile/password", map[string]string{"currentPassword": "x"}))
	if resp.Code != http.StatusBadRequest || errorMessage(t, resp) != "Current password and new password are required" {
		t.Fatalf("missing field: got %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(jsonRequest(http.MethodPost, "/api/profile/password", map[string]string{
		"currentPassword": "old-password",
		"newPassword":     "short",
	}))
	if resp.Code != http.StatusBadRequest || errorMessage(t, resp) != "New password must be at least 8 characters" {
		t.Fatalf("short password: got %d %s", resp.Code, resp.Body.String())
	}
}
