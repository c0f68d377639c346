package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/telemetry"
)

type fakeBackend struct {
	status int
	body   string
	err    error
	calls  int
	path   string
	query  url.Values
	sent   []byte
}

func (f *fakeBackend) Forward(_ context.Context, method, path string, query url.Values, body []byte) (int, []byte, error) {
	f.calls++
	f.path = method + " " + path
	f.query = query
	f.sent = body
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, []byte(f.body), nil
}

func newTestRouter(t *testing.T, backend Forwarder) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(io.Discard)
	t.Cleanup(restore)
	r := gin.New()
	NewHandler(backend).RegisterRoutes(r.Group("/api"))
	return r
}

func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestStartJobRelaysBackendResponse(t *testing.T) {
	backend := &fakeBackend{status: http.StatusAccepted, body: `{"job_id":"abc","status":"queued"}`}
	r := newTestRouter(t, backend)

	resp := doJSON(r, http.MethodPost, "/api/start-job", `{"pdf_url":"https://f/r.pdf","text":"Senior Go engineer"}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
	if resp.Body.String() != backend.body {
		t.Fatalf("expected verbatim body, got %s", resp.Body.String())
	}
	if backend.path != "POST /start-job" {
		t.Fatalf("unexpected forward %s", backend.path)
	}
	var sent map[string]string
	if err := json.Unmarshal(backend.sent, &sent); err != nil {
		t.Fatalf("decode forwarded body: %v", err)
	}
	if sent["pdf_url"] != "https://f/r.pdf" || sent["text"] != "Senior Go engineer" {
		t.Fatalf("unexpected forwarded body %v", sent)
	}
}

func TestStartJobAcceptsEmptyText(t *testing.T) {
	backend := &fakeBackend{status: http.StatusAccepted, body: `{"job_id":"abc"}`}
	r := newTestRouter(t, backend)

	resp := doJSON(r, http.MethodPost, "/api/start-job", `{"pdf_url":"https://f/r.pdf","text":""}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}
}

func TestStartJobValidation(t *testing.T) {
	backend := &fakeBackend{status: http.StatusAccepted, body: `{}`}
	r := newTestRouter(t, backend)

	for _, body := range []string{
		`{"text":"x"}`,
		`{"pdf_url":"","text":"x"}`,
		`{"pdf_url":"https://f/r.pdf"}`,
		`not json`,
	} {
		resp := doJSON(r, http.MethodPost, "/api/start-job", body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "pdf_url and text are required") {
			t.Fatalf("%s: unexpected body %s", body, resp.Body.String())
		}
	}
	if backend.calls != 0 {
		t.Fatalf("expected no backend calls, got %d", backend.calls)
	}
}

func TestStartJobProxyErrors(t *testing.T) {
	for name, backend := range map[string]*fakeBackend{
		"unreachable": {err: errors.New("connection refused")},
		"non-json":    {status: http.StatusBadGateway, body: "<html>bad gateway</html>"},
	} {
		t.Run(name, func(t *testing.T) {
			r := newTestRouter(t, backend)
			resp := doJSON(r, http.MethodPost, "/api/start-job", `{"pdf_url":"https://f/r.pdf","text":"x"}`)
			if resp.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", resp.Code)
			}
			if !strings.Contains(resp.Body.String(), "Internal proxy error") || !strings.Contains(resp.Body.String(), "proxy_error") {
				t.Fatalf("unexpected body %s", resp.Body.String())
			}
		})
	}
}

func TestJobStatusForwardsQuery(t *testing.T) {
	backend := &fakeBackend{status: http.StatusOK, body: `{"status":"running"}`}
	r := newTestRouter(t, backend)

	resp := doJSON(r, http.MethodGet, "/api/job-status?job_id=abc", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != `{"status":"running"}` {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if backend.query.Get("job_id") != "abc" {
		t.Fatalf("expected job_id forwarded, got %v", backend.query)
	}
}

func TestJobStatusErrors(t *testing.T) {
	r := newTestRouter(t, &fakeBackend{status: http.StatusOK, body: `{}`})
	resp := doJSON(r, http.MethodGet, "/api/job-status", "")
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "Missing job_id") {
		t.Fatalf("expected 400 Missing job_id, got %d %s", resp.Code, resp.Body.String())
	}

	r = newTestRouter(t, &fakeBackend{status: http.StatusNotFound, body: `{"status":"unknown"}`})
	resp = doJSON(r, http.MethodGet, "/api/job-status?job_id=zzz", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected relayed 404, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "job backend error") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	r = newTestRouter(t, &fakeBackend{err: errors.New("dial tcp: refused")})
	resp = doJSON(r, http.MethodGet, "/api/job-status?job_id=zzz", "")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}
