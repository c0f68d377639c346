package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientStart(t *testing.T) {
	var got startRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/start-job" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"job_id":"abc123","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	id, err := c.Start(context.Background(), "https://files/resume.pdf", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("expected abc123, got %q", id)
	}
	if got.PDFURL != "https://files/resume.pdf" || got.Text != "" {
		t.Fatalf("unexpected forwarded body %+v", got)
	}
}

func TestClientStartErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body startRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Text == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"pdf_url and text are required"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second, nil)

	if _, err := c.Start(context.Background(), "", "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	_, err := c.Start(context.Background(), "https://f/r.pdf", "bad")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected HTTPError 400, got %v", err)
	}

	if _, err := c.Start(context.Background(), "https://f/r.pdf", "ok"); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("job_id") {
		case "done":
			_, _ = w.Write([]byte(`{"status":"completed","payload":{"pdf_url":"p","tex_url":"t"}}`))
		case "missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"unknown"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"running"}`))
		}
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second, nil)

	st, err := c.Status(context.Background(), "done")
	if err != nil || st.Kind != KindCompleted {
		t.Fatalf("expected completed, got %+v %v", st, err)
	}
	st, err = c.Status(context.Background(), "j1")
	if err != nil || st.Kind != KindRunning {
		t.Fatalf("expected running, got %+v %v", st, err)
	}
	_, err = c.Status(context.Background(), "missing")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected HTTPError 404, got %v", err)
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil)
	if _, err := c.Status(context.Background(), "j1"); err == nil {
		t.Fatalf("expected transport error")
	}
}
