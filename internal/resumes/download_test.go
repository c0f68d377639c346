package resumes

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHostPortFillsDefaultPorts(t *testing.T) {
	cases := map[string]string{
		"https://Files.Example.com/out": "files.example.com:443",
		"http://localhost:8080/files":   "localhost:8080",
		"http://storage/":               "storage:80",
		"ftp://storage/":                "",
		"":                              "",
	}
	for in, want := range cases {
		if got := hostPort(in); got != want {
			t.Fatalf("hostPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsPublicIP(t *testing.T) {
	blocked := []string{"127.0.0.1", "10.1.2.3", "172.16.0.9", "192.168.1.1", "169.254.169.254", "0.0.0.0", "::1", "fe80::1", "fd00::1"}
	for _, s := range blocked {
		if isPublicIP(net.ParseIP(s)) {
			t.Fatalf("%s must not count as public", s)
		}
	}
	for _, s := range []string{"93.184.216.34", "2606:4700::1111"} {
		if !isPublicIP(net.ParseIP(s)) {
			t.Fatalf("%s must count as public", s)
		}
	}
}

func TestFetchTrustedBaseOnly(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pdf"))
	}))
	defer upstream.Close()
	ctx := context.Background()

	file, err := NewDownloader(time.Second, upstream.URL+"/files").Fetch(ctx, upstream.URL+"/files/a.pdf")
	if err != nil {
		t.Fatalf("trusted base fetch: %v", err)
	}
	body, _ := io.ReadAll(file.Body)
	file.Body.Close()
	if string(body) != "pdf" {
		t.Fatalf("unexpected body %q", body)
	}

	_, err = NewDownloader(time.Second).Fetch(ctx, upstream.URL+"/files/a.pdf")
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, errBlockedAddress) {
		t.Fatalf("expected blocked address error, got %v", err)
	}
}
