package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/shared/util"
)

const defaultDownloadName = "resume"

var errBlockedAddress = errors.New("address not allowed")

// Downloader fetches stored resume files for relay to the browser.
type Downloader struct {
	Client *http.Client
}

// NewDownloader builds a Downloader with the given request timeout. Hosts of
// trustedBases are dialed as-is; every other host must resolve to a public
// address, so the relay cannot reach loopback, private or link-local
// services such as cloud metadata endpoints.
func NewDownloader(timeout time.Duration, trustedBases ...string) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	trusted := make(map[string]bool, len(trustedBases))
	for _, base := range trustedBases {
		if hp := hostPort(base); hp != "" {
			trusted[hp] = true
		}
	}
	plain := &net.Dialer{Timeout: 10 * time.Second}
	guarded := &net.Dialer{Timeout: 10 * time.Second, Control: rejectInternal}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would dial on our behalf and skip the address check
	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if trusted[strings.ToLower(addr)] {
			return plain.DialContext(ctx, network, addr)
		}
		return guarded.DialContext(ctx, network, addr)
	}
	return &Downloader{Client: &http.Client{Timeout: timeout, Transport: transport}}
}

// hostPort returns the lowercase host:port of rawURL with the scheme's
// default port filled in, or "" when rawURL is not an http(s) URL.
func hostPort(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	switch {
	case port != "":
	case u.Scheme == "https":
		port = "443"
	case u.Scheme == "http":
		port = "80"
	default:
		return ""
	}
	return strings.ToLower(net.JoinHostPort(u.Hostname(), port))
}

// rejectInternal runs after name resolution, so a public name pointing at an
// internal address is refused too.
func rejectInternal(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// RemoteFile is an open upstream body. Size is -1 when unknown.
type RemoteFile struct {
	Body io.ReadCloser
	Size int64
}

// Fetch GETs rawURL. Only absolute http and https URLs are accepted.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (RemoteFile, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return RemoteFile{}, fmt.Errorf("%w: unsupported url", ErrInvalidInput)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return RemoteFile{}, err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, errBlockedAddress) {
			telemetry.Warn("resumes.download_blocked", map[string]any{"host": u.Host})
			return RemoteFile{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		telemetry.Warn("resumes.download_failed", map[string]any{"host": u.Host, "error": err})
		return RemoteFile{}, fmt.Errorf("fetch file: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		telemetry.Warn("resumes.download_failed", map[string]any{"host": u.Host, "status": resp.StatusCode})
		return RemoteFile{}, fmt.Errorf("fetch file: upstream status %d", resp.StatusCode)
	}
	return RemoteFile{Body: resp.Body, Size: resp.ContentLength}, nil
}

func attachmentHeader(name string) string {
	return `attachment; filename="` + util.AttachmentName(name, defaultDownloadName) + `"`
}
