package jobs

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
)

const maxResponseBytes = 1 << 20

var (
	// ErrInvalidInput is returned for submissions missing pdf_url.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedResponse is returned when the backend answers with a body
	// that does not match the start-job contract.
	ErrMalformedResponse = errors.New("malformed job backend response")
)

// HTTPError is a non-2xx answer from the job backend.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("job backend error: %d %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client calls the external job backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client. A nil httpClient gets one with the given timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// Forward performs one request against the backend and returns the raw
// status code and body, whatever they are.
func (c *Client) Forward(ctx context.Context, method, path string, query url.Values, body []byte) (int, []byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("job backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read job backend response: %w", err)
	}
	return resp.StatusCode, data, nil
}

type startRequest struct {
	PDFURL string `json:"pdf_url"`
	Text   string `json:"text"`
}

type startResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Start submits a tailoring job and returns its id.
func (c *Client) Start(ctx context.Context, pdfURL, text string) (string, error) {
	if strings.TrimSpace(pdfURL) == "" {
		return "", fmt.Errorf("%w: pdf_url is required", ErrInvalidInput)
	}
	payload, err := json.Marshal(startRequest{PDFURL: pdfURL, Text: text})
	if err != nil {
		return "", err
	}
	status, body, err := c.Forward(ctx, http.MethodPost, "/start-job", nil, payload)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", &HTTPError{StatusCode: status, Body: string(body)}
	}
	if err := validate(startSchema, body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var out startResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out.JobID, nil
}

// Status fetches and parses the state of jobID.
func (c *Client) Status(ctx context.Context, jobID string) (Status, error) {
	if strings.TrimSpace(jobID) == "" {
		return Status{}, fmt.Errorf("%w: job id is required", ErrInvalidInput)
	}
	status, body, err := c.Forward(ctx, http.MethodGet, "/job-status", url.Values{"job_id": {jobID}}, nil)
	if err != nil {
		return Status{}, err
	}
	if status < 200 || status > 299 {
		return Status{}, &HTTPError{StatusCode: status, Body: string(body)}
	}
	return ParseStatus(body)
}
