package health

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/storage/db"
)

const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"

	defaultTimeout = 2 * time.Second
)

// Check is the result of probing one dependency.
type Check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Report aggregates dependency checks.
type Report struct {
	OK     bool             `json:"ok"`
	Checks map[string]Check `json:"checks"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB            *sql.DB
	JobBackendURL string
	Client        *http.Client
	Timeout       time.Duration
}

// NewService constructs a new health service. A nil database means the
// in-memory repositories are in use and the check is skipped.
func NewService(database *sql.DB, jobBackendURL string) *Service {
	return &Service{
		DB:            database,
		JobBackendURL: strings.TrimRight(jobBackendURL, "/"),
		Client:        &http.Client{},
		Timeout:       defaultTimeout,
	}
}

// Status probes the database and the job backend.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true, Checks: map[string]Check{
		"database":   s.checkDB(ctx),
		"jobBackend": s.checkJobBackend(ctx),
	}}
	for _, c := range report.Checks {
		if c.Status == StatusError {
			report.OK = false
		}
	}
	return report
}

func (s *Service) checkDB(ctx context.Context) Check {
	if s.DB == nil {
		return Check{Status: StatusSkipped}
	}
	if err := db.Ping(ctx, s.DB, s.timeout()); err != nil {
		return Check{Status: StatusError, Error: err.Error()}
	}
	return Check{Status: StatusOK}
}

// checkJobBackend treats any HTTP response as reachable; the backend has no
// dedicated health route.
func (s *Service) checkJobBackend(ctx context.Context) Check {
	if s.JobBackendURL == "" {
		return Check{Status: StatusSkipped}
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.JobBackendURL+"/", nil)
	if err != nil {
		return Check{Status: StatusError, Error: err.Error()}
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Status: StatusError, Error: err.Error()}
	}
	resp.Body.Close()
	return Check{Status: StatusOK}
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultTimeout
}

// Handler serves the report; 503 when any check failed.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := s.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	}
}
