package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
)

// Forwarder sends one raw request to the job backend.
type Forwarder interface {
	Forward(ctx context.Context, method, path string, query url.Values, body []byte) (int, []byte, error)
}

// Handler proxies the job routes to the backend.
type Handler struct {
	Backend Forwarder
}

// NewHandler constructs a Handler.
func NewHandler(backend Forwarder) *Handler {
	return &Handler{Backend: backend}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/start-job", h.startJob)
	rg.GET("/job-status", h.jobStatus)
}

type startJobRequest struct {
	PDFURL *string `json:"pdf_url"`
	Text   *string `json:"text"`
}

func (h *Handler) startJob(c *gin.Context) {
	var req startJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "pdf_url and text are required", nil)
		return
	}
	if req.PDFURL == nil || strings.TrimSpace(*req.PDFURL) == "" || req.Text == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "pdf_url and text are required", nil)
		return
	}

	payload, err := json.Marshal(startRequest{PDFURL: *req.PDFURL, Text: *req.Text})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "proxy_error", "Internal proxy error", nil)
		return
	}

	status, body, err := h.Backend.Forward(c.Request.Context(), http.MethodPost, "/start-job", nil, payload)
	if err != nil || !json.Valid(body) {
		fields := map[string]any{"status": status}
		if err != nil {
			fields["error"] = err
		}
		telemetry.Error("jobs.start_proxy_failed", fields)
		respond.Error(c, http.StatusInternalServerError, "proxy_error", "Internal proxy error", nil)
		return
	}

	if status >= 200 && status <= 299 {
		var out startResponse
		if json.Unmarshal(body, &out) == nil && out.JobID != "" {
			c.Set("jobId", out.JobID)
			metrics.IncJobSubmitted()
			telemetry.Info("jobs.submitted", map[string]any{"job_id": out.JobID})
		}
	}
	respond.Raw(c, status, body)
}

func (h *Handler) jobStatus(c *gin.Context) {
	jobID := strings.TrimSpace(c.Query("job_id"))
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing job_id", nil)
		return
	}
	c.Set("jobId", jobID)
	metrics.IncJobPoll()

	status, body, err := h.Backend.Forward(c.Request.Context(), http.MethodGet, "/job-status", url.Values{"job_id": {jobID}}, nil)
	if err != nil {
		telemetry.Error("jobs.status_proxy_failed", map[string]any{"job_id": jobID, "error": err})
		respond.Error(c, http.StatusInternalServerError, "proxy_error", "Internal proxy error", nil)
		return
	}
	if status < 200 || status > 299 {
		respond.Error(c, status, "upstream_error", "job backend error: "+strings.TrimSpace(string(body)), nil)
		return
	}
	if !json.Valid(body) {
		respond.Error(c, http.StatusInternalServerError, "proxy_error", "Internal proxy error", nil)
		return
	}
	respond.Raw(c, http.StatusOK, body)
}
