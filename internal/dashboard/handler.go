// Package dashboard serves the tailoring views: submit a job, wait for it and
// read the result. The outcome travels between views through the handoff
// store keyed by the tailor_sid cookie.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resume-tailor/internal/handoff"
	"resume-tailor/internal/jobs"
	"resume-tailor/internal/poller"
	"resume-tailor/internal/shared/metrics"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
)

const (
	SessionCookie = "tailor_sid"

	dashboardPath = "/dashboard"
	loadingPath   = "/dashboard/loading"
	resultPath    = "/dashboard/result"

	msgNoResult     = "No result found. Please tailor your resume again."
	msgMissingFiles = "Resume files were not generated correctly."
)

// Starter submits tailoring jobs. *jobs.Client implements it.
type Starter interface {
	Start(ctx context.Context, pdfURL, text string) (string, error)
}

// Runner waits for the job recorded in a handoff session. *poller.Poller implements it.
type Runner interface {
	Run(ctx context.Context, sess *handoff.Session) (poller.Outcome, error)
}

type Handler struct {
	Jobs          Starter
	Poller        Runner
	Store         handoff.Store
	SecureCookies bool
	Now           func() time.Time
}

func NewHandler(starter Starter, runner Runner, store handoff.Store, secureCookies bool) *Handler {
	return &Handler{Jobs: starter, Poller: runner, Store: store, SecureCookies: secureCookies}
}

// RegisterRoutes attaches the dashboard views to the root group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(dashboardPath, h.overview)
	rg.POST(dashboardPath+"/tailor", h.tailor)
	rg.GET(loadingPath, h.loading)
	rg.GET(resultPath, h.result)
}

type resultFiles struct {
	PDFURL         string  `json:"pdf_url"`
	TexURL         string  `json:"tex_url"`
	OriginalPDFURL *string `json:"original_pdf_url"`
}

type overviewResponse struct {
	User       gin.H        `json:"user"`
	InProgress bool         `json:"inProgress"`
	LastResult *resultFiles `json:"lastResult"`
}

func (h *Handler) overview(c *gin.Context) {
	sess := h.session(c)
	ctx := c.Request.Context()

	inProgress, err := sess.InProgress(ctx)
	if err != nil {
		h.storeError(c, err)
		return
	}
	out, err := sess.Peek(ctx)
	if err != nil {
		h.storeError(c, err)
		return
	}
	resp := overviewResponse{
		User:       gin.H{"id": middleware.UserIDFromContext(c), "email": middleware.UserEmailFromContext(c)},
		InProgress: inProgress,
	}
	if files, ok := filesFrom(out); ok {
		resp.LastResult = &files
	}
	respond.OK(c, resp)
}

type tailorRequest struct {
	PDFURL string `json:"pdf_url" form:"pdf_url"`
	Text   string `json:"text" form:"text"`
}

func (h *Handler) tailor(c *gin.Context) {
	var req tailorRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.PDFURL = strings.TrimSpace(req.PDFURL)
	if req.PDFURL == "" || strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "pdf_url and text are required", nil)
		return
	}

	ctx := c.Request.Context()
	jobID, err := h.Jobs.Start(ctx, req.PDFURL, req.Text)
	if err != nil {
		var httpErr *jobs.HTTPError
		switch {
		case errors.Is(err, jobs.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "pdf_url and text are required", nil)
		case errors.As(err, &httpErr):
			respond.Error(c, http.StatusBadGateway, "upstream_error", "job backend error: "+httpErr.Body, nil)
		default:
			telemetry.Error("dashboard.tailor.start_failed", map[string]any{
				"err":        err.Error(),
				"request_id": c.GetString("requestId"),
			})
			respond.Error(c, http.StatusBadGateway, "upstream_error", "Failed to start job", nil)
		}
		return
	}
	metrics.IncJobSubmitted()
	c.Set("jobId", jobID)

	if err := h.session(c).BeginJob(ctx, jobID, req.PDFURL); err != nil {
		h.storeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, loadingPath)
}

// loading blocks for the whole poll loop. The loop is bound to the request
// context, so a client that goes away stops polling and nothing is written.
func (h *Handler) loading(c *gin.Context) {
	out, err := h.Poller.Run(c.Request.Context(), h.session(c))
	if out.JobID != "" {
		c.Set("jobId", out.JobID)
	}
	c.Set("jobOutcome", string(out.State))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			telemetry.Info("dashboard.loading.cancelled", map[string]any{
				"job_id":     out.JobID,
				"polls":      out.Polls,
				"request_id": c.GetString("requestId"),
			})
			c.Status(499)
			return
		}
		h.storeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, resultPath)
}

func (h *Handler) result(c *gin.Context) {
	out, err := h.session(c).ConsumeResult(c.Request.Context())
	if err != nil {
		h.storeError(c, err)
		return
	}
	if out.Error != nil {
		writeResultError(c, out.Error.Message)
		return
	}
	if out.Success == nil {
		writeResultError(c, msgNoResult)
		return
	}
	files, ok := filesFrom(out)
	if !ok {
		writeResultError(c, msgMissingFiles)
		return
	}
	respond.OK(c, files)
}

func writeResultError(c *gin.Context, message string) {
	respond.OK(c, gin.H{
		"error": gin.H{"message": message},
		"retry": dashboardPath,
	})
}

// filesFrom extracts the generated file URLs from a success envelope.
func filesFrom(out handoff.Outcome) (resultFiles, bool) {
	if out.Success == nil || len(out.Success.Payload) == 0 {
		return resultFiles{}, false
	}
	st, err := jobs.ParseStatus(out.Success.Payload)
	if err != nil || st.Result == nil {
		return resultFiles{}, false
	}
	files := resultFiles{PDFURL: st.Result.PDFURL, TexURL: st.Result.TexURL}
	if out.OriginalURL != "" {
		original := out.OriginalURL
		files.OriginalPDFURL = &original
	}
	return files, true
}

// session returns the handoff view for this browser, issuing the cookie on
// first use.
func (h *Handler) session(c *gin.Context) *handoff.Session {
	sid, err := c.Cookie(SessionCookie)
	if err != nil || !validSessionID(sid) {
		sid = uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		// no Max-Age: the browser drops it when the session ends, the store's
		// idle TTL expires the server side
		c.SetCookie(SessionCookie, sid, 0, "/", "", h.SecureCookies, true)
	}
	sess := handoff.For(h.Store, sid)
	if h.Now != nil {
		sess.Now = h.Now
	}
	return sess
}

func validSessionID(sid string) bool {
	_, err := uuid.Parse(sid)
	return err == nil
}

func (h *Handler) storeError(c *gin.Context, err error) {
	telemetry.Error("dashboard.handoff.failed", map[string]any{
		"err":        err.Error(),
		"request_id": c.GetString("requestId"),
	})
	respond.Error(c, http.StatusInternalServerError, "internal_error", "session storage unavailable", nil)
}
