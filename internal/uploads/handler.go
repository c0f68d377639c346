package uploads

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/documents"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/storage/object"
	"resume-tailor/internal/shared/telemetry"
	"resume-tailor/internal/shared/util"
)

const (
	presignExpires = 15 * time.Minute
	pdfContentType = "application/pdf"
)

// Handler issues presigned PUT URLs so the browser can upload a source PDF
// straight to the bucket. Only stores implementing object.Presigner support it.
type Handler struct {
	Presigner object.Presigner
	Store     object.ObjectStore
}

// NewHandler returns a Handler. When store cannot presign, presign requests
// answer 501.
func NewHandler(store object.ObjectStore) *Handler {
	h := &Handler{Store: store}
	if p, ok := store.(object.Presigner); ok {
		h.Presigner = p
	}
	return h
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	DocumentURL      string `json:"document_url"`
	Key              string `json:"key"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/presign", h.presign)
}

func (h *Handler) presign(c *gin.Context) {
	if h.Presigner == nil {
		respond.Error(c, http.StatusNotImplemented, "not_configured", "direct uploads not configured", nil)
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.FileName = strings.TrimSpace(req.FileName)
	req.ContentType = strings.TrimSpace(req.ContentType)

	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	if req.ContentType != pdfContentType {
		respond.Error(c, http.StatusBadRequest, "validation_error", "contentType is not allowed", nil)
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > documents.MaxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes exceeds limit", nil)
		return
	}

	sanitized, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	key := documents.Key(middleware.UserIDFromContext(c), sanitized)
	uploadURL, err := h.Presigner.PresignPut(c.Request.Context(), key, req.ContentType, presignExpires)
	if err != nil {
		telemetry.Error("uploads.presign.failed", map[string]any{
			"err":         err.Error(),
			"key":         key,
			"contentType": req.ContentType,
			"sizeBytes":   req.SizeBytes,
			"request_id":  c.GetString("requestId"),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}

	respond.JSON(c, http.StatusOK, presignResponse{
		UploadURL:        uploadURL,
		DocumentURL:      h.Store.PublicURL(key),
		Key:              key,
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	})
}
