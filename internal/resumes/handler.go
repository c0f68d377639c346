package resumes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc        *Service
	Downloader *Downloader
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, dl *Downloader) *Handler {
	return &Handler{Svc: svc, Downloader: dl}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.list)
	rg.POST("/resumes", h.create)
	rg.GET("/resumes/download", h.download)
	rg.DELETE("/resumes/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	records, err := h.Svc.List(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}
	respond.OK(c, gin.H{"resumes": records})
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields", nil)
		return
	}

	rec, err := h.Svc.Create(c.Request.Context(), userID, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save resume", nil)
		}
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"success": true, "resume": rec})
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete resume", nil)
		}
		return
	}
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) download(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing file URL", nil)
		return
	}

	file, err := h.Downloader.Fetch(c.Request.Context(), rawURL)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid file URL", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch file", nil)
		return
	}
	defer file.Body.Close()

	c.DataFromReader(http.StatusOK, file.Size, "application/octet-stream", file.Body, map[string]string{
		"Content-Disposition": attachmentHeader(c.Query("filename")),
	})
}
