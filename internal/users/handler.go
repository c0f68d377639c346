package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/identity"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
)

// multipart framing allowance on top of the image itself
const avatarBodyLimit = MaxAvatarBytes + 64<<10

type Handler struct {
	Svc           *Service
	SecureCookies bool
}

func NewHandler(svc *Service, secureCookies bool) *Handler {
	return &Handler{Svc: svc, SecureCookies: secureCookies}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.get)
	rg.PUT("/profile", h.update)
	rg.POST("/profile/avatar", h.avatar)
	rg.POST("/profile/password", h.password)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	profile, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		telemetry.Error("profile load failed", map[string]any{"user_id": userID, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load profile", nil)
		return
	}
	view := View{Name: profile.Name, Email: middleware.UserEmailFromContext(c)}
	if profile.ProfileURL != "" {
		pic := profile.ProfileURL
		view.ProfilePicture = &pic
	}
	respond.OK(c, view)
}

type updateRequest struct {
	Name string `json:"name"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	name, err := h.Svc.Rename(c.Request.Context(), middleware.UserIDFromContext(c), req.Name)
	if err != nil {
		writeServiceError(c, err, "failed to update profile")
		return
	}
	respond.OK(c, gin.H{"success": true, "name": name})
}

func (h *Handler) avatar(c *gin.Context) {
	if c.Request.ContentLength > avatarBodyLimit {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Image must be under 2MB", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, avatarBodyLimit)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Image must be under 2MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file provided", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file provided", nil)
		return
	}
	defer file.Close()

	url, err := h.Svc.SetAvatar(c.Request.Context(), middleware.UserIDFromContext(c), Avatar{
		FileName:     fileHeader.Filename,
		DeclaredType: fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Body:         file,
	})
	if err != nil {
		writeServiceError(c, err, "failed to store avatar")
		return
	}
	respond.OK(c, gin.H{"profilePicture": url})
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) password(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	email := middleware.UserEmailFromContext(c)
	if email == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		return
	}
	fresh, err := h.Svc.ChangePassword(c.Request.Context(), email, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(c, err, "failed to update password")
		return
	}
	identity.WriteCookies(c, fresh, h.SecureCookies)
	respond.OK(c, gin.H{"success": true})
}

func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", userMessage(err), nil)
	case errors.Is(err, ErrAvatarTooLarge):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Image must be under 2MB", nil)
	case errors.Is(err, ErrNotImage):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Only image files are allowed", nil)
	case errors.Is(err, ErrWrongPassword):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Current password is incorrect", nil)
	default:
		telemetry.Error(fallback, map[string]any{"user_id": middleware.UserIDFromContext(c), "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func userMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
}
