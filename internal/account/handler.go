package account

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/identity"
	"resume-tailor/internal/shared/server/middleware"
	"resume-tailor/internal/shared/server/respond"
	"resume-tailor/internal/shared/telemetry"
)

type Handler struct {
	Svc           *Service
	SecureCookies bool
}

func NewHandler(svc *Service, secureCookies bool) *Handler {
	return &Handler{Svc: svc, SecureCookies: secureCookies}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/profile", h.deleteAccount)
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	userID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		return
	}

	result, err := h.Svc.Delete(c.Request.Context(), userID)
	if err != nil {
		telemetry.Error("account delete failed", map[string]any{"user_id": userID, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete account", nil)
		return
	}
	identity.ClearCookies(c, h.SecureCookies)
	respond.OK(c, gin.H{"success": true, "deletedResumes": result.DeletedResumes})
}
