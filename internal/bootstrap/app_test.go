package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-tailor/internal/shared/config"
)

func TestBuildDevFallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Env:           "dev",
		LocalStoreDir: t.TempDir(),
		PublicBaseURL: "http://localhost:8080",
		Identity: config.Identity{
			DevUserEmail: "dev@example.com",
			DevUserPass:  "dev-password",
		},
	}
	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if app.DB != nil {
		t.Fatalf("expected in-memory repositories without DATABASE_URL")
	}
	if app.Config.ObjectStoreType != "local" {
		t.Fatalf("expected local store default, got %q", app.Config.ObjectStoreType)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(`{"email":"dev@example.com","password":"dev-password"}`))
	req.Header.Set("Content-Type", "application/json")
	app.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dev sign-in: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBuildProductionRequiresServices(t *testing.T) {
	if _, err := Build(config.Config{Env: "production"}); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestBuildRejectsIncompleteS3(t *testing.T) {
	_, err := Build(config.Config{Env: "dev", ObjectStoreType: "s3"})
	if err == nil || !strings.Contains(err.Error(), "S3_BUCKET") {
		t.Fatalf("expected s3 config error, got %v", err)
	}
}
