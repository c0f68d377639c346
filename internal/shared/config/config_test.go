package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowOrigin)
	assert.Equal(t, "http://localhost:5000", cfg.JobBackend.URL)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, "http://localhost:8080/files", cfg.PublicStoreBaseURL)
	assert.Equal(t, "google", cfg.Identity.OAuthProvider)
	assert.True(t, cfg.IsDevLike())
	assert.False(t, cfg.SecureCookies())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*testing.T, Config)
	}{
		{
			name: "env aliases normalize",
			envVars: map[string]string{
				"ENV":     "prod",
				"IDP_URL": "https://idp.example.com/auth/v1",
			},
			expected: func(t *testing.T, cfg Config) {
				assert.Equal(t, "production", cfg.Env)
				assert.True(t, cfg.SecureCookies())
				assert.False(t, cfg.IsDevLike())
			},
		},
		{
			name: "store type and minio",
			envVars: map[string]string{
				"OBJECT_STORE":      "MinIO",
				"MINIO_ENDPOINT":    "minio:9000",
				"MINIO_BUCKET_NAME": "avatars",
				"MINIO_USE_SSL":     "true",
			},
			expected: func(t *testing.T, cfg Config) {
				assert.Equal(t, "minio", cfg.ObjectStoreType)
				assert.Equal(t, "minio:9000", cfg.Minio.Endpoint)
				assert.Equal(t, "avatars", cfg.Minio.Bucket)
				assert.True(t, cfg.Minio.UseSSL)
				assert.Empty(t, cfg.PublicStoreBaseURL)
			},
		},
		{
			name: "cors list",
			envVars: map[string]string{
				"CORS_ALLOW_ORIGINS": "http://a.test, ,http://b.test",
			},
			expected: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowOrigin)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)
			tt.expected(t, cfg)
		})
	}
}

func TestLoad_ProductionRequiresIdentityProvider(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV", "production")
	t.Setenv("IDP_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IDP_URL")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
