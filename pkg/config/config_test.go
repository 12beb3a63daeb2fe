package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("USE_MEMORY_DB", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.True(t, cfg.AllowsAnyOrigin())
	assert.True(t, cfg.CORSAllowCredentials)
	assert.Equal(t, 5*time.Minute, cfg.CORSMaxAge)
	assert.Equal(t, 25*time.Second, cfg.RequestTimeout)
	assert.EqualValues(t, 1<<20, cfg.MaxBodyBytes)
	assert.True(t, cfg.UseMemoryDB)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("PORT", "8080")
	t.Setenv("POSTGRES_DSN", "  postgres://localhost/taskboard  ")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("JWT_TTL", "1h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres://localhost/taskboard", cfg.PostgresDSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
}

func TestValidate(t *testing.T) {
	base := Config{Port: "3000", JWTSecret: "s3cret", JWTTTL: time.Hour, UseMemoryDB: true}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"no database", func(c *Config) { c.UseMemoryDB = false }, true},
		{"postgres only", func(c *Config) { c.UseMemoryDB = false; c.PostgresDSN = "postgres://x" }, false},
		{"default secret in production", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"default secret in development", func(c *Config) {
			c.Environment = "development"
			c.JWTSecret = defaultJWTSecret
		}, false},
		{"zero ttl", func(c *Config) { c.JWTTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.test")
	content := "# comment\nTB_FROM_FILE=\"file value\"\nTB_PRESET=file\nexport TB_EXPORTED=yes # trailing\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TB_PRESET", "env")
	for _, key := range []string{"TB_FROM_FILE", "TB_EXPORTED"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	require.NoError(t, loadEnvFile(path))

	assert.Equal(t, "file value", os.Getenv("TB_FROM_FILE"))
	assert.Equal(t, "yes", os.Getenv("TB_EXPORTED"))
	assert.Equal(t, "env", os.Getenv("TB_PRESET"))
}

func TestLoadEnvFileMissingIsIgnored(t *testing.T) {
	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), ".env.local")))
}

func TestAllowsAnyOrigin(t *testing.T) {
	assert.True(t, (&Config{}).AllowsAnyOrigin())
	assert.True(t, (&Config{AllowedOrigins: []string{"https://a.example.com", "*"}}).AllowsAnyOrigin())
	assert.False(t, (&Config{AllowedOrigins: []string{"https://a.example.com"}}).AllowsAnyOrigin())
}
