package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseEnv(t *testing.T) {
	t.Run("reads process environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "env-access")
		t.Setenv("JWT_EXP", "3600")
		t.Setenv("JWT_REFRESH_SECRET", "env-refresh")
		t.Setenv("JWT_REFRESH_EXP", "86400")
		t.Setenv("JWT_IGNORE_EXPIRATION", "false")
		t.Setenv("REDIS_URL", "redis://redis:6379")
		t.Setenv("REDIS_PREFIX", "chirper:")
		t.Setenv("REDIS_CACHE_TTL", "120")
		t.Setenv("SMTP_HOST", "smtp.example.com")
		t.Setenv("SMTP_PORT", "2525")
		t.Setenv("SMTP_USER", "u")
		t.Setenv("SMTP_PASS", "p")
		t.Setenv("SMTP_FROM", "noreply@example.com")
		t.Setenv("APP_WEB_URL", "https://app.example.com/")
		t.Setenv("APP_EMAIL_VERIFY_REDIRECT_PATH", "/auth/verify")
		t.Setenv("APP_PASSWORD_RESET_PATH", "auth/reset")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg, filepath.Join(t.TempDir(), "missing.env"))

		assert.Equal(t, "env-access", cfg.AccessTokenSecret)
		assert.Equal(t, time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, "env-refresh", cfg.RefreshTokenSecret)
		assert.Equal(t, 24*time.Hour, cfg.RefreshTokenValidityDuration)
		assert.False(t, cfg.IgnoreAccessTokenExpiry)
		assert.Equal(t, "redis://redis:6379", cfg.RedisURL)
		assert.Equal(t, "chirper:", cfg.RedisPrefix)
		assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
		assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
		assert.Equal(t, 2525, cfg.SMTPPort)
		assert.Equal(t, "u", cfg.SMTPUser)
		assert.Equal(t, "p", cfg.SMTPPassword)
		assert.Equal(t, "noreply@example.com", cfg.SMTPFrom)
		assert.Equal(t, "https://app.example.com/auth/verify", cfg.EmailVerifyURL)
		assert.Equal(t, "https://app.example.com/auth/reset", cfg.PasswordResetURL)
	})

	t.Run("loads dotenv file without overriding process env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_DSN", "from-process")
		t.Cleanup(func() { _ = os.Unsetenv("CHIRPER_TEST_UNUSED") })

		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("DATABASE_DSN=from-file\nCHIRPER_TEST_UNUSED=1\n"), 0o600))

		cfg := &Config{}
		parseEnv(cfg, path)

		assert.Equal(t, "from-process", cfg.DatabaseDSN)
		assert.Equal(t, "1", os.Getenv("CHIRPER_TEST_UNUSED"))
	})

	t.Run("empty values are ignored", func(t *testing.T) {
		clearEnv(t)

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg, filepath.Join(t.TempDir(), "missing.env"))

		var want Config
		want.LoadDefaults()
		assert.Equal(t, want, *cfg)
	})

	t.Run("malformed number panics", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SMTP_PORT", "smtp")

		require.Panics(t, func() { parseEnv(&Config{}, filepath.Join(t.TempDir(), "missing.env")) })
	})
}
