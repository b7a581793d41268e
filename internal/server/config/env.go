package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment.
//
// Variables already present in the environment win over the ones read from
// the dotenv files; with no files given, ".env" in the working directory is
// tried and silently skipped when missing.
//
// Token lifetimes (JWT_EXP, JWT_REFRESH_EXP) and REDIS_CACHE_TTL are whole
// seconds. APP_WEB_URL is joined with APP_EMAIL_VERIFY_REDIRECT_PATH and
// APP_PASSWORD_RESET_PATH to build the links used in outgoing mails.
//
// Malformed numeric values panic, matching the JSON and flag loaders.
func parseEnv(config *Config, dotenvFiles ...string) {
	_ = godotenv.Load(dotenvFiles...)

	envString(&config.EndpointAddrGRPC, "GRPC_ADDRESS")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.AccessTokenSecret, "JWT_SECRET")
	envSeconds(&config.AccessTokenValidityDuration, "JWT_EXP")
	envString(&config.RefreshTokenSecret, "JWT_REFRESH_SECRET")
	envSeconds(&config.RefreshTokenValidityDuration, "JWT_REFRESH_EXP")
	envBool(&config.IgnoreAccessTokenExpiry, "JWT_IGNORE_EXPIRATION")
	envString(&config.RedisURL, "REDIS_URL")
	envString(&config.RedisPrefix, "REDIS_PREFIX")
	envSeconds(&config.CacheTTL, "REDIS_CACHE_TTL")
	envString(&config.SMTPHost, "SMTP_HOST")
	envInt(&config.SMTPPort, "SMTP_PORT")
	envString(&config.SMTPUser, "SMTP_USER")
	envString(&config.SMTPPassword, "SMTP_PASS")
	envString(&config.SMTPFrom, "SMTP_FROM")
	envString(&config.LogLevel, "LOG_LEVEL")

	if web, ok := os.LookupEnv("APP_WEB_URL"); ok && web != "" {
		base := strings.TrimRight(web, "/")
		if p, ok := os.LookupEnv("APP_EMAIL_VERIFY_REDIRECT_PATH"); ok {
			config.EmailVerifyURL = base + "/" + strings.TrimLeft(p, "/")
		}
		if p, ok := os.LookupEnv("APP_PASSWORD_RESET_PATH"); ok {
			config.PasswordResetURL = base + "/" + strings.TrimLeft(p, "/")
		}
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envSeconds(dst *time.Duration, key string) {
	var n int
	envInt(&n, key)
	if n != 0 {
		*dst = time.Duration(n) * time.Second
	}
}

func envBool(dst *bool, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(err)
	}
	*dst = b
}
