package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/chirper/internal/flagx"
	"github.com/dmitrijs2005/chirper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "24h" and integer nanoseconds.
//
// Every field is optional: absent keys leave the current Config value alone.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	AccessTokenSecret            *string         `json:"access_token_secret"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenSecret           *string         `json:"refresh_token_secret"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	IgnoreAccessTokenExpiry      *bool           `json:"ignore_access_token_expiry"`
	VerifyTokenLength            *int            `json:"verify_token_length"`
	PasswordHashCost             *int            `json:"password_hash_cost"`
	RedisURL                     *string         `json:"redis_url"`
	RedisPrefix                  *string         `json:"redis_prefix"`
	CacheTTL                     *timex.Duration `json:"cache_ttl"`
	PasswordResetTokenTTL        *timex.Duration `json:"password_reset_token_ttl"`
	SMTPHost                     *string         `json:"smtp_host"`
	SMTPPort                     *int            `json:"smtp_port"`
	SMTPUser                     *string         `json:"smtp_user"`
	SMTPPassword                 *string         `json:"smtp_password"`
	SMTPFrom                     *string         `json:"smtp_from"`
	EmailVerifyURL               *string         `json:"email_verify_url"`
	PasswordResetURL             *string         `json:"password_reset_url"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path comes from the -c or -config command-line flags. If
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.applyTo(config)
}

func (c *JsonConfig) applyTo(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.RedisPrefix, c.RedisPrefix)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.EmailVerifyURL, c.EmailVerifyURL)
	setString(&config.PasswordResetURL, c.PasswordResetURL)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.CacheTTL != nil {
		config.CacheTTL = c.CacheTTL.Duration
	}
	if c.PasswordResetTokenTTL != nil {
		config.PasswordResetTokenTTL = c.PasswordResetTokenTTL.Duration
	}
	if c.IgnoreAccessTokenExpiry != nil {
		config.IgnoreAccessTokenExpiry = *c.IgnoreAccessTokenExpiry
	}
	if c.VerifyTokenLength != nil {
		config.VerifyTokenLength = *c.VerifyTokenLength
	}
	if c.PasswordHashCost != nil {
		config.PasswordHashCost = *c.PasswordHashCost
	}
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
