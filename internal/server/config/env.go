package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays configuration from environment variables. Variables are
// read after the JSON file and before command-line flags, so flags still win.
func parseEnv(config *Config) {

	setIfPresent := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setIfPresent(&config.EndpointAddrHTTP, "ADDRESS")
	setIfPresent(&config.DatabaseDSN, "DATABASE_DSN")
	setIfPresent(&config.SecretKey, "SECRET_KEY")
	setIfPresent(&config.BotToken, "BOT_TOKEN")
	setIfPresent(&config.AccountEmailDomain, "ACCOUNT_EMAIL_DOMAIN")
	setIfPresent(&config.WebAppURL, "WEBAPP_URL")
	setIfPresent(&config.LogLevel, "LOG_LEVEL")
	setIfPresent(&config.S3RootUser, "MINIO_ROOT_USER")
	setIfPresent(&config.S3RootPassword, "MINIO_ROOT_PASSWORD")
	setIfPresent(&config.S3Bucket, "S3_BUCKET")
	setIfPresent(&config.S3Region, "S3_REGION")
	setIfPresent(&config.S3BaseEndpoint, "S3_ENDPOINT")

	if v, ok := os.LookupEnv("SESSION_TOKEN_VALIDITY"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.SessionTokenValidityDuration = d
		}
	}
	if v, ok := os.LookupEnv("LOGIN_MAX_CLAIM_AGE"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.LoginMaxClaimAge = d
		}
	}
	if v, ok := os.LookupEnv("DEFAULT_PREMIUM_DAYS"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.DefaultPremiumDays = n
		}
	}
}
