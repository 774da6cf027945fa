package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/luvhive/backend/internal/flagx"
	"github.com/luvhive/backend/internal/timex"
)

// JsonConfig is the intermediate DTO used for reading JSON configuration
// files. Duration fields accept both strings ("24h") and integer nanoseconds
// via timex.Duration. After unmarshalling, set fields are copied into the
// runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP             *string        `json:"endpoint_addr_http"`
	DatabaseDSN                  *string        `json:"database_dsn"`
	SecretKey                    *string        `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	BotToken                     *string        `json:"bot_token"`
	LoginMaxClaimAge             timex.Duration `json:"login_max_claim_age"`
	AccountEmailDomain           *string        `json:"account_email_domain"`
	WebAppURL                    *string        `json:"webapp_url"`
	LogLevel                     *string        `json:"log_level"`
	PremiumPlans                 []PremiumPlan  `json:"premium_plans"`
	DefaultPremiumDays           *int           `json:"default_premium_days"`
	S3RootUser                   *string        `json:"s3_root_user"`
	S3RootPassword               *string        `json:"s3_root_password"`
	S3Bucket                     *string        `json:"s3_bucket"`
	S3Region                     *string        `json:"s3_region"`
	S3BaseEndpoint               *string        `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config flags; if neither
// is set, no JSON file is loaded. Unreadable or invalid files panic, because
// a half-applied config is worse than a crash at startup.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIfPresent := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setIfPresent(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIfPresent(&config.DatabaseDSN, c.DatabaseDSN)
	setIfPresent(&config.SecretKey, c.SecretKey)
	setIfPresent(&config.BotToken, c.BotToken)
	setIfPresent(&config.AccountEmailDomain, c.AccountEmailDomain)
	setIfPresent(&config.WebAppURL, c.WebAppURL)
	setIfPresent(&config.LogLevel, c.LogLevel)
	setIfPresent(&config.S3RootUser, c.S3RootUser)
	setIfPresent(&config.S3RootPassword, c.S3RootPassword)
	setIfPresent(&config.S3Bucket, c.S3Bucket)
	setIfPresent(&config.S3Region, c.S3Region)
	setIfPresent(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.SessionTokenValidityDuration.Duration != 0 {
		config.SessionTokenValidityDuration = time.Duration(c.SessionTokenValidityDuration.Duration)
	}
	if c.LoginMaxClaimAge.Duration != 0 {
		config.LoginMaxClaimAge = time.Duration(c.LoginMaxClaimAge.Duration)
	}
	if len(c.PremiumPlans) > 0 {
		config.PremiumPlans = c.PremiumPlans
	}
	if c.DefaultPremiumDays != nil {
		config.DefaultPremiumDays = *c.DefaultPremiumDays
	}
}
