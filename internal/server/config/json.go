package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Eyad010/postfeed/internal/flagx"
	"github.com/Eyad010/postfeed/internal/timex"
)

// JSONConfig is the on-disk shape of the optional config file. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted. Absent
// fields leave the current value untouched.
type JSONConfig struct {
	HTTPAddr        string          `json:"http_addr"`
	DatabaseDSN     string          `json:"database_dsn"`
	SecretKey       string          `json:"secret_key"`
	JWTExpiresIn    *timex.Duration `json:"jwt_expires_in"`
	CookieSecure    *bool           `json:"cookie_secure"`
	ResetCodeTTL    *timex.Duration `json:"reset_code_ttl"`
	S3RootUser      string          `json:"s3_root_user"`
	S3RootPassword  string          `json:"s3_root_password"`
	S3Bucket        string          `json:"s3_bucket"`
	S3Region        string          `json:"s3_region"`
	S3BaseEndpoint  string          `json:"s3_base_endpoint"`
	SMTPHost        string          `json:"smtp_host"`
	SMTPPort        int             `json:"smtp_port"`
	SMTPUser        string          `json:"smtp_user"`
	SMTPPassword    string          `json:"smtp_password"`
	MailFrom        string          `json:"mail_from"`
	RedisAddr       string          `json:"redis_addr"`
	RateLimit       int             `json:"rate_limit"`
	RateLimitWindow *timex.Duration `json:"rate_limit_window"`
	TrustProxy      *bool           `json:"trust_proxy"`
	CORSOrigins     []string        `json:"cors_origins"`
	LogLevel        string          `json:"log_level"`
}

// parseJSON overlays values from the file named by -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JSONConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.JWTExpiresIn != nil {
		config.JWTExpiresIn = c.JWTExpiresIn.Duration
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.ResetCodeTTL != nil {
		config.ResetCodeTTL = c.ResetCodeTTL.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.RedisAddr, c.RedisAddr)
	if c.RateLimit != 0 {
		config.RateLimit = c.RateLimit
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.TrustProxy != nil {
		config.TrustProxy = *c.TrustProxy
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
