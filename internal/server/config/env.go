package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Eyad010/postfeed/internal/flagx"
	"github.com/Eyad010/postfeed/internal/timex"
	"github.com/joho/godotenv"
)

// parseEnv loads the dotenv file (without overriding variables already set in
// the process) and overlays recognised environment variables.
func parseEnv(config *Config, args []string) error {
	if err := godotenv.Load(flagx.EnvFile(args)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	lookupString("PORT", func(v string) { config.HTTPAddr = ":" + strings.TrimPrefix(v, ":") })
	lookupString("HTTP_ADDR", func(v string) { config.HTTPAddr = v })
	lookupString("DATABASE_URL", func(v string) { config.DatabaseDSN = v })
	lookupString("JWT_SECRET", func(v string) { config.SecretKey = v })
	lookupString("S3_ROOT_USER", func(v string) { config.S3RootUser = v })
	lookupString("S3_ROOT_PASSWORD", func(v string) { config.S3RootPassword = v })
	lookupString("S3_BUCKET", func(v string) { config.S3Bucket = v })
	lookupString("S3_REGION", func(v string) { config.S3Region = v })
	lookupString("S3_BASE_ENDPOINT", func(v string) { config.S3BaseEndpoint = v })
	lookupString("SMTP_HOST", func(v string) { config.SMTPHost = v })
	lookupString("SMTP_USER", func(v string) { config.SMTPUser = v })
	lookupString("SMTP_PASSWORD", func(v string) { config.SMTPPassword = v })
	lookupString("MAIL_FROM", func(v string) { config.MailFrom = v })
	lookupString("REDIS_ADDR", func(v string) { config.RedisAddr = v })
	lookupString("LOG_LEVEL", func(v string) { config.LogLevel = v })
	lookupString("CORS_ORIGINS", func(v string) { config.CORSOrigins = splitList(v) })

	var errs []error
	errs = append(errs,
		lookupDuration("JWT_EXPIRES_IN", &config.JWTExpiresIn),
		lookupDuration("RESET_CODE_TTL", &config.ResetCodeTTL),
		lookupDuration("RATE_LIMIT_WINDOW", &config.RateLimitWindow),
		lookupInt("SMTP_PORT", &config.SMTPPort),
		lookupInt("RATE_LIMIT", &config.RateLimit),
		lookupBool("JWT_COOKIE_SECURE", &config.CookieSecure),
		lookupBool("TRUST_PROXY", &config.TrustProxy),
	)
	return errors.Join(errs...)
}

func lookupString(key string, set func(string)) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		set(v)
	}
}

func lookupDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func lookupInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func lookupBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimRight(strings.TrimSpace(p), "/"); s != "" {
			out = append(out, s)
		}
	}
	return out
}
