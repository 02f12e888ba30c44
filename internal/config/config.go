package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CaptchaTTL      time.Duration
	OTPTTL          time.Duration
	OTPLength       int
	CleanupInterval time.Duration

	// OTP issuance rate limiting. The recent-issuance count is always
	// queried; the cap is only enforced when Enabled is true.
	OTPRateLimitEnabled bool
	OTPRateLimitMax     int
	OTPRateLimitWindow  time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion      string
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts string
	Captchas string
	OTPs     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts: getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Captchas: getEnv("DYNAMO_TABLE_CAPTCHAS", "captchas"),
			OTPs:     getEnv("DYNAMO_TABLE_OTPS", "otps"),
		},

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_SECONDS", 3600)) * time.Second,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_SECONDS", 604800)) * time.Second,

		CaptchaTTL:      time.Duration(getEnvInt("CAPTCHA_TTL_MINUTES", 10)) * time.Minute,
		OTPTTL:          time.Duration(getEnvInt("OTP_TTL_MINUTES", 5)) * time.Minute,
		OTPLength:       getEnvInt("OTP_LENGTH", 6),
		CleanupInterval: time.Duration(getEnvInt("CLEANUP_INTERVAL_SECONDS", 3600)) * time.Second,

		OTPRateLimitEnabled: getEnvBool("OTP_RATE_LIMIT_ENABLED", false),
		OTPRateLimitMax:     getEnvInt("OTP_RATE_LIMIT_MAX", 3),
		OTPRateLimitWindow:  time.Duration(getEnvInt("OTP_RATE_LIMIT_WINDOW_MINUTES", 15)) * time.Minute,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:      getEnv("SNS_REGION", "ap-south-1"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
