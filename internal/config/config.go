package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Email provider identifiers accepted by EMAIL_PROVIDER.
const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderStub     = "stub"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Athena sandbox API
	AthenaClientID     string
	AthenaClientSecret string
	AthenaTokenURL     string
	AthenaBaseURL      string
	AthenaPracticeID   string
	AthenaScope        string

	// Sandbox-only values. A real deployment overrides them through the
	// environment.
	AthenaDepartmentID   string
	DemoProviderPassword string

	RemoteTimeout        time.Duration
	NotifyTimeout        time.Duration
	TokenRefreshSkew     time.Duration
	LoginCaseInsensitive bool

	// Email
	EmailProvider    string
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
	OrdersInboxEmail string
	ClinicTimezone   string

	// AWS (SES transport)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Optional shared token cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding values already present in the environment. Missing
// files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5001"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AthenaClientID:     getEnv("ATHENA_CLIENT_ID", ""),
		AthenaClientSecret: getEnv("ATHENA_CLIENT_SECRET", ""),
		AthenaTokenURL:     getEnv("ATHENA_TOKEN_URL", ""),
		AthenaBaseURL:      getEnv("ATHENA_BASE_URL", getEnv("ATHENA_PROVIDERS_URL", "")),
		AthenaPracticeID:   getEnv("ATHENA_PRACTICE_ID", ""),
		AthenaScope:        getEnv("ATHENA_SCOPE", "athena/service/Athenanet.MDP.*"),

		AthenaDepartmentID:   getEnv("ATHENA_DEPARTMENT_ID", "1"),
		DemoProviderPassword: getEnv("DEMO_PROVIDER_PASSWORD", "pass123"),

		RemoteTimeout:        getEnvAsDuration("REMOTE_TIMEOUT", 30*time.Second),
		NotifyTimeout:        getEnvAsDuration("NOTIFY_TIMEOUT", 30*time.Second),
		TokenRefreshSkew:     getEnvAsDuration("TOKEN_REFRESH_SKEW", time.Minute),
		LoginCaseInsensitive: getEnvAsBool("LOGIN_CASE_INSENSITIVE", false),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", EmailProviderStub))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Pediatric Associates Of Frisco"),
		OrdersInboxEmail: getEnv("ORDERS_INBOX_EMAIL", ""),
		ClinicTimezone:   getEnv("CLINIC_TIMEZONE", "America/Chicago"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// Validate reports every missing mandatory value at once so startup can fail
// fast with a complete message.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("ATHENA_CLIENT_ID", c.AthenaClientID)
	require("ATHENA_CLIENT_SECRET", c.AthenaClientSecret)
	require("ATHENA_TOKEN_URL", c.AthenaTokenURL)
	require("ATHENA_BASE_URL", c.AthenaBaseURL)
	require("ATHENA_PRACTICE_ID", c.AthenaPracticeID)
	require("ATHENA_DEPARTMENT_ID", c.AthenaDepartmentID)

	switch c.EmailProvider {
	case EmailProviderSendGrid:
		require("SENDGRID_API_KEY", c.SendGridAPIKey)
		require("EMAIL_FROM", c.EmailFromAddress)
	case EmailProviderSES:
		require("EMAIL_FROM", c.EmailFromAddress)
		require("AWS_REGION", c.AWSRegion)
	case EmailProviderStub:
	default:
		return fmt.Errorf("config: unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.RemoteTimeout <= 0 || c.NotifyTimeout <= 0 {
		return errors.New("config: REMOTE_TIMEOUT and NOTIFY_TIMEOUT must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
