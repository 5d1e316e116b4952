package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	PublicBaseURL  string
	LogLevel       string
	AllowedOrigins []string

	// Document store: memory, dynamodb or postgres.
	DocumentStore      string
	DatabaseURL        string
	DynamoTablePrefix  string
	DocumentQueryLimit int

	// Identity provider: local or cognito.
	IdentityProvider  string
	CognitoUserPoolID string
	CognitoClientID   string

	// Browser session cookie.
	SessionSecret       string
	SessionCookieName   string
	SessionTTL          time.Duration
	SessionIdleTimeout  time.Duration
	SessionCookieSecure bool

	// Auth endpoint throttling, per client IP.
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
	// New sessions per client IP.
	SessionCreateRPS   float64
	SessionCreateBurst int

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Notification feed: memory or redis.
	NotificationFeed    string
	NotificationTTL     time.Duration
	NotificationMaxKeep int
	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool

	// Welcome email: none, sendgrid or ses.
	EmailProvider         string
	EmailFromAddress      string
	EmailFromName         string
	SESConfigurationSet   string
	SendGridAPIKey        string
	PatientEventsQueueURL string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		DocumentStore:      strings.ToLower(strings.TrimSpace(getEnv("DOCUMENT_STORE", "memory"))),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DynamoTablePrefix:  getEnv("DYNAMODB_TABLE_PREFIX", "portal_"),
		DocumentQueryLimit: getEnvAsInt("DOCUMENT_QUERY_LIMIT", 200),

		IdentityProvider:  strings.ToLower(strings.TrimSpace(getEnv("IDENTITY_PROVIDER", "local"))),
		CognitoUserPoolID: getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientID:   getEnv("COGNITO_CLIENT_ID", ""),

		SessionSecret:       getEnv("SESSION_SECRET", ""),
		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "portal_session"),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		SessionIdleTimeout:  getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionCookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),

		AuthRateLimitRPS:   getEnvAsFloat("AUTH_RATE_LIMIT_RPS", 1),
		AuthRateLimitBurst: getEnvAsInt("AUTH_RATE_LIMIT_BURST", 5),
		SessionCreateRPS:   getEnvAsFloat("SESSION_CREATE_RPS", 0.2),
		SessionCreateBurst: getEnvAsInt("SESSION_CREATE_BURST", 10),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		NotificationFeed:    strings.ToLower(strings.TrimSpace(getEnv("NOTIFICATION_FEED", "memory"))),
		NotificationTTL:     getEnvAsDuration("NOTIFICATION_TTL", time.Hour),
		NotificationMaxKeep: getEnvAsInt("NOTIFICATION_MAX_KEEP", 20),
		RedisAddr:           getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),

		EmailProvider:         strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "none"))),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Prescription AI"),
		SESConfigurationSet:   getEnv("SES_CONFIGURATION_SET", ""),
		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		PatientEventsQueueURL: getEnv("PATIENT_EVENTS_QUEUE_URL", ""),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
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

// getEnvAsList splits a comma-separated variable, dropping blank entries.
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
