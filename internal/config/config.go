package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
	BackendMemory        = "memory"
)

// Config holds application configuration
type Config struct {
	Port           string
	DBConn         string
	StoreBackend   string
	ESAddresses    []string
	ESIndex        string
	LogLevel       string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string

	// Monthly digest, disabled when SMTPHost is empty
	DigestSchedule string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SenderEmail    string
}

// NewConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "5000"),
		DBConn:         getEnv("DB_CONN", "host=localhost port=5432 user=tracker password=tracker dbname=tracker sslmode=disable"),
		StoreBackend:   getEnv("STORE_BACKEND", BackendPostgres),
		ESAddresses:    getEnvList("ES_ADDRESSES", "http://localhost:9200"),
		ESIndex:        getEnv("ES_INDEX", "transactions"),
		LogLevel:       getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "http://localhost:5500,http://127.0.0.1:5500"),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "transactions"),
		DigestSchedule: getEnv("DIGEST_SCHEDULE", "0 8 1 * *"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SenderEmail:    getEnv("SENDER_EMAIL", "no-reply@localhost"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid PORT %q", c.Port))
	}
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DBConn == "" {
			problems = append(problems, "DB_CONN is required for the postgres backend")
		}
	case BackendElasticsearch:
		if len(c.ESAddresses) == 0 {
			problems = append(problems, "ES_ADDRESSES is required for the elasticsearch backend")
		}
		if c.ESIndex == "" {
			problems = append(problems, "ES_INDEX is required for the elasticsearch backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("invalid STORE_BACKEND %q: must be one of postgres, elasticsearch, memory", c.StoreBackend))
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.AMQPURL != "" {
		u, err := url.Parse(c.AMQPURL)
		if err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL %q", c.AMQPURL))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP_EXCHANGE is required when AMQP_URL is set")
		}
	}
	if c.SMTPHost != "" && c.SenderEmail == "" {
		problems = append(problems, "SENDER_EMAIL is required when SMTP_HOST is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DigestEnabled reports whether the monthly digest job should run
func (c *Config) DigestEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvList(key, defaultVal string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultVal), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultVal
	}
	return d
}
