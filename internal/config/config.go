package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT verification key for caller claims
	JWTSecret string

	// Server
	Port           string
	CORSOrigins    string
	RequestTimeout time.Duration

	// Escalation
	EscalationDays     int
	EscalationSchedule string
	Timezone           string

	// Complaints
	DisplayIDPrefix       string
	DepartmentsConfigPath string

	// Optional integrations
	RedisURL  string
	SentryDSN string
	AppEnv    string

	LogRetentionDays int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "complaints_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", "10s"), 10*time.Second),

		EscalationDays:     parseInt(getEnv("ESCALATION_DAYS", "7"), 7),
		EscalationSchedule: getEnv("ESCALATION_SCHEDULE", "0 0 * * *"),
		Timezone:           getEnv("TIMEZONE", "Local"),

		DisplayIDPrefix:       getEnv("DISPLAY_ID_PREFIX", "NFSU"),
		DepartmentsConfigPath: getEnv("DEPARTMENTS_CONFIG_PATH", ""),

		RedisURL:  getEnv("REDIS_URL", ""),
		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// EscalationWindow is the age after which an unresolved complaint is escalated.
func (c *Config) EscalationWindow() time.Duration {
	return time.Duration(c.EscalationDays) * 24 * time.Hour
}

// Location resolves Timezone, falling back to the process local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using local", "timezone", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
