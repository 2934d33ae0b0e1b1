// Package config loads process configuration from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	LogLevel    slog.Level
	PublicURL   string
	CORSOrigins []string

	Database Database
	JWT      JWT
	Redis    Redis
	Kafka    Kafka
	SMTP     SMTP
	Media    Media

	RateLimitPerMinute int
	TraceExporter      string
}

type Database struct {
	// Driver is "postgres", "mysql" or "memory".
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	LogLevel string
}

type JWT struct {
	Secret string
	TTL    time.Duration
	// VerifyTTL bounds email verification links.
	VerifyTTL time.Duration
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type Media struct {
	// Backend is "disk" or "gcs".
	Backend   string
	Dir       string
	GCSBucket string
	MaxBytes  int64
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		PublicURL:   strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "*")),
		Database: Database{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "subreddit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWT{
			Secret: os.Getenv("JWT_SECRET"),
		},
		Redis: Redis{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Kafka: Kafka{
			Brokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "subreddit.events"),
		},
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "no-reply@localhost"),
		},
		Media: Media{
			Backend:   getEnv("MEDIA_BACKEND", "disk"),
			Dir:       getEnv("MEDIA_DIR", "./uploads"),
			GCSBucket: os.Getenv("MEDIA_GCS_BUCKET"),
		},
		TraceExporter: getEnv("TRACE_EXPORTER", "none"),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}
	if cfg.JWT.TTL, err = getDuration("JWT_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.JWT.VerifyTTL, err = getDuration("JWT_VERIFY_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SMTP.Port, err = getInt("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return Config{}, err
	}
	maxMB, err := getInt("MEDIA_MAX_MB", 8)
	if err != nil {
		return Config{}, err
	}
	cfg.Media.MaxBytes = int64(maxMB) << 20

	return cfg, cfg.Validate()
}

// Validate checks combinations that Load cannot default.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Media.Backend {
	case "disk":
	case "gcs":
		if c.Media.GCSBucket == "" {
			return fmt.Errorf("MEDIA_GCS_BUCKET is required for the gcs media backend")
		}
	default:
		return fmt.Errorf("unsupported MEDIA_BACKEND %q", c.Media.Backend)
	}
	return nil
}

// DSN builds the driver connection string unless DATABASE_URL was given.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseLevel(v string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
