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
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/default.yaml"

type Config struct {
	HTTPAddr    string
	CORSOrigins []string

	OxiDBAddr string
	PoolSize  int

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	GelfAddr     string

	SendGridAPIKey string
	FromEmail      string

	ResumeMaxBytes       int64
	CloseExpiredSchedule string
}

// configFile mirrors configs/default.yaml.
type configFile struct {
	HTTP struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"http"`
	OxiDB struct {
		Addr     string `yaml:"addr"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"oxidb"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		TokenTTLHours int    `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
	Dependencies struct {
		RedisAddr    string   `yaml:"redis_addr"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
		GelfAddr     string   `yaml:"gelf_addr"`
	} `yaml:"dependencies"`
	Resumes struct {
		MaxBytes int64 `yaml:"max_bytes"`
	} `yaml:"resumes"`
	Scheduler struct {
		CloseExpired string `yaml:"close_expired"`
	} `yaml:"scheduler"`
}

// DefaultJWTSecret signs tokens when neither the config file nor JWT_SECRET
// provides a secret. It is public, so any deployment must override it.
const DefaultJWTSecret = "volunteer-hub-dev-secret-change-me"

// Load resolves configuration in priority order: defaults -> file -> .env
// -> environment. A missing file at DefaultPath is not an error; a missing
// file named by VH_CONFIG is.
func Load() (Config, error) {
	path := os.Getenv("VH_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	return load(path, explicit, ".env")
}

func load(path string, explicit bool, dotenv string) (Config, error) {
	cfg := Config{
		HTTPAddr:             ":8080",
		OxiDBAddr:            "127.0.0.1:4444",
		PoolSize:             3,
		JWTSecret:            DefaultJWTSecret,
		TokenTTL:             24 * time.Hour,
		KafkaTopic:           "volunteer.applications",
		ResumeMaxBytes:       5 << 20,
		CloseExpiredSchedule: "@hourly",
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		f.apply(&cfg)
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
	}

	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.CORSOrigins = envCSV("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.OxiDBAddr = envOrDefault("OXIDB_ADDR", cfg.OxiDBAddr)
	cfg.PoolSize = envInt("OXIDB_POOL_SIZE", cfg.PoolSize)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = time.Duration(envInt("TOKEN_TTL_HOURS", int(cfg.TokenTTL.Hours()))) * time.Hour
	cfg.RedisAddr = envOrDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.GelfAddr = envOrDefault("GELF_ADDR", cfg.GelfAddr)
	cfg.ResumeMaxBytes = int64(envInt("RESUME_MAX_BYTES", int(cfg.ResumeMaxBytes)))
	cfg.CloseExpiredSchedule = envOrDefault("CLOSE_EXPIRED_SCHEDULE", cfg.CloseExpiredSchedule)

	// secrets come from the environment only
	cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	cfg.FromEmail = os.Getenv("FROM_EMAIL")

	if cfg.PoolSize < 1 {
		return Config{}, fmt.Errorf("pool size must be positive, got %d", cfg.PoolSize)
	}
	return cfg, nil
}

// UsingDefaultJWTSecret reports whether tokens are signed with the built-in
// development secret.
func (c Config) UsingDefaultJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func (f configFile) apply(cfg *Config) {
	if f.HTTP.Addr != "" {
		cfg.HTTPAddr = f.HTTP.Addr
	}
	if len(f.HTTP.CORSOrigins) > 0 {
		cfg.CORSOrigins = f.HTTP.CORSOrigins
	}
	if f.OxiDB.Addr != "" {
		cfg.OxiDBAddr = f.OxiDB.Addr
	}
	if f.OxiDB.PoolSize > 0 {
		cfg.PoolSize = f.OxiDB.PoolSize
	}
	if f.Auth.JWTSecret != "" {
		cfg.JWTSecret = f.Auth.JWTSecret
	}
	if f.Auth.TokenTTLHours > 0 {
		cfg.TokenTTL = time.Duration(f.Auth.TokenTTLHours) * time.Hour
	}
	if f.Dependencies.RedisAddr != "" {
		cfg.RedisAddr = f.Dependencies.RedisAddr
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
	}
	if f.Dependencies.KafkaTopic != "" {
		cfg.KafkaTopic = f.Dependencies.KafkaTopic
	}
	if f.Dependencies.GelfAddr != "" {
		cfg.GelfAddr = f.Dependencies.GelfAddr
	}
	if f.Resumes.MaxBytes > 0 {
		cfg.ResumeMaxBytes = f.Resumes.MaxBytes
	}
	if f.Scheduler.CloseExpired != "" {
		cfg.CloseExpiredSchedule = f.Scheduler.CloseExpired
	}
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated values and drops empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
