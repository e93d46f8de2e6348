package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kudupay/kuduq-backend/pkg/obs"
)

// Config is the resolved runtime configuration for the backend.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	HTTPPort int

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	RedisURL string

	RapydAPIToken    string
	RapydBaseURL     string
	RapydTimeout     time.Duration
	RapydLongTimeout time.Duration

	SMTPServer   string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPSecure   bool
	SMTPFrom     string
	FrontendURL  string

	JWTSecret string

	Obs obs.Config
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		HTTPPort int `yaml:"http_port"`
	} `yaml:"service"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`
	Dependencies struct {
		RedisURL string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Rapyd struct {
		APIToken           string `yaml:"api_token"`
		BaseURL            string `yaml:"base_url"`
		TimeoutSeconds     int    `yaml:"timeout_seconds"`
		LongTimeoutSeconds int    `yaml:"long_timeout_seconds"`
	} `yaml:"rapyd"`
	SMTP struct {
		Server   string `yaml:"server"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Secure   bool   `yaml:"secure"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
	FrontendURL string `yaml:"frontend_url"`
	Observability struct {
		OTLPEndpoint string `yaml:"otlp_endpoint"`
		LogLevel     string `yaml:"log_level"`
		Environment  string `yaml:"environment"`
	} `yaml:"observability"`
}

// Load resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error; everything can come from the environment.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		KafkaBrokers:     []string{"localhost:9092"},
		KafkaTopic:       "account-events",
		KafkaGroupID:     "kuduq-backend",
		RedisURL:         "localhost:6379",
		RapydBaseURL:     "https://seal-app-qp9cc.ondigitalocean.app/api/v1",
		RapydTimeout:     10 * time.Second,
		RapydLongTimeout: 60 * time.Second,
		SMTPPort:         587,
		FrontendURL:      "http://localhost:5173/for-students/login",
		Obs:              obs.DefaultConfig(),
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if len(f.Kafka.Brokers) > 0 {
			cfg.KafkaBrokers = f.Kafka.Brokers
		}
		if f.Kafka.Topic != "" {
			cfg.KafkaTopic = f.Kafka.Topic
		}
		if f.Kafka.GroupID != "" {
			cfg.KafkaGroupID = f.Kafka.GroupID
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Rapyd.APIToken != "" {
			cfg.RapydAPIToken = f.Rapyd.APIToken
		}
		if f.Rapyd.BaseURL != "" {
			cfg.RapydBaseURL = f.Rapyd.BaseURL
		}
		if f.Rapyd.TimeoutSeconds > 0 {
			cfg.RapydTimeout = time.Duration(f.Rapyd.TimeoutSeconds) * time.Second
		}
		if f.Rapyd.LongTimeoutSeconds > 0 {
			cfg.RapydLongTimeout = time.Duration(f.Rapyd.LongTimeoutSeconds) * time.Second
		}
		if f.SMTP.Server != "" {
			cfg.SMTPServer = f.SMTP.Server
		}
		if f.SMTP.Port > 0 {
			cfg.SMTPPort = f.SMTP.Port
		}
		if f.SMTP.Username != "" {
			cfg.SMTPUsername = f.SMTP.Username
		}
		if f.SMTP.Password != "" {
			cfg.SMTPPassword = f.SMTP.Password
		}
		if f.SMTP.Secure {
			cfg.SMTPSecure = true
		}
		if f.SMTP.From != "" {
			cfg.SMTPFrom = f.SMTP.From
		}
		if f.FrontendURL != "" {
			cfg.FrontendURL = f.FrontendURL
		}
		if f.Observability.OTLPEndpoint != "" {
			cfg.Obs.OTLPEndpoint = f.Observability.OTLPEndpoint
		}
		if f.Observability.LogLevel != "" {
			cfg.Obs.LogLevel = f.Observability.LogLevel
		}
		if f.Observability.Environment != "" {
			cfg.Obs.Environment = f.Observability.Environment
		}
	}

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaGroupID = envOrDefault("KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.RapydAPIToken = envOrDefault("RAPYD_API_TOKEN", cfg.RapydAPIToken)
	cfg.RapydBaseURL = envOrDefault("RAPYD_BASE_URL", cfg.RapydBaseURL)
	cfg.RapydTimeout = envSeconds("RAPYD_TIMEOUT_SECONDS", cfg.RapydTimeout)
	cfg.RapydLongTimeout = envSeconds("RAPYD_LONG_TIMEOUT_SECONDS", cfg.RapydLongTimeout)
	cfg.SMTPServer = envOrDefault("SMTP_SERVER", cfg.SMTPServer)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPSecure = envBool("SMTP_SECURE", cfg.SMTPSecure)
	cfg.SMTPFrom = envOrDefault("SMTP_FROM", cfg.SMTPFrom)
	cfg.FrontendURL = envOrDefault("FRONTEND_URL", cfg.FrontendURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.Obs.OTLPEndpoint = envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Obs.OTLPEndpoint)
	cfg.Obs.LogLevel = envOrDefault("LOG_LEVEL", cfg.Obs.LogLevel)
	cfg.Obs.Environment = envOrDefault("ENVIRONMENT", cfg.Obs.Environment)

	if cfg.RapydBaseURL == "" {
		return Config{}, fmt.Errorf("missing RAPYD_BASE_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
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

func envSeconds(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
