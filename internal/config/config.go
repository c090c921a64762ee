package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// app config, loaded from an optional YAML file and then environment variables
type Config struct {
	Port                    string         `yaml:"port"`
	LogLevel                string         `yaml:"logLevel"`
	Postgres                PostgresConfig `yaml:"postgres"`
	RedisAddr               string         `yaml:"redisAddr"`
	JWTSecret               string         `yaml:"jwtSecret"`
	AllowedOrigins          []string       `yaml:"allowedOrigins"`
	JoinCodeAttempts        int            `yaml:"joinCodeAttempts"`
	SnapshotRefreshSchedule string         `yaml:"snapshotRefreshSchedule"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		p.Host, p.User, p.Password, p.DB, p.Port, p.SSLMode)
}

func defaults() *Config {
	return &Config{
		Port:     "8080",
		LogLevel: "info",
		Postgres: PostgresConfig{
			Host:     "localhost",
			User:     "postgres",
			Password: "postgres",
			DB:       "postgres",
			Port:     "5432",
			SSLMode:  "disable",
		},
		RedisAddr:               "localhost:6379",
		JWTSecret:               "your-secret-key",
		AllowedOrigins:          []string{"http://localhost:5173"},
		JoinCodeAttempts:        10,
		SnapshotRefreshSchedule: "@every 15s",
	}
}

// LoadConfig reads QUIZROOM_CONFIG_FILE (if set) and then applies environment overrides.
func LoadConfig() (*Config, error) {
	config := defaults()

	if path := os.Getenv("QUIZROOM_CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	config.Port = getEnvOrDefault("PORT", config.Port)
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)
	config.Postgres.Host = getEnvOrDefault("POSTGRES_HOST", config.Postgres.Host)
	config.Postgres.User = getEnvOrDefault("POSTGRES_USER", config.Postgres.User)
	config.Postgres.Password = getEnvOrDefault("POSTGRES_PASSWORD", config.Postgres.Password)
	config.Postgres.DB = getEnvOrDefault("POSTGRES_DB", config.Postgres.DB)
	config.Postgres.Port = getEnvOrDefault("POSTGRES_PORT", config.Postgres.Port)
	config.Postgres.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", config.Postgres.SSLMode)
	config.RedisAddr = getEnvOrDefault("REDIS_ADDR", config.RedisAddr)
	config.JWTSecret = getEnvOrDefault("JWT_SECRET", config.JWTSecret)
	config.JoinCodeAttempts = getEnvInt("JOIN_CODE_ATTEMPTS", config.JoinCodeAttempts)
	config.SnapshotRefreshSchedule = getEnvOrDefault("SNAPSHOT_REFRESH_SCHEDULE", config.SnapshotRefreshSchedule)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitList(origins)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func validateConfig(config *Config) error {
	if _, err := strconv.Atoi(config.Port); err != nil {
		return errors.New("invalid port: " + config.Port)
	}
	if config.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if config.JoinCodeAttempts < 1 {
		return errors.New("JOIN_CODE_ATTEMPTS must be at least 1")
	}
	if _, err := cron.ParseStandard(config.SnapshotRefreshSchedule); err != nil {
		return fmt.Errorf("invalid SNAPSHOT_REFRESH_SCHEDULE %q: %w", config.SnapshotRefreshSchedule, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
