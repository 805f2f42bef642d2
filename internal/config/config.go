package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Mail     MailConfig
	Auth     AuthConfig
	App      AppConfig
}

type ServerConfig struct {
	Port            string `validate:"required"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	DSN           string `validate:"required"`
	MaxOpenConns  int    `validate:"gte=1"`
	MaxIdleConns  int    `validate:"gte=0"`
	MaxLifetime   time.Duration
	ConnectRetry  int `validate:"gte=1"`
	AutoMigrate   bool
	MigrationsDir string
}

type RedisConfig struct {
	Addr     string `validate:"required"`
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	ParticipationRegistered string
	ParticipationImported   string
	ParticipationCheckedIn  string
}

type MailConfig struct {
	ProcessorURL   string
	CronSecret     string
	TriggerTimeout time.Duration
}

type AuthConfig struct {
	OIDCIssuer      string
	SuperAdminEmail string
	SkipAuth        bool
}

type AppConfig struct {
	BaseURL          string `validate:"required,url"`
	StaffSessionTTL  time.Duration
	LoginMaxAttempts int `validate:"gte=1"`
	LoginWindow      time.Duration
	SecureCookies    bool
}

var validate = validator.New()

// Load reads the configuration from the environment. Call godotenv.Load first
// when a .env file should be honoured.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8085"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:           getEnv("POSTGRES_DSN", ""),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			ConnectRetry:  getEnvInt("DB_CONNECT_RETRIES", 5),
			AutoMigrate:   getEnvBool("DB_AUTO_MIGRATE", false),
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "./migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				ParticipationRegistered: getEnv("KAFKA_TOPIC_REGISTERED", "checkin.participation.registered"),
				ParticipationImported:   getEnv("KAFKA_TOPIC_IMPORTED", "checkin.participation.imported"),
				ParticipationCheckedIn:  getEnv("KAFKA_TOPIC_CHECKED_IN", "checkin.participation.checked_in"),
			},
		},
		Mail: MailConfig{
			ProcessorURL:   getEnv("MAIL_PROCESSOR_URL", ""),
			CronSecret:     getEnv("CRON_SECRET", ""),
			TriggerTimeout: getEnvDuration("MAIL_TRIGGER_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			OIDCIssuer:      getEnv("OIDC_ISSUER", ""),
			SuperAdminEmail: getEnv("SUPER_ADMIN_EMAIL", ""),
			SkipAuth:        getEnvBool("SKIP_AUTH", false),
		},
		App: AppConfig{
			BaseURL:          strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
			StaffSessionTTL:  getEnvDuration("STAFF_SESSION_TTL", 24*time.Hour),
			LoginMaxAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:      getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
			SecureCookies:    getEnvBool("SECURE_COOKIES", false),
		},
	}

	if !cfg.Auth.SkipAuth && cfg.Auth.OIDCIssuer == "" {
		return nil, fmt.Errorf("OIDC_ISSUER not set")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
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
