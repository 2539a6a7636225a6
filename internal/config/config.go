package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vladimiradmaev/chronic-care/internal/logger"
)

type Config struct {
	TelegramToken string
	HTTPAddr      string
	JWTSecret     string
	SessionTTL    time.Duration
	GeminiAPIKey  string
	OpenAIAPIKey  string
	DB            DBConfig
	Redis         RedisConfig
	Reminders     ReminderConfig
	Logger        LoggerConfig
}

type DBConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// RedisConfig enables the Redis prompt state store when Host is set
type RedisConfig struct {
	Host string
	Port string
}

// Enabled reports whether Redis is configured
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// ReminderConfig holds one cron schedule per time slot, empty disables the slot
type ReminderConfig struct {
	Day       string
	Afternoon string
	Night     string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	var problems []error

	ttl, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		problems = append(problems, fmt.Errorf("SESSION_TTL: %w", err))
	}

	dbEnabled, err := strconv.ParseBool(getEnvOrDefault("DB_ENABLED", "false"))
	if err != nil {
		problems = append(problems, fmt.Errorf("DB_ENABLED: %w", err))
	}

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		SessionTTL:    ttl,
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		DB: DBConfig{
			Enabled:  dbEnabled,
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "chronic_care"),
		},
		Redis: RedisConfig{
			Host: os.Getenv("REDIS_HOST"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
		},
		Reminders: ReminderConfig{
			Day:       getEnvOrDefault("REMINDER_DAY", "0 9 * * *"),
			Afternoon: getEnvOrDefault("REMINDER_AFTERNOON", "0 14 * * *"),
			Night:     getEnvOrDefault("REMINDER_NIGHT", "0 21 * * *"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return cfg, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []error

	if c.TelegramToken == "" && c.HTTPAddr == "" {
		problems = append(problems, errors.New("at least one of TELEGRAM_BOT_TOKEN or HTTP_ADDR is required"))
	}
	if c.HTTPAddr != "" && len(c.JWTSecret) < 16 {
		problems = append(problems, errors.New("JWT_SECRET must be at least 16 characters when HTTP_ADDR is set"))
	}
	if c.SessionTTL < 0 {
		problems = append(problems, errors.New("SESSION_TTL must not be negative"))
	}
	if c.DB.Enabled && (c.DB.Host == "" || c.DB.DBName == "") {
		problems = append(problems, errors.New("DB_HOST and DB_NAME are required when DB_ENABLED is true"))
	}
	if c.Logger.Format != "json" && c.Logger.Format != "text" {
		problems = append(problems, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logger.Format))
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"REMINDER_DAY":       c.Reminders.Day,
		"REMINDER_AFTERNOON": c.Reminders.Afternoon,
		"REMINDER_NIGHT":     c.Reminders.Night,
	} {
		if spec == "" || spec == "off" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(problems...)
}
