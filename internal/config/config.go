// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port        string `mapstructure:"PORT"`
	BaseURL     string `mapstructure:"BASE_URL"`
	AdminSecret string `mapstructure:"ADMIN_SECRET"`
	Env         string `mapstructure:"APP_ENV"`

	// Database. When DB_HOST is empty the service falls back to a local
	// SQLite file, which keeps single-box deployments working without a
	// Postgres instance.
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// Content generation
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `mapstructure:"ANTHROPIC_MODEL"`
	ThemesFile      string `mapstructure:"THEMES_FILE"`

	// Approval email
	ResendAPIKey  string `mapstructure:"RESEND_API_KEY"`
	FromEmail     string `mapstructure:"FROM_EMAIL"`
	ReviewerEmail string `mapstructure:"REVIEWER_EMAIL"`

	// Instagram Graph API
	InstagramAccessToken string `mapstructure:"INSTAGRAM_ACCESS_TOKEN"`
	InstagramAccountID   string `mapstructure:"INSTAGRAM_ACCOUNT_ID"`
	GraphAPIBase         string `mapstructure:"GRAPH_API_BASE"`
	MediaImageURL        string `mapstructure:"MEDIA_IMAGE_URL"`

	// Scheduler
	ScheduleHour   int    `mapstructure:"SCHEDULE_HOUR"`
	ScheduleMinute int    `mapstructure:"SCHEDULE_MINUTE"`
	Timezone       string `mapstructure:"TIMEZONE"`

	// Theme selection and publish polling
	ThemeExclusionDays  int `mapstructure:"THEME_EXCLUSION_DAYS"`
	PublishPollSeconds  int `mapstructure:"PUBLISH_POLL_SECONDS"`
	PublishPollAttempts int `mapstructure:"PUBLISH_POLL_ATTEMPTS"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file is optional; environment variables alone are enough.
	_ = viper.ReadInConfig()

	viper.SetDefault("PORT", "8000")
	viper.SetDefault("BASE_URL", "http://localhost:8000")
	viper.SetDefault("ADMIN_SECRET", "change-this-to-a-random-string")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "mindposter")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "data/posts.db")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929")
	viper.SetDefault("THEMES_FILE", "config/themes.yml")
	viper.SetDefault("FROM_EMAIL", "noreply@themindfulinitiative.com")
	viper.SetDefault("REVIEWER_EMAIL", "")
	viper.SetDefault("GRAPH_API_BASE", "https://graph.instagram.com/v24.0")
	viper.SetDefault("MEDIA_IMAGE_URL", "https://images.unsplash.com/photo-1506126613408-eca07ce68773?w=1080&q=80")
	viper.SetDefault("SCHEDULE_HOUR", 7)
	viper.SetDefault("SCHEDULE_MINUTE", 0)
	viper.SetDefault("TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("THEME_EXCLUSION_DAYS", 14)
	viper.SetDefault("PUBLISH_POLL_SECONDS", 3)
	viper.SetDefault("PUBLISH_POLL_ATTEMPTS", 10)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.ScheduleHour < 0 || c.ScheduleHour > 23 {
		return errors.New("SCHEDULE_HOUR must be between 0 and 23")
	}
	if c.ScheduleMinute < 0 || c.ScheduleMinute > 59 {
		return errors.New("SCHEDULE_MINUTE must be between 0 and 59")
	}
	if c.PublishPollSeconds <= 0 {
		return errors.New("PUBLISH_POLL_SECONDS must be positive")
	}
	if c.PublishPollAttempts <= 0 {
		return errors.New("PUBLISH_POLL_ATTEMPTS must be positive")
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	// Strict checks for production
	if isProduction {
		if c.AdminSecret == "change-this-to-a-random-string" {
			return errors.New("ADMIN_SECRET must be changed from the default value in production")
		}
		if len(c.AdminSecret) < 32 {
			return errors.New("ADMIN_SECRET must be at least 32 characters in production")
		}
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required in production")
		}
		if c.ResendAPIKey == "" || c.ReviewerEmail == "" {
			return errors.New("RESEND_API_KEY and REVIEWER_EMAIL are required in production")
		}
		if c.InstagramAccessToken == "" || c.InstagramAccountID == "" {
			log.Println("WARNING: Instagram credentials are not set. Approvals will fail at the publish step.")
		}
		if c.DBHost != "" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
	} else {
		if len(c.AdminSecret) < 32 {
			log.Println("WARNING: ADMIN_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
		}
	}

	return nil
}
