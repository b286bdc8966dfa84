package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig
	Telegram TelegramConfig
	Mailman  MailmanConfig
	Reddit   RedditConfig
	Feed     FeedConfig
	SMTP     SMTPConfig
	Digest   DigestConfig
	Server   ServerConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name    string
	Version string
}

// TelegramConfig holds bot transport configuration
type TelegramConfig struct {
	Token      string
	ChatID     int64
	WebhookURL string
}

// MailmanConfig holds the mailing-list archive configuration. ArchiveURL may
// contain $Y and $M placeholders replaced by the current year and month name
// when the archive is fetched.
type MailmanConfig struct {
	ArchiveURL string
}

// RedditConfig holds Reddit API configuration
type RedditConfig struct {
	ClientID             string
	ClientSecret         string
	UserAgent            string
	Subreddit            string
	PostLimit            int
	MaxRequestsPerMinute int
}

// FeedConfig holds the RSS feed configuration
type FeedConfig struct {
	URL string
}

// SMTPConfig holds the optional email delivery configuration. Email delivery
// is enabled when Host is set.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	To       string
	Password string
}

// DigestConfig holds the digest schedule
type DigestConfig struct {
	Time     string // HH:MM, local to Timezone
	Timezone string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port                 int
	MaxRequestsPerMinute int
}

// LoadConfig loads configuration from .env file
func LoadConfig(envPath string, log *logrus.Logger) (*Config, error) {
	if envPath == "" {
		envPath = ".env"
	}

	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "Listgram"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Telegram: TelegramConfig{
			Token:      getEnv("TELEGRAM_TOKEN", ""),
			ChatID:     getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
			WebhookURL: getEnv("TELEGRAM_WEBHOOK_URL", ""),
		},
		Mailman: MailmanConfig{
			ArchiveURL: getEnv("MAILMAN_ARCHIVE_URL", ""),
		},
		Reddit: RedditConfig{
			ClientID:             getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret:         getEnv("REDDIT_CLIENT_SECRET", ""),
			UserAgent:            getEnv("REDDIT_USER_AGENT", ""),
			Subreddit:            getEnv("REDDIT_SUBREDDIT", "golang"),
			PostLimit:            getEnvAsInt("REDDIT_POST_LIMIT", 25),
			MaxRequestsPerMinute: getEnvAsInt("REDDIT_MAX_REQUESTS_PER_MINUTE", 100),
		},
		Feed: FeedConfig{
			URL: getEnv("RSS_FEED_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			From:     getEnv("SMTP_FROM", ""),
			To:       getEnv("SMTP_TO", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Digest: DigestConfig{
			Time:     getEnv("DIGEST_TIME", "09:00"),
			Timezone: getEnv("DIGEST_TIMEZONE", "UTC"),
		},
		Server: ServerConfig{
			Port:                 getEnvAsInt("SERVER_PORT", 8080),
			MaxRequestsPerMinute: getEnvAsInt("SERVER_MAX_REQUESTS_PER_MINUTE", 60),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	log.WithField("file", envPath).Info("Config loaded successfully")
	return config, nil
}

// EmailEnabled reports whether the digest should also go out over SMTP.
func (c *Config) EmailEnabled() bool {
	return c.SMTP.Host != ""
}

// ExpandArchiveURL substitutes the $Y and $M placeholders of the archive url
// with the year and English month name of now, e.g. 2017 and April.
func ExpandArchiveURL(archiveURL string, now time.Time) string {
	expanded := strings.ReplaceAll(archiveURL, "$Y", strconv.Itoa(now.Year()))
	return strings.ReplaceAll(expanded, "$M", now.Month().String())
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 gets an environment variable as an int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN environment variable is required")
	}
	if config.Telegram.ChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID environment variable is required")
	}
	if config.Mailman.ArchiveURL == "" {
		return fmt.Errorf("MAILMAN_ARCHIVE_URL environment variable is required")
	}

	if config.Reddit.ClientID == "" {
		return fmt.Errorf("REDDIT_CLIENT_ID environment variable is required")
	}
	if config.Reddit.ClientSecret == "" {
		return fmt.Errorf("REDDIT_CLIENT_SECRET environment variable is required")
	}

	// User-Agent required per API documentation; it has strict requirements
	if config.Reddit.UserAgent == "" {
		return fmt.Errorf("REDDIT_USER_AGENT environment variable is required")
	}
	if config.Reddit.Subreddit == "" {
		return fmt.Errorf("REDDIT_SUBREDDIT environment variable is required")
	}

	if config.Feed.URL == "" {
		return fmt.Errorf("RSS_FEED_URL environment variable is required")
	}

	if !isValidDigestTime(config.Digest.Time) {
		return fmt.Errorf("DIGEST_TIME must be in HH:MM 24-hour format, got %q", config.Digest.Time)
	}
	if _, err := time.LoadLocation(config.Digest.Timezone); err != nil {
		return fmt.Errorf("DIGEST_TIMEZONE is not a valid timezone: %w", err)
	}

	// partial SMTP settings are a misconfiguration, not a disabled mailer
	if config.EmailEnabled() {
		if config.SMTP.From == "" || config.SMTP.To == "" {
			return fmt.Errorf("SMTP_FROM and SMTP_TO are required when SMTP_HOST is set")
		}
	}

	return nil
}

// isValidDigestTime checks the HH:MM 24-hour digest time format
func isValidDigestTime(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hour, err1 := strconv.Atoi(s[:2])
	minute, err2 := strconv.Atoi(s[3:])
	return err1 == nil && err2 == nil && hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}
