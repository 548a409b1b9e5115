package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port    string
	BaseURL string // public base URL used for the Telegram webhook

	// Storage configuration
	DataDir      string // directory for the file-backed meeting store
	DatabasePath string // SQLite database path; when set it replaces the file store
	MongoURI     string // archive sink; empty disables archival

	// Telegram configuration
	TelegramBotToken string

	// Report configuration
	ReportTemplatePath string // optional template override file

	// Janitor configuration
	JanitorCron       string
	StaleMeetingHours int // open meetings older than this get flagged; 0 disables
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:    getEnv("PORT", "3001"),
		BaseURL: getEnv("BASE_URL", "http://localhost:3001"),

		DataDir:      getEnv("DATA_DIR", "data/meetings"),
		DatabasePath: getEnv("DATABASE_PATH", ""),
		MongoURI:     getEnv("MONGODB_URI", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		ReportTemplatePath: getEnv("REPORT_TEMPLATE_PATH", ""),

		JanitorCron:       getEnv("JANITOR_CRON", "*/15 * * * *"),
		StaleMeetingHours: getIntEnv("STALE_MEETING_HOURS", 48),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
