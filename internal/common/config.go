package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Render  RenderConfig
	Extract ExtractConfig
	Slack   SlackConfig
	History HistoryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// AIConfig holds AI-service configuration
type AIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// RenderConfig holds page-renderer configuration
type RenderConfig struct {
	Timeout      time.Duration
	SettleWait   time.Duration
	DismissWait  time.Duration
	MinPDFBytes  int
	ChromeBinary string
}

// ExtractConfig holds document-extractor configuration
type ExtractConfig struct {
	Pdftoppm string
	DPI      int
	TempDir  string
}

// SlackConfig holds chat-platform configuration
type SlackConfig struct {
	BotToken        string
	AppToken        string
	AllowedChannels []string
	CacheTTL        time.Duration
}

// HistoryConfig holds the validation-history store configuration
type HistoryConfig struct {
	DBPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8000"),
		},
		AI: AIConfig{
			APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:   getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			Model:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens: getEnvAsInt("ANTHROPIC_MAX_TOKENS", 4096),
			Timeout:   getEnvAsDuration("ANTHROPIC_TIMEOUT", 120*time.Second),
		},
		Render: RenderConfig{
			Timeout:      getEnvAsDuration("RENDER_TIMEOUT", 60*time.Second),
			SettleWait:   getEnvAsDuration("RENDER_SETTLE_WAIT", 5*time.Second),
			DismissWait:  getEnvAsDuration("RENDER_DISMISS_WAIT", 2*time.Second),
			MinPDFBytes:  getEnvAsInt("RENDER_MIN_PDF_BYTES", 100),
			ChromeBinary: getEnv("CHROME_BINARY", ""),
		},
		Extract: ExtractConfig{
			Pdftoppm: getEnv("PDFTOPPM_BIN", "pdftoppm"),
			DPI:      getEnvAsInt("RASTER_DPI", 144),
			TempDir:  getEnv("EXTRACT_TEMP_DIR", ""),
		},
		Slack: SlackConfig{
			BotToken:        getEnv("SLACK_BOT_TOKEN", ""),
			AppToken:        getEnv("SLACK_APP_TOKEN", ""),
			AllowedChannels: getEnvAsList("SLACK_ALLOWED_CHANNELS"),
			CacheTTL:        getEnvAsDuration("SLACK_CACHE_TTL", 10*time.Minute),
		},
		History: HistoryConfig{
			DBPath: getEnv("HISTORY_DB_PATH", "./invoice-checker.db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated env var; empty or unset yields nil.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	// Slack is optional; both tokens must come together when configured.
	if (c.Slack.BotToken == "") != (c.Slack.AppToken == "") {
		return NewAppError("CONFIG_ERROR", "SLACK_BOT_TOKEN and SLACK_APP_TOKEN must both be set", ErrInvalidInput)
	}
	return nil
}
