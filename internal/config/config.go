package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultSystemPrompt = "You are an AI assistant analyzing news and blog posts from the tech industry. " +
	"Focus on AI/ML developments, new product launches, research breakthroughs, " +
	"and industry trends. Provide clear, concise summaries with actionable insights."

const (
	defaultTimezone  = "UTC"
	defaultUserAgent = "AI-News-Aggregator/1.0 (Educational Project)"

	configPathEnv      = "NEWSDIGEST_CONFIG"
	databaseDSNEnv     = "DATABASE_URL"
	databaseDriverEnv  = "DATABASE_DRIVER"
	openAIAPIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv     = "OPENAI_MODEL"
	openAIEndpointEnv  = "OPENAI_ENDPOINT"
	youtubeAPIKeyEnv   = "YOUTUBE_API_KEY"
	smtpHostEnv        = "SMTP_HOST"
	smtpPortEnv        = "SMTP_PORT"
	smtpUsernameEnv    = "SMTP_USERNAME"
	smtpPasswordEnv    = "SMTP_PASSWORD"
	smtpFromEnv        = "SMTP_FROM_EMAIL"
	smtpToEnv          = "SMTP_TO_EMAIL"
	smtpUseTLSEnv      = "SMTP_USE_TLS"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	logLevelEnv        = "LOG_LEVEL"
	sourcesPathEnv     = "SOURCES_CONFIG_PATH"
	maxArticlesEnv     = "MAX_ARTICLES_PER_SOURCE"
	scrapingTimeoutEnv = "SCRAPING_TIMEOUT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database    DatabaseConfig  `yaml:"database"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	Scraping    ScrapingConfig  `yaml:"scraping"`
	YouTube     YouTubeConfig   `yaml:"youtube"`
	ChatGPT     ChatGPTConfig   `yaml:"chatgpt"`
	Digest      DigestConfig    `yaml:"digest"`
	Delivery    DeliveryConfig  `yaml:"delivery"`
	HTTP        HTTPConfig      `yaml:"http"`
	Logging     LoggingConfig   `yaml:"logging"`
	SourcesPath string          `yaml:"sourcesPath"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run in serve mode.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ScrapingConfig is shared by every source connector.
type ScrapingConfig struct {
	MaxArticlesPerSource int           `yaml:"maxArticlesPerSource"`
	Timeout              time.Duration `yaml:"timeout"`
	UserAgent            string        `yaml:"userAgent"`
	Retries              int           `yaml:"retries"`
	BackoffBase          time.Duration `yaml:"backoffBase"`
	Extractor            string        `yaml:"extractor"`
	MinContentLength     int           `yaml:"minContentLength"`
}

// YouTubeConfig wires the video-platform connector.
type YouTubeConfig struct {
	APIKey             string  `yaml:"apiKey"`
	Endpoint           string  `yaml:"endpoint"`
	WatchURL           string  `yaml:"watchUrl"`
	TranscriptLanguage string  `yaml:"transcriptLanguage"`
	RequestsPerSecond  float64 `yaml:"requestsPerSecond"`
}

// ChatGPTConfig defines how to contact the completion API.
type ChatGPTConfig struct {
	Endpoint          string        `yaml:"endpoint"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"apiKey"`
	SystemPrompt      string        `yaml:"systemPrompt"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requestsPerMinute"`
}

// DigestConfig tunes digest selection.
type DigestConfig struct {
	RecentWindow time.Duration `yaml:"recentWindow"`
}

// DeliveryConfig encapsulates outbound channels.
type DeliveryConfig struct {
	Channels []string       `yaml:"channels"`
	Email    EmailConfig    `yaml:"email"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	UseTLS   bool     `yaml:"useTls"`
	Template string   `yaml:"template"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIBase  string `yaml:"apiBase"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// HTTPConfig is the operational endpoint listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present), the .env file, and applies environment overrides.
// An empty path falls back to the NEWSDIGEST_CONFIG variable.
func Load(path string) Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q (supported: postgres, sqlite)", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: database.dsn is required (set %s)", databaseDSNEnv)
	}
	if c.Scraping.MaxArticlesPerSource <= 0 {
		return fmt.Errorf("config: scraping.maxArticlesPerSource must be positive")
	}
	if c.Scraping.Timeout <= 0 {
		return fmt.Errorf("config: scraping.timeout must be positive")
	}
	if c.Scraping.Retries < 0 {
		return fmt.Errorf("config: scraping.retries must not be negative")
	}
	switch c.Scraping.Extractor {
	case "selector", "readability":
	default:
		return fmt.Errorf("config: unsupported extractor %q (supported: selector, readability)", c.Scraping.Extractor)
	}
	for _, ch := range c.Delivery.Channels {
		switch ch {
		case "email":
			if c.Delivery.Email.Host == "" {
				return fmt.Errorf("config: delivery.email.host is required for email delivery")
			}
			if c.Delivery.Email.From == "" {
				return fmt.Errorf("config: delivery.email.from is required for email delivery")
			}
			if len(c.Delivery.Email.To) == 0 {
				return fmt.Errorf("config: delivery.email.to is required for email delivery")
			}
		case "telegram":
			if c.Delivery.Telegram.BotToken == "" || c.Delivery.Telegram.ChatID == "" {
				return fmt.Errorf("config: delivery.telegram requires botToken and chatId")
			}
		default:
			return fmt.Errorf("config: unsupported delivery channel %q (supported: email, telegram)", ch)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(openAIEndpointEnv); v != "" {
		c.ChatGPT.Endpoint = v
	}

	if v := os.Getenv(youtubeAPIKeyEnv); v != "" {
		c.YouTube.APIKey = v
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.Delivery.Email.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Delivery.Email.Port = port
		}
	}
	if v := os.Getenv(smtpUsernameEnv); v != "" {
		c.Delivery.Email.Username = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Delivery.Email.Password = v
	}
	if v := os.Getenv(smtpFromEnv); v != "" {
		c.Delivery.Email.From = v
	}
	if v := os.Getenv(smtpToEnv); v != "" {
		c.Delivery.Email.To = splitList(v)
	}
	if v := os.Getenv(smtpUseTLSEnv); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Delivery.Email.UseTLS = b
		}
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Delivery.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Delivery.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(sourcesPathEnv); v != "" {
		c.SourcesPath = v
	}
	if v := os.Getenv(maxArticlesEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scraping.MaxArticlesPerSource = n
		}
	}
	if v := os.Getenv(scrapingTimeoutEnv); v != "" {
		// Bare numbers are seconds.
		if secs, err := strconv.Atoi(v); err == nil {
			c.Scraping.Timeout = time.Duration(secs) * time.Second
		} else if d, err := time.ParseDuration(v); err == nil {
			c.Scraping.Timeout = d
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{Driver: "postgres", DSN: ""},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Scraping: ScrapingConfig{
			MaxArticlesPerSource: 10,
			Timeout:              30 * time.Second,
			UserAgent:            defaultUserAgent,
			Retries:              3,
			BackoffBase:          time.Second,
			Extractor:            "selector",
			MinContentLength:     100,
		},
		YouTube: YouTubeConfig{
			Endpoint:           "https://www.googleapis.com/youtube/v3",
			WatchURL:           "https://www.youtube.com/watch",
			TranscriptLanguage: "en",
			RequestsPerSecond:  5,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o",
			SystemPrompt:      defaultSystemPrompt,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 60,
		},
		Digest: DigestConfig{RecentWindow: 24 * time.Hour},
		Delivery: DeliveryConfig{
			Channels: []string{"email"},
			Email:    EmailConfig{Port: 587, UseTLS: true},
			Telegram: TelegramConfig{APIBase: "https://api.telegram.org"},
		},
		HTTP:        HTTPConfig{Addr: ":8080"},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
		SourcesPath: "config/sources.yaml",
	}
}
