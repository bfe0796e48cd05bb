package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/logger"
)

const cloudflareAIBaseURL = "https://api.cloudflare.com/client/v4/accounts/%s/ai/v1"

// Config holds the application's configuration values.
type Config struct {
	Server      ServerConfig
	Database    DBConfig
	AI          AIConfig
	Agent       AgentConfig
	Logging     logger.Config
	NodeID      int64
	ProfilePath string
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
}

// DBConfig describes the conversation store. Driver is "postgres" or "sqlite";
// Path is only used by sqlite.
type DBConfig struct {
	Driver          string
	Path            string
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type AIConfig struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	OllamaHost     string
	GeminiAPIKey   string
	RequestTimeout time.Duration
}

// AgentConfig tunes the review agent and its dispatcher.
type AgentConfig struct {
	HistoryWindow     int
	ReviewTemperature float64
	ReviewMaxTokens   int
	ChatTemperature   float64
	ChatMaxTokens     int
	MaxSuggestions    int
	InboxSize         int
	CompletionTimeout time.Duration
	StorageTimeout    time.Duration
	IdleTimeout       time.Duration
}

// LoadConfig reads configuration from environment variables and a .env file
// in the working directory.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads configuration from the given .env file and the environment,
// applies defaults and validates the result. A missing file is not an error;
// environment variables take precedence over file values.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			ReadTimeout:    v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("SERVER_WRITE_TIMEOUT"),
			RequestTimeout: v.GetDuration("SERVER_REQUEST_TIMEOUT"),
		},
		Database: DBConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			Path:            v.GetString("DB_PATH"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		AI: AIConfig{
			Provider:       strings.ToLower(v.GetString("LLM_PROVIDER")),
			Model:          v.GetString("LLM_MODEL"),
			APIKey:         v.GetString("LLM_API_KEY"),
			BaseURL:        v.GetString("LLM_BASE_URL"),
			OllamaHost:     v.GetString("OLLAMA_HOST"),
			GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
			RequestTimeout: v.GetDuration("LLM_REQUEST_TIMEOUT"),
		},
		Agent: AgentConfig{
			HistoryWindow:     v.GetInt("AGENT_HISTORY_WINDOW"),
			ReviewTemperature: v.GetFloat64("AGENT_REVIEW_TEMPERATURE"),
			ReviewMaxTokens:   v.GetInt("AGENT_REVIEW_MAX_TOKENS"),
			ChatTemperature:   v.GetFloat64("AGENT_CHAT_TEMPERATURE"),
			ChatMaxTokens:     v.GetInt("AGENT_CHAT_MAX_TOKENS"),
			MaxSuggestions:    v.GetInt("AGENT_MAX_SUGGESTIONS"),
			InboxSize:         v.GetInt("AGENT_INBOX_SIZE"),
			CompletionTimeout: v.GetDuration("AGENT_COMPLETION_TIMEOUT"),
			StorageTimeout:    v.GetDuration("AGENT_STORAGE_TIMEOUT"),
			IdleTimeout:       v.GetDuration("AGENT_IDLE_TIMEOUT"),
		},
		Logging: logger.Config{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
		NodeID:      v.GetInt64("NODE_ID"),
		ProfilePath: v.GetString("REVIEW_PROFILE_PATH"),
	}

	// Workers AI exposes an OpenAI-compatible endpoint per account.
	if cfg.AI.BaseURL == "" && cfg.AI.Provider == "openai" {
		if account := v.GetString("CLOUDFLARE_ACCOUNT_ID"); account != "" {
			cfg.AI.BaseURL = fmt.Sprintf(cloudflareAIBaseURL, account)
		}
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = v.GetString("CLOUDFLARE_API_TOKEN")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 2*time.Minute)
	v.SetDefault("SERVER_REQUEST_TIMEOUT", 90*time.Second)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "review-assistant.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "review_assistant")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)

	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_MODEL", "@cf/meta/llama-3.3-70b-instruct-fp8-fast")
	v.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	v.SetDefault("LLM_REQUEST_TIMEOUT", 60*time.Second)

	v.SetDefault("AGENT_HISTORY_WINDOW", 10)
	v.SetDefault("AGENT_REVIEW_TEMPERATURE", 0.1)
	v.SetDefault("AGENT_REVIEW_MAX_TOKENS", 1024)
	v.SetDefault("AGENT_CHAT_TEMPERATURE", 0.7)
	v.SetDefault("AGENT_CHAT_MAX_TOKENS", 768)
	v.SetDefault("AGENT_MAX_SUGGESTIONS", 50)
	v.SetDefault("AGENT_INBOX_SIZE", 16)
	v.SetDefault("AGENT_COMPLETION_TIMEOUT", 60*time.Second)
	v.SetDefault("AGENT_STORAGE_TIMEOUT", 5*time.Second)
	v.SetDefault("AGENT_IDLE_TIMEOUT", 10*time.Minute)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")

	v.SetDefault("NODE_ID", 1)
	v.SetDefault("REVIEW_PROFILE_PATH", ".review-assistant.yml")
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("SERVER_PORT must be set")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be between 0 and 1023, got %d", c.NodeID)
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	if c.Logging.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
			return fmt.Errorf("unrecognized LOG_LEVEL %q", c.Logging.Level)
		}
	}
	return nil
}

func (c *DBConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.Path == "" {
			return errors.New("DB_PATH must be set for the sqlite driver")
		}
	case "postgres":
		if c.Host == "" || c.Database == "" {
			return errors.New("DB_HOST and DB_NAME must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.Driver)
	}
	return nil
}

func (c *AIConfig) Validate() error {
	if c.Model == "" {
		return errors.New("LLM_MODEL must be set")
	}
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return errors.New("LLM_API_KEY (or CLOUDFLARE_API_TOKEN) must be set for the openai provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY must be set for the gemini provider")
		}
	case "ollama":
		if c.OllamaHost == "" {
			return errors.New("OLLAMA_HOST must be set for the ollama provider")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.Provider)
	}
	return nil
}

func (c *AgentConfig) Validate() error {
	switch {
	case c.HistoryWindow < 0:
		return fmt.Errorf("AGENT_HISTORY_WINDOW cannot be negative, got %d", c.HistoryWindow)
	case c.ReviewTemperature < 0 || c.ReviewTemperature > 2:
		return fmt.Errorf("AGENT_REVIEW_TEMPERATURE must be in [0,2], got %v", c.ReviewTemperature)
	case c.ChatTemperature < 0 || c.ChatTemperature > 2:
		return fmt.Errorf("AGENT_CHAT_TEMPERATURE must be in [0,2], got %v", c.ChatTemperature)
	case c.ReviewMaxTokens <= 0 || c.ChatMaxTokens <= 0:
		return errors.New("AGENT_REVIEW_MAX_TOKENS and AGENT_CHAT_MAX_TOKENS must be positive")
	case c.MaxSuggestions <= 0:
		return fmt.Errorf("AGENT_MAX_SUGGESTIONS must be positive, got %d", c.MaxSuggestions)
	case c.InboxSize <= 0:
		return fmt.Errorf("AGENT_INBOX_SIZE must be positive, got %d", c.InboxSize)
	case c.CompletionTimeout <= 0 || c.StorageTimeout <= 0 || c.IdleTimeout <= 0:
		return errors.New("agent timeouts must be positive")
	}
	return nil
}
