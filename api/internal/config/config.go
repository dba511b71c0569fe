package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	LLMName      string `yaml:"llm_name"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`

	// GatewayURL is where the shell sends {action, payload}. Empty means
	// this process's own /api/gemini.
	GatewayURL     string        `yaml:"gateway_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	StoreDriver string `yaml:"store_driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`

	TelegramBotToken string `yaml:"telegram_bot_token"`
	WebhookURL       string `yaml:"webhook_url"`
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the optional YAML file named by HANDMATH_CONFIG, then lets the
// environment override it, then fills defaults. Credentials are not required
// here; the proxy reports a missing key per request.
func Load() (*Config, error) {
	c := &Config{}
	if path := os.Getenv("HANDMATH_CONFIG"); path != "" {
		if err := c.readFile(path); err != nil {
			return nil, err
		}
	}

	c.Port = getEnv("PORT", c.Port)
	c.LLMName = getEnv("LLM_NAME", c.LLMName)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnv("GEMINI_MODEL", c.GeminiModel)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.GatewayURL = getEnv("GATEWAY_URL", c.GatewayURL)
	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}

	c.defaults()
	return c, nil
}

func (c *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) defaults() {
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.LLMName == "" {
		c.LLMName = "gemini"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.5-flash"
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = "gpt-4o-mini"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 180 * time.Second
	}
	if c.StoreDriver == "" {
		if c.DatabaseURL != "" {
			c.StoreDriver = "postgres"
		} else {
			c.StoreDriver = "sqlite"
		}
	}
}

// StoreDSN is the data source for the configured driver.
func (c *Config) StoreDSN() string {
	if c.StoreDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.DatabaseURL
}

// parseTimeout accepts a Go duration ("90s") or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, errors.New("must be positive")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}
