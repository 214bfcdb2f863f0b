package config

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Text generator providers
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Expansion.Validate(); err != nil {
		return eris.Wrap(err, "expansion config error")
	}

	if err := c.validateAPI(); err != nil {
		return eris.Wrap(err, "api config error")
	}

	if err := c.validateDatabase(); err != nil {
		return eris.Wrap(err, "database config error")
	}

	if err := c.validateNeo4j(); err != nil {
		return eris.Wrap(err, "graph config error")
	}

	if err := c.validateKafka(); err != nil {
		return eris.Wrap(err, "kafka config error")
	}

	if err := c.validateLLM(); err != nil {
		return eris.Wrap(err, "llm config error")
	}

	if err := c.validateLogging(); err != nil {
		return eris.Wrap(err, "logging config error")
	}

	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return eris.New("port must be between 1 and 65535")
	}

	if c.API.EnableCORS && len(c.API.AllowedOrigins) == 0 {
		return eris.New("allowed_origins is required when CORS is enabled")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Driver == "" {
		return eris.New("driver is required")
	}
	if c.Database.DSN == "" {
		return eris.New("dsn is required")
	}
	return nil
}

func (c *Config) validateNeo4j() error {
	if !c.Graph.Enabled {
		return nil
	}

	if c.Graph.URI == "" {
		return eris.New("uri is required")
	}

	if _, err := url.Parse(c.Graph.URI); err != nil {
		return eris.Wrap(err, "invalid uri format")
	}

	if c.Graph.Username == "" {
		return eris.New("username is required")
	}

	if c.Graph.MaxPoolSize <= 0 {
		return eris.New("max_pool_size must be greater than 0")
	}

	return nil
}

func (c *Config) validateKafka() error {
	for _, broker := range c.Kafka.Brokers {
		if !strings.Contains(broker, ":") {
			return eris.Errorf("invalid broker format: %s (expected host:port)", broker)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "", ProviderNone, ProviderOpenAI, ProviderAnthropic:
	default:
		return eris.Errorf("unknown provider: %s (must be none, openai, or anthropic)", c.LLM.Provider)
	}
	if c.LLM.MaxTokens < 0 {
		return eris.New("max_tokens must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

	if !validLevels[level] {
		return eris.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}

	format := strings.ToLower(c.Logging.Format)
	validFormats := map[string]bool{"json": true, "console": true}

	if !validFormats[format] {
		return eris.Errorf("invalid log format: %s (must be json or console)", format)
	}

	return nil
}
