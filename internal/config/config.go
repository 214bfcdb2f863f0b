package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/prompt-general/cscx/internal/expansion"
	"github.com/prompt-general/cscx/internal/telemetry"
)

// DefaultPath is read when neither --config nor CONFIG_PATH is set
const DefaultPath = "config/config.yaml"

// Config represents the overall application configuration
type Config struct {
	API       APIConfig               `yaml:"api"`
	Database  DatabaseConfig          `yaml:"database"`
	Graph     GraphConfig             `yaml:"graph"`
	Redis     RedisConfig             `yaml:"redis"`
	Kafka     KafkaConfig             `yaml:"kafka"`
	LLM       LLMConfig               `yaml:"llm"`
	Expansion expansion.Config        `yaml:"expansion"`
	Logging   LoggingConfig           `yaml:"logging"`
	Tracing   telemetry.TracingConfig `yaml:"tracing"`
}

// APIConfig represents API gateway configuration
type APIConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	EnableCORS     bool          `yaml:"enable_cors"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	AllowedMethods []string      `yaml:"allowed_methods"`
	AllowedHeaders []string      `yaml:"allowed_headers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DatabaseConfig represents the customer record store
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

// GraphConfig represents the Neo4j stakeholder graph
type GraphConfig struct {
	Enabled     bool          `yaml:"enabled"`
	URI         string        `yaml:"uri"`
	Database    string        `yaml:"database"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	MaxPoolSize int           `yaml:"max_pool_size"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
}

// RedisConfig represents the shared cache tier
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	LocalTTL time.Duration `yaml:"local_ttl"`
}

// KafkaConfig represents Kafka producer configuration
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	ClientID     string        `yaml:"client_id"`
	Timeout      time.Duration `yaml:"timeout"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// LLMConfig selects and configures the approach text generator
type LLMConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	MaxTokens       int    `yaml:"max_tokens"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    60 * time.Second,
			EnableCORS:     true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			RequestTimeout: 55 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:cscx.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:    4,
			ConnMaxLifetime: time.Hour,
			Migrate:         true,
		},
		Graph: GraphConfig{
			URI:         "neo4j://localhost:7687",
			Database:    "neo4j",
			Username:    "neo4j",
			MaxPoolSize: 50,
			ConnTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			TTL:      10 * time.Minute,
			LocalTTL: time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			ClientID:     "cscx",
			Timeout:      10 * time.Second,
			BatchTimeout: 10 * time.Millisecond,
		},
		LLM: LLMConfig{
			Provider:  ProviderNone,
			MaxTokens: 300,
		},
		Expansion: expansion.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: telemetry.TracingConfig{
			ServiceName: "cscx",
			Environment: "development",
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRate:  1.0,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies secrets
// from the environment and .env. An empty path falls back to CONFIG_PATH and then
// DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "load .env")
	}

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, eris.Wrapf(err, "read config file %s", path)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, eris.Wrapf(err, "parse config file %s", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets secrets in the environment override the file
func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"OPENAI_API_KEY", &c.LLM.OpenAIAPIKey},
		{"ANTHROPIC_API_KEY", &c.LLM.AnthropicAPIKey},
		{"NEO4J_PASSWORD", &c.Graph.Password},
		{"REDIS_PASSWORD", &c.Redis.Password},
		{"DATABASE_DSN", &c.Database.DSN},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}
