package config

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Seed       SeedConfig       `mapstructure:"seed"`
	Index      IndexConfig      `mapstructure:"index"`
	Generation GenerationConfig `mapstructure:"generation"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite mysql"`
	// Path is the SQLite database file, or ":memory:".
	Path string `mapstructure:"path" validate:"required"`

	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port" validate:"min=0,max=65535"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds" validate:"min=0"`
}

type SeedConfig struct {
	Path string `mapstructure:"path"`
}

type IndexConfig struct {
	Directory    string `mapstructure:"directory" validate:"required"`
	SimilarCount int    `mapstructure:"similar_count" validate:"min=1,max=50"`
}

type GenerationConfig struct {
	Provider         string  `mapstructure:"provider" validate:"oneof=ollama openai"`
	Model            string  `mapstructure:"model" validate:"required,model"`
	Temperature      float64 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxAttempts      int     `mapstructure:"max_attempts" validate:"min=1,max=10"`
	MaxRetryAttempts uint    `mapstructure:"max_retry_attempts" validate:"max=10"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=ollama openai"`
	Model    string `mapstructure:"model" validate:"required,model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
}

type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key"`
}

// UsesOpenAI reports whether either the generation or embedding side talks to OpenAI.
func (cfg Config) UsesOpenAI() bool {
	return cfg.Generation.Provider == ProviderOpenAI || cfg.Embedding.Provider == ProviderOpenAI
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/abbrgen")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "dictionary.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "abbrgen")
	v.SetDefault("database.username", "user")
	v.SetDefault("seed.path", "Dictionary.json")
	v.SetDefault("index.directory", "index")
	v.SetDefault("index.similar_count", 4)
	v.SetDefault("generation.provider", ProviderOllama)
	v.SetDefault("generation.model", "gemma3n:e4b")
	v.SetDefault("generation.temperature", 0.2)
	v.SetDefault("generation.max_attempts", 3)
	v.SetDefault("generation.max_retry_attempts", 0)
	v.SetDefault("embedding.provider", ProviderOllama)
	v.SetDefault("embedding.model", "embeddinggemma:300m")
	v.SetDefault("ollama.endpoint", "http://localhost:11434")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")

	envBindings := []struct {
		key string
		env string
	}{
		{"generation.model", "ABBRGEN_GENERATION_MODEL"},
		{"embedding.model", "ABBRGEN_EMBEDDING_MODEL"},
		{"ollama.endpoint", "OLLAMA_HOST"},
		// OpenAI credentials come from environment variables only
		{"openai.api_key", "OPENAI_API_KEY"},
		{"openai.base_url", "OPENAI_BASE_URL"},
		{"database.password", "DB_PASSWORD"},
	}
	for _, binding := range envBindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", binding.env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags and returns translated messages.
// It is exported so command-line overrides applied after Load can be re-checked.
func (loader *ConfigLoader) Validate(cfg Config) error {
	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}
	return nil
}
