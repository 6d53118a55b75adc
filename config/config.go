package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	OpenRouter OpenRouterConfig
	Models     ModelsConfig
	Cache      CacheConfig
	Image      ImageConfig
	Matching   MatchingConfig
	Chain      ChainConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OpenRouterConfig holds OpenRouter API configuration
type OpenRouterConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Referer  string        `mapstructure:"referer"`
	AppTitle string        `mapstructure:"app_title"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ModelsConfig holds the per-task fallback chains, ordered by preference
type ModelsConfig struct {
	Receipt       []string `mapstructure:"receipt"`
	Label         []string `mapstructure:"label"`
	PriceTag      []string `mapstructure:"price_tag"`
	Normalization []string `mapstructure:"normalization"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "memory" or "mongo"
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"`
	MongoCollection string        `mapstructure:"mongo_collection"`
	TTL             time.Duration `mapstructure:"ttl"`
}

// ImageConfig holds upload and preprocessing configuration
type ImageConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	MaxDimension   int   `mapstructure:"max_dimension"`
	JPEGQuality    int   `mapstructure:"jpeg_quality"`
}

// MatchingConfig holds fuzzy matching configuration
type MatchingConfig struct {
	MinScoreThreshold float64 `mapstructure:"min_score_threshold"`
	SuggestionFloor   float64 `mapstructure:"suggestion_floor"`
	FuzzyEditDistance int     `mapstructure:"fuzzy_edit_distance"`
	DebugLogging      bool    `mapstructure:"debug_logging"`
}

// ChainConfig holds fallback chain configuration
type ChainConfig struct {
	RetriesPerModel int           `mapstructure:"retries_per_model"`
	PerModelTimeout time.Duration `mapstructure:"per_model_timeout"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/foodflow/")

	// Environment variable settings
	v.SetEnvPrefix("FOODFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// OpenRouter defaults. The api_key default registers the key with viper
	// so AutomaticEnv can populate it; there is no usable default value.
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.referer", "https://foodflow.app")
	v.SetDefault("openrouter.app_title", "FoodFlow")
	v.SetDefault("openrouter.timeout", "60s")

	// Model chain defaults, free models first
	v.SetDefault("models.receipt", []string{
		"qwen/qwen2.5-vl-32b-instruct:free",
		"google/gemini-2.0-flash-exp:free",
		"mistralai/mistral-small-3.2-24b-instruct:free",
		"openai/gpt-4o-mini",
	})
	v.SetDefault("models.label", []string{
		"qwen/qwen2.5-vl-32b-instruct:free",
		"google/gemini-2.0-flash-exp:free",
		"mistralai/mistral-small-3.2-24b-instruct:free",
		"google/gemini-2.5-flash-lite",
	})
	v.SetDefault("models.price_tag", []string{
		"qwen/qwen2.5-vl-32b-instruct:free",
		"google/gemini-2.0-flash-exp:free",
		"mistralai/mistral-small-3.2-24b-instruct:free",
	})
	v.SetDefault("models.normalization", []string{
		"perplexity/sonar",
		"mistralai/mistral-small-3.2-24b-instruct:free",
		"qwen/qwen2.5-vl-32b-instruct:free",
	})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "720h") // 30 days
	v.SetDefault("cache.mongo_uri", "")
	v.SetDefault("cache.mongo_database", "foodflow")
	v.SetDefault("cache.mongo_collection", "scan_results")

	// Image defaults
	v.SetDefault("image.max_upload_bytes", 10*1024*1024)
	v.SetDefault("image.max_dimension", 1536)
	v.SetDefault("image.jpeg_quality", 85)

	// Matching defaults
	v.SetDefault("matching.min_score_threshold", 70.0)
	v.SetDefault("matching.suggestion_floor", 40.0)
	v.SetDefault("matching.fuzzy_edit_distance", 1)
	v.SetDefault("matching.debug_logging", false)

	// Chain defaults
	v.SetDefault("chain.retries_per_model", 1)
	v.SetDefault("chain.per_model_timeout", "60s")
	v.SetDefault("chain.retry_backoff", "500ms")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.OpenRouter.APIKey == "" {
		return fmt.Errorf("OpenRouter API key is required (set FOODFLOW_OPENROUTER_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "mongo" {
		return fmt.Errorf("cache type must be 'memory' or 'mongo', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "mongo" && config.Cache.MongoURI == "" {
		return fmt.Errorf("Mongo URI is required when cache type is 'mongo'")
	}

	if len(config.Models.Receipt) == 0 || len(config.Models.Label) == 0 || len(config.Models.Normalization) == 0 {
		return fmt.Errorf("every task needs at least one model in its chain")
	}

	return nil
}
