// Package config centralizes configuration loading for the application.
// Values come from an optional YAML config file, a local .env file and
// environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Store     Store     `mapstructure:"store"`
	Embedding Embedding `mapstructure:"embedding"`
	Groq      Groq      `mapstructure:"groq"`
	Collector Collector `mapstructure:"collector"`
	Engine    Engine    `mapstructure:"engine"`
	Server    Server    `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`
	ConfigFile string `mapstructure:"config_file"`
	UserID     string `mapstructure:"user_id"` // Default user identity for CLI commands
}

// Store holds the article/user store connection settings. The store is a
// Postgres database with the pgvector extension (hosted Supabase or plain
// Postgres; both expose the same SQL surface).
type Store struct {
	DatabaseURL string `mapstructure:"database_url"`
	ServiceKey  string `mapstructure:"service_key"` // Write credential; service-role preferred for collector/backfill
	Dimensions  int    `mapstructure:"dimensions"`  // Embedding dimension D; a deployment fixes one generation
}

// Embedding holds embedding provider configuration
type Embedding struct {
	Provider   string           `mapstructure:"provider"` // "cloudflare" or "gemini"
	BatchSize  int              `mapstructure:"batch_size"`
	Timeout    string           `mapstructure:"timeout"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
}

// CloudflareConfig holds Cloudflare Workers AI configuration
type CloudflareConfig struct {
	AccountID string `mapstructure:"account_id"`
	APIToken  string `mapstructure:"api_token"`
	Model     string `mapstructure:"model"`
}

// GeminiConfig holds Google Gemini embedding configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Groq holds Groq (OpenAI-compatible) chat configuration used for deep-dive
// analysis and LLM keyword extraction.
type Groq struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	DeepDiveModel     string `mapstructure:"deep_dive_model"`
	KeywordModel      string `mapstructure:"keyword_model"`
	NutrientModel     string `mapstructure:"nutrient_model"`
	Timeout           string `mapstructure:"timeout"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// Collector holds feed polling configuration
type Collector struct {
	Feeds      []string `mapstructure:"feeds"`
	UserAgent  string   `mapstructure:"user_agent"`
	Timeout    string   `mapstructure:"timeout"`
	OGPTimeout string   `mapstructure:"ogp_timeout"`
	OGPEnabled bool     `mapstructure:"ogp_enabled"`
}

// Engine holds ranking engine tunables
type Engine struct {
	GroupingThreshold  float64 `mapstructure:"grouping_threshold"`
	AlphaView          float64 `mapstructure:"alpha_view"`
	AlphaDeepDive      float64 `mapstructure:"alpha_deep_dive"`
	AlphaNotInterested float64 `mapstructure:"alpha_not_interested"`
	DefaultTopN        int     `mapstructure:"default_top_n"`
	DefaultFilter      float64 `mapstructure:"default_filter"`
}

// Server holds HTTP server configuration
type Server struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ReadTimeout    string `mapstructure:"read_timeout"`
	WriteTimeout   string `mapstructure:"write_timeout"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// DefaultFeeds are the aggregator feeds polled by the collector.
var DefaultFeeds = []string{
	"https://news.ceek.jp/search.cgi?feed=1",
	"https://news.ceek.jp/search.cgi?category_id=national&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=politics&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=business&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=world&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=triple&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=it&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=sports&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=entertainment&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=science&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=obituaries&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=local&feed=1",
	"https://news.ceek.jp/search.cgi?category_id=etc&feed=1",
}

var loaded *Config

// Load reads configuration from the optional config file, .env and
// environment variables, and caches the result for Get.
func Load(cfgFile string) (*Config, error) {
	// .env is best-effort; missing file is fine
	_ = godotenv.Load()

	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ownnews")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is acceptable; anything else is not
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvironmentVariables()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.App.ConfigFile = viper.ConfigFileUsed()

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	loaded = &cfg
	return loaded, nil
}

// Get returns the loaded configuration, loading defaults if Load has not
// been called.
func Get() *Config {
	if loaded == nil {
		cfg, err := Load("")
		if err != nil {
			// Defaults are always unmarshalable; this indicates a broken
			// config file, which callers must handle through Load.
			return &Config{}
		}
		return cfg
	}
	return loaded
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.user_id", "default")

	viper.SetDefault("store.dimensions", 768)

	viper.SetDefault("embedding.provider", "cloudflare")
	viper.SetDefault("embedding.batch_size", 50)
	viper.SetDefault("embedding.timeout", "120s")
	viper.SetDefault("embedding.cloudflare.model", "@cf/baai/bge-base-en-v1.5")
	viper.SetDefault("embedding.gemini.model", "gemini-embedding-001")

	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.deep_dive_model", "llama-3.3-70b-versatile")
	viper.SetDefault("groq.keyword_model", "llama-3.1-8b-instant")
	viper.SetDefault("groq.nutrient_model", "llama-3.1-8b-instant")
	viper.SetDefault("groq.timeout", "30s")
	viper.SetDefault("groq.requests_per_minute", 30)

	viper.SetDefault("collector.feeds", DefaultFeeds)
	viper.SetDefault("collector.user_agent", "OwnNews Collector/1.0")
	viper.SetDefault("collector.timeout", "30s")
	viper.SetDefault("collector.ogp_timeout", "5s")
	viper.SetDefault("collector.ogp_enabled", true)

	viper.SetDefault("engine.grouping_threshold", 0.85)
	viper.SetDefault("engine.alpha_view", 0.03)
	viper.SetDefault("engine.alpha_deep_dive", 0.15)
	viper.SetDefault("engine.alpha_not_interested", -0.20)
	viper.SetDefault("engine.default_top_n", 30)
	viper.SetDefault("engine.default_filter", 0.5)

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.allowed_origins", "*")
}

// bindEnvironmentVariables maps the runtime environment onto viper keys.
func bindEnvironmentVariables() {
	bindEnvKeys("store.database_url", []string{
		"SUPABASE_DB_URL",
		"DATABASE_URL",
		"SUPABASE_URL",
	})
	bindEnvKeys("store.service_key", []string{
		"SUPABASE_KEY",
		"SUPABASE_SERVICE_KEY",
	})
	bindEnvKeys("embedding.cloudflare.account_id", []string{
		"CF_ACCOUNT_ID",
	})
	bindEnvKeys("embedding.cloudflare.api_token", []string{
		"CF_API_TOKEN",
	})
	bindEnvKeys("embedding.cloudflare.model", []string{
		"CF_MODEL",
	})
	bindEnvKeys("embedding.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
	})
	bindEnvKeys("groq.api_key", []string{
		"GROQ_API_KEY",
	})
	bindEnvKeys("app.user_id", []string{
		"OWNNEWS_USER_ID",
	})
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"OWNNEWS_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

func validate(cfg *Config) error {
	durations := map[string]string{
		"embedding.timeout":     cfg.Embedding.Timeout,
		"groq.timeout":          cfg.Groq.Timeout,
		"collector.timeout":     cfg.Collector.Timeout,
		"collector.ogp_timeout": cfg.Collector.OGPTimeout,
		"server.read_timeout":   cfg.Server.ReadTimeout,
		"server.write_timeout":  cfg.Server.WriteTimeout,
	}
	for key, val := range durations {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", key, val)
		}
	}

	if cfg.Engine.GroupingThreshold < -1 || cfg.Engine.GroupingThreshold > 1 {
		return fmt.Errorf("engine.grouping_threshold must be within [-1, 1], got %v", cfg.Engine.GroupingThreshold)
	}
	if cfg.Store.Dimensions <= 0 {
		return fmt.Errorf("store.dimensions must be positive, got %d", cfg.Store.Dimensions)
	}

	provider := strings.ToLower(cfg.Embedding.Provider)
	if provider != "cloudflare" && provider != "gemini" {
		return fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	return nil
}

// Duration parses a config duration string, falling back to def when the
// value is empty or malformed. Validation has already rejected malformed
// values from files; the fallback covers zero-value Config structs in tests.
func Duration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
