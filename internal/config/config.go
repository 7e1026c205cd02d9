package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        App        `mapstructure:"app"`
	AI         AI         `mapstructure:"ai"`
	Database   Database   `mapstructure:"database"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
	Redundancy Redundancy `mapstructure:"redundancy"`
	Enrichment Enrichment `mapstructure:"enrichment"`
	Digest     Digest     `mapstructure:"digest"`
	Sync       Sync       `mapstructure:"sync"`
	Email      Email      `mapstructure:"email"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds completion-service configuration.
type AI struct {
	Provider string       `mapstructure:"provider"` // "gemini" or "openai"
	Gemini   GeminiConfig `mapstructure:"gemini"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// OpenAIConfig holds configuration for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

// Database configures the SQLite store.
type Database struct {
	Path string `mapstructure:"path"`
}

// Pipeline configures the orchestrator: window sizes, caps, retries.
type Pipeline struct {
	LookbackWindow        string `mapstructure:"lookback_window"`
	MaxGapPatterns        int    `mapstructure:"max_gap_patterns"`
	MaxScanSamples        int    `mapstructure:"max_scan_samples"`
	GenerationConcurrency int    `mapstructure:"generation_concurrency"`
	BackfillConcurrency   int    `mapstructure:"backfill_concurrency"`
	RetryAttempts         int    `mapstructure:"retry_attempts"`
	RetryBackoff          string `mapstructure:"retry_backoff"`
	QueueSize             int    `mapstructure:"queue_size"`
}

// LookbackDuration returns the scan lookback window as a duration.
func (p Pipeline) LookbackDuration() time.Duration {
	d, err := time.ParseDuration(p.LookbackWindow)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// BackoffDuration returns the retry backoff as a duration.
func (p Pipeline) BackoffDuration() time.Duration {
	d, err := time.ParseDuration(p.RetryBackoff)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Redundancy exposes the overlap-score weights and threshold. The values are
// empirically tuned; table-driven tests cover them rather than assuming a
// derivation.
type Redundancy struct {
	Threshold            int `mapstructure:"threshold"`
	TopicCompetitorMatch int `mapstructure:"topic_competitor_match"`
	TitleCompetitorMatch int `mapstructure:"title_competitor_match"`
	SlugCompetitorMatch  int `mapstructure:"slug_competitor_match"`
	ComparisonKeyword    int `mapstructure:"comparison_keyword"`
	IndustryTopicMatch   int `mapstructure:"industry_topic_match"`
	IndustryTitleMatch   int `mapstructure:"industry_title_match"`
	IndustryURLMatch     int `mapstructure:"industry_url_match"`
	IndustryPageBonus    int `mapstructure:"industry_page_bonus"`
	HowToTopicMatch      int `mapstructure:"howto_topic_match"`
	HowToTitleMatch      int `mapstructure:"howto_title_match"`
	HowToGuideKeyword    int `mapstructure:"howto_guide_keyword"`
	ExactTopicMatch      int `mapstructure:"exact_topic_match"`
	PartialTopicMatch    int `mapstructure:"partial_topic_match"`
}

// Enrichment configures the competitor profile crawl.
type Enrichment struct {
	Concurrency   int     `mapstructure:"concurrency"`
	RatePerMinute float64 `mapstructure:"rate_per_minute"`
	Timeout       string  `mapstructure:"timeout"`
}

// Digest configures the rollup job.
type Digest struct {
	Schedule      string `mapstructure:"schedule"` // cron expression
	RetryAttempts int    `mapstructure:"retry_attempts"`
}

// Sync configures best-effort external publication sync.
type Sync struct {
	Enabled        bool   `mapstructure:"enabled"`
	IndexNowKey    string `mapstructure:"indexnow_key"`
	IndexNowURL    string `mapstructure:"indexnow_url"`
	CMSWebhookURL  string `mapstructure:"cms_webhook_url"`
	RequestTimeout string `mapstructure:"request_timeout"`
}

// Email configures digest delivery.
type Email struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

var globalConfig *Config

// Load reads configuration from file, environment, and defaults.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".citegap")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

func setDefaults() {
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.gemini.temperature", 0.7)
	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com")
	viper.SetDefault("ai.openai.timeout", "60s")

	viper.SetDefault("database.path", "citegap.db")

	viper.SetDefault("pipeline.lookback_window", "24h")
	viper.SetDefault("pipeline.max_gap_patterns", 10)
	viper.SetDefault("pipeline.max_scan_samples", 5)
	viper.SetDefault("pipeline.generation_concurrency", 3)
	viper.SetDefault("pipeline.backfill_concurrency", 3)
	viper.SetDefault("pipeline.retry_attempts", 2)
	viper.SetDefault("pipeline.retry_backoff", "30s")
	viper.SetDefault("pipeline.queue_size", 256)

	viper.SetDefault("redundancy.threshold", 50)
	viper.SetDefault("redundancy.topic_competitor_match", 50)
	viper.SetDefault("redundancy.title_competitor_match", 30)
	viper.SetDefault("redundancy.slug_competitor_match", 20)
	viper.SetDefault("redundancy.comparison_keyword", 10)
	viper.SetDefault("redundancy.industry_topic_match", 30)
	viper.SetDefault("redundancy.industry_title_match", 20)
	viper.SetDefault("redundancy.industry_url_match", 15)
	viper.SetDefault("redundancy.industry_page_bonus", 20)
	viper.SetDefault("redundancy.howto_topic_match", 25)
	viper.SetDefault("redundancy.howto_title_match", 15)
	viper.SetDefault("redundancy.howto_guide_keyword", 10)
	viper.SetDefault("redundancy.exact_topic_match", 20)
	viper.SetDefault("redundancy.partial_topic_match", 10)

	viper.SetDefault("enrichment.concurrency", 2)
	viper.SetDefault("enrichment.rate_per_minute", 5)
	viper.SetDefault("enrichment.timeout", "30s")

	viper.SetDefault("digest.schedule", "0 8 * * *")
	viper.SetDefault("digest.retry_attempts", 2)

	viper.SetDefault("sync.enabled", false)
	viper.SetDefault("sync.indexnow_url", "https://api.indexnow.org/indexnow")
	viper.SetDefault("sync.request_timeout", "10s")

	viper.SetDefault("email.enabled", false)
	viper.SetDefault("email.port", 587)
}

// bindEnvironmentVariables supports multiple well-known variable names per key.
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})
	bindEnvKeys("ai.openai.api_key", []string{"OPENAI_API_KEY"})
	bindEnvKeys("database.path", []string{"CITEGAP_DB_PATH"})
	bindEnvKeys("email.password", []string{"SMTP_PASSWORD"})
}

func bindEnvKeys(configKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(configKey, value)
			return
		}
	}
}
