package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samcutley/intelwatch/internal/domain"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Sources   []SourceConfig  `mapstructure:"sources"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
// Parameters: none.
// Returns:
//   - string: DSN for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type CrawlConfig struct {
	MaxConcurrentFetches int           `mapstructure:"max_concurrent_fetches"`
	RequestDelay         time.Duration `mapstructure:"request_delay"`
	MaxPagesPerSource    int           `mapstructure:"max_pages_per_source"`
	Timeout              time.Duration `mapstructure:"timeout"`
	UserAgent            string        `mapstructure:"user_agent"`
}

type AnalysisConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	MinContentLength int           `mapstructure:"min_content_length"`
	MaxContentLength int           `mapstructure:"max_content_length"`
}

type WorkerConfig struct {
	Count         int           `mapstructure:"count"`
	BatchSize     int           `mapstructure:"batch_size"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	ErrorCooldown time.Duration `mapstructure:"error_cooldown"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type PublisherConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	RedisAddr string `mapstructure:"redis_addr"`
	Stream    string `mapstructure:"stream"`
	MaxLen    int64  `mapstructure:"max_len"`
}

// SourceConfig declares one content source and its extraction rules.
// Rules are validated at load time, not at crawl time.
type SourceConfig struct {
	Name     string            `mapstructure:"name"`
	BaseURL  string            `mapstructure:"base_url"`
	Type     string            `mapstructure:"type"`
	IsActive bool              `mapstructure:"is_active"`
	Rules    domain.CrawlRules `mapstructure:"rules"`
}

// Validate checks that the source carries a usable extraction ruleset.
// Parameters: none.
// Returns:
//   - error: non-nil when required rule fields are missing.
func (s *SourceConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source missing name")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("source %q missing base_url", s.Name)
	}
	if s.Rules.Listing == nil || s.Rules.Listing.ItemSelector == "" {
		return fmt.Errorf("source %q missing listing rules", s.Name)
	}
	if _, ok := s.Rules.Listing.Fields["article_url"]; !ok {
		return fmt.Errorf("source %q listing rules missing article_url field", s.Name)
	}
	if s.Rules.Article == nil || s.Rules.Article.ContentSelector == "" {
		return fmt.Errorf("source %q missing article rules", s.Name)
	}
	return nil
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("analysis.api_key", "ANALYSIS_API_KEY")
	v.BindEnv("analysis.base_url", "ANALYSIS_BASE_URL")
	v.BindEnv("analysis.model", "ANALYSIS_MODEL")
	v.BindEnv("publisher.redis_addr", "REDIS_ADDR")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i := range cfg.Sources {
		if err := cfg.Sources[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid source config: %w", err)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/intelwatch.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("crawl.max_concurrent_fetches", 5)
	v.SetDefault("crawl.request_delay", time.Second)
	v.SetDefault("crawl.max_pages_per_source", 10)
	v.SetDefault("crawl.timeout", 30*time.Second)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	v.SetDefault("analysis.base_url", "http://127.0.0.1:8081")
	v.SetDefault("analysis.model", "qwen3-8b")
	v.SetDefault("analysis.timeout", 300*time.Second)
	v.SetDefault("analysis.max_retries", 3)
	v.SetDefault("analysis.min_content_length", 500)
	v.SetDefault("analysis.max_content_length", 50000)

	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.poll_interval", 30*time.Second)
	v.SetDefault("worker.error_cooldown", 60*time.Second)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.interval", 6*time.Hour)

	v.SetDefault("publisher.enabled", false)
	v.SetDefault("publisher.redis_addr", "localhost:6379")
	v.SetDefault("publisher.stream", "intelwatch:articles")
	v.SetDefault("publisher.max_len", 500)
}
