package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Importer  ImporterConfig  `mapstructure:"importer"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port            int        `mapstructure:"port"`
	Mode            string     `mapstructure:"mode"`
	CORS            CORSConfig `mapstructure:"cors"`
	UploadRateLimit string     `mapstructure:"upload_rate_limit"`
	MaxUploadBytes  int64      `mapstructure:"max_upload_bytes"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	User               string        `mapstructure:"user"`
	Password           string        `mapstructure:"password"`
	DBName             string        `mapstructure:"dbname"`
	SSLMode            string        `mapstructure:"sslmode"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	WorkerMaxOpenConns int           `mapstructure:"worker_max_open_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
	LogSQL             bool          `mapstructure:"log_sql"`
}

// DSN builds the driver specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

// ForWorker returns a copy capped to the background process pool size.
func (c DatabaseConfig) ForWorker() DatabaseConfig {
	if c.WorkerMaxOpenConns > 0 {
		c.MaxOpenConns = c.WorkerMaxOpenConns
		if c.MaxIdleConns > c.MaxOpenConns {
			c.MaxIdleConns = c.MaxOpenConns
		}
	}
	return c
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	LocalPath string `mapstructure:"local_path"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
}

type GeocodingConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryWait    time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait"`
	Limit        int           `mapstructure:"limit"`
	Language     string        `mapstructure:"language"`
	Country      string        `mapstructure:"country"`
	CenterLat    float64       `mapstructure:"center_lat"`
	CenterLng    float64       `mapstructure:"center_lng"`
}

type ImporterConfig struct {
	Throttle         time.Duration `mapstructure:"throttle"`
	MaxPreviewRows   int           `mapstructure:"max_preview_rows"`
	MaxRows          int           `mapstructure:"max_rows"`
	ScriptDelimiter  string        `mapstructure:"script_delimiter"`
	TermTaxonomySlug string        `mapstructure:"term_taxonomy_slug"`
}

type FeedConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	VenueURL     string        `mapstructure:"venue_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryCount   int           `mapstructure:"retry_count"`
	TaxonomySlug string        `mapstructure:"taxonomy_slug"`
	Timezone     string        `mapstructure:"timezone"`
	Interval     time.Duration `mapstructure:"interval"`
	VenueCache   int           `mapstructure:"venue_cache_size"`
}

type SchedulerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	QueueSize   int           `mapstructure:"queue_size"`
	Workers     int           `mapstructure:"workers"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
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

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.upload_rate_limit", "30-M")
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/culturemap.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.worker_max_open_conns", 1)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./data/uploads")
	v.SetDefault("storage.bucket", "culturemap-imports")
	v.SetDefault("storage.prefix", "imports")
	v.SetDefault("geocoding.base_url", "https://photon.komoot.io")
	v.SetDefault("geocoding.timeout", 10*time.Second)
	v.SetDefault("geocoding.retry_count", 3)
	v.SetDefault("geocoding.retry_wait", 500*time.Millisecond)
	v.SetDefault("geocoding.retry_max_wait", 5*time.Second)
	v.SetDefault("geocoding.limit", 5)
	v.SetDefault("geocoding.language", "de")
	v.SetDefault("geocoding.country", "Deutschland")
	v.SetDefault("geocoding.center_lat", 52.520008)
	v.SetDefault("geocoding.center_lng", 13.404954)
	v.SetDefault("importer.throttle", 1100*time.Millisecond)
	v.SetDefault("importer.max_preview_rows", 10)
	v.SetDefault("importer.max_rows", 10000)
	v.SetDefault("importer.script_delimiter", ";")
	v.SetDefault("importer.term_taxonomy_slug", "typeOfInstitution")
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.timeout", 30*time.Second)
	v.SetDefault("feed.retry_count", 3)
	v.SetDefault("feed.taxonomy_slug", "eventType")
	v.SetDefault("feed.timezone", "Europe/Berlin")
	v.SetDefault("feed.interval", 6*time.Hour)
	v.SetDefault("feed.venue_cache_size", 1024)
	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.queue_size", 64)
	v.SetDefault("scheduler.workers", 1)
	v.SetDefault("scheduler.metrics_addr", ":9091")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and endpoints commonly injected by the deployment
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("storage.access_key", "S3_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "S3_SECRET_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("geocoding.base_url", "GEOCODER_URL")
	v.BindEnv("feed.url", "FEED_URL")
	v.BindEnv("feed.venue_url", "FEED_VENUE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Importer.MaxRows <= 0 {
		return fmt.Errorf("importer.max_rows must be positive")
	}
	if c.Importer.MaxPreviewRows <= 0 {
		return fmt.Errorf("importer.max_preview_rows must be positive")
	}
	if len([]rune(c.Importer.ScriptDelimiter)) != 1 {
		return fmt.Errorf("importer.script_delimiter must be a single character, got %q", c.Importer.ScriptDelimiter)
	}
	if c.Feed.Enabled && c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required when feed.enabled is set")
	}
	switch c.Storage.Type {
	case "local", "s3", "r2", "s3compatible":
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	return nil
}
