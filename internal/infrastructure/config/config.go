package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	ShipStation ShipStationConfig
	Sync        SyncConfig
	Session     SessionConfig
	Storage     StorageConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// ShipStationConfig holds ShipStation API credentials and client tuning
type ShipStationConfig struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	StoreID        int
	PageSize       int
	RequestTimeout time.Duration
	MaxRetries     int
	MaxBodyBytes   int64
}

// SyncConfig holds background workflow intervals and windows
type SyncConfig struct {
	UnifiedInterval     time.Duration
	ScannerInterval     time.Duration
	CleanupInterval     time.Duration
	InitialLookback     time.Duration
	WatermarkOverlap    time.Duration
	GhostLookback       time.Duration
	InboxRetention      time.Duration
	RunOnStart          bool
	WorkersEnabled      bool
	ControlCacheTTL     time.Duration
	CollisionWindowDays int
}

// SessionConfig holds cookie session settings
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// StorageConfig holds object storage settings for incident screenshots
type StorageConfig struct {
	Driver        string // s3 or local
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	LocalBasePath string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ORACARE_ prefix (e.g., ORACARE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ORACARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		ShipStation: ShipStationConfig{
			BaseURL:        v.GetString("shipstation.base_url"),
			APIKey:         v.GetString("shipstation.api_key"),
			APISecret:      v.GetString("shipstation.api_secret"),
			StoreID:        v.GetInt("shipstation.store_id"),
			PageSize:       v.GetInt("shipstation.page_size"),
			RequestTimeout: v.GetDuration("shipstation.request_timeout"),
			MaxRetries:     v.GetInt("shipstation.max_retries"),
			MaxBodyBytes:   v.GetInt64("shipstation.max_body_bytes"),
		},
		Sync: SyncConfig{
			UnifiedInterval:     v.GetDuration("sync.unified_interval"),
			ScannerInterval:     v.GetDuration("sync.scanner_interval"),
			CleanupInterval:     v.GetDuration("sync.cleanup_interval"),
			InitialLookback:     v.GetDuration("sync.initial_lookback"),
			WatermarkOverlap:    v.GetDuration("sync.watermark_overlap"),
			GhostLookback:       v.GetDuration("sync.ghost_lookback"),
			InboxRetention:      v.GetDuration("sync.inbox_retention"),
			RunOnStart:          v.GetBool("sync.run_on_start"),
			WorkersEnabled:      v.GetBool("sync.workers_enabled"),
			ControlCacheTTL:     v.GetDuration("sync.control_cache_ttl"),
			CollisionWindowDays: v.GetInt("sync.collision_window_days"),
		},
		Session: SessionConfig{
			CookieName: v.GetString("session.cookie_name"),
			TTL:        v.GetDuration("session.ttl"),
			Secure:     v.GetBool("session.secure"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			Bucket:        v.GetString("storage.bucket"),
			Region:        v.GetString("storage.region"),
			Endpoint:      v.GetString("storage.endpoint"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			LocalBasePath: v.GetString("storage.local_base_path"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "oracare-fulfillment"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "oracare"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.ShipStation.BaseURL == "" {
		cfg.ShipStation.BaseURL = "https://ssapi.shipstation.com"
	}
	if cfg.ShipStation.PageSize == 0 {
		cfg.ShipStation.PageSize = 500
	}
	if cfg.ShipStation.RequestTimeout == 0 {
		cfg.ShipStation.RequestTimeout = 30 * time.Second
	}
	if cfg.ShipStation.MaxRetries == 0 {
		cfg.ShipStation.MaxRetries = 3
	}
	if cfg.ShipStation.MaxBodyBytes == 0 {
		cfg.ShipStation.MaxBodyBytes = 10 << 20 // 10MB
	}
	if cfg.Sync.UnifiedInterval == 0 {
		cfg.Sync.UnifiedInterval = 5 * time.Minute
	}
	if cfg.Sync.ScannerInterval == 0 {
		cfg.Sync.ScannerInterval = 15 * time.Minute
	}
	if cfg.Sync.CleanupInterval == 0 {
		cfg.Sync.CleanupInterval = 24 * time.Hour
	}
	if cfg.Sync.InitialLookback == 0 {
		cfg.Sync.InitialLookback = 24 * time.Hour
	}
	if cfg.Sync.WatermarkOverlap == 0 {
		cfg.Sync.WatermarkOverlap = 5 * time.Minute
	}
	if cfg.Sync.GhostLookback == 0 {
		cfg.Sync.GhostLookback = 7 * 24 * time.Hour
	}
	if cfg.Sync.InboxRetention == 0 {
		cfg.Sync.InboxRetention = 60 * 24 * time.Hour
	}
	if cfg.Sync.ControlCacheTTL == 0 {
		cfg.Sync.ControlCacheTTL = 30 * time.Second
	}
	if cfg.Sync.CollisionWindowDays == 0 {
		cfg.Sync.CollisionWindowDays = 90
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "oracare_session"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 12 * time.Hour
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.LocalBasePath == "" {
		cfg.Storage.LocalBasePath = "./data/screenshots"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.WatermarkOverlap < 0 {
		return fmt.Errorf("sync.watermark_overlap cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.ShipStation.APIKey == "" || c.ShipStation.APISecret == "" {
			return fmt.Errorf("shipstation.api_key and shipstation.api_secret are required in production")
		}
		if !c.Session.Secure {
			return fmt.Errorf("session.secure must be true in production (HTTPS required for session cookies)")
		}
		if c.Storage.Driver == "s3" && c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage.driver is s3")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
