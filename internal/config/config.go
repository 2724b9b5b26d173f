package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Provider ProviderConfig `mapstructure:"provider"`
	NatGeo   NatGeoConfig   `mapstructure:"natgeo"`
	Staging  StagingConfig  `mapstructure:"staging"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
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
	Path            string        `mapstructure:"path"`   // sqlite file
	DSNOverride     string        `mapstructure:"dsn"`    // postgres DSN
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		if c.DSNOverride != "" {
			return c.DSNOverride
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

type ProviderConfig struct {
	Name              string `mapstructure:"name"`
	DefaultRandomMode bool   `mapstructure:"default_random_mode"`
}

type NatGeoConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	TimeZone   string        `mapstructure:"time_zone"`
	FirstYear  int           `mapstructure:"first_year"`
}

type StagingConfig struct {
	Path string `mapstructure:"path"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // r2, s3, s3compatible; empty auto-detects
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type MirrorConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	RewriteURI bool          `mapstructure:"rewrite_uri"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Prefix     string        `mapstructure:"prefix"`
}

type ScheduleConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	ConnectivityURL  string        `mapstructure:"connectivity_url"`
	ConnectivityPoll time.Duration `mapstructure:"connectivity_poll"`
	BackoffInitial   time.Duration `mapstructure:"backoff_initial"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	RunTimeout       time.Duration `mapstructure:"run_timeout"`
	QueueSize        int           `mapstructure:"queue_size"`
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

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment knobs
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("natgeo.base_url", "NATGEO_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/natgeo.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("provider.name", "nationalgeographic")
	v.SetDefault("provider.default_random_mode", true)

	v.SetDefault("natgeo.base_url", "https://www.nationalgeographic.com/photography/photo-of-the-day")
	v.SetDefault("natgeo.user_agent", "natgeo-artwork/1.0")
	v.SetDefault("natgeo.timeout", 30*time.Second)
	v.SetDefault("natgeo.retry_count", 2)
	v.SetDefault("natgeo.rate_per_sec", 1.0)
	v.SetDefault("natgeo.time_zone", "America/New_York")
	v.SetDefault("natgeo.first_year", 2011)

	v.SetDefault("staging.path", "./data/staging")

	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "natgeo")

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.rewrite_uri", false)
	v.SetDefault("mirror.timeout", 60*time.Second)
	v.SetDefault("mirror.prefix", "artwork")

	v.SetDefault("schedule.interval", 24*time.Hour)
	v.SetDefault("schedule.connectivity_url", "https://www.nationalgeographic.com")
	v.SetDefault("schedule.connectivity_poll", 30*time.Second)
	v.SetDefault("schedule.backoff_initial", 30*time.Second)
	v.SetDefault("schedule.backoff_max", 5*time.Hour)
	v.SetDefault("schedule.max_attempts", 0)
	v.SetDefault("schedule.run_timeout", 10*time.Minute)
	v.SetDefault("schedule.queue_size", 16)
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Provider.Name == "" {
		return fmt.Errorf("provider: name is required")
	}
	if c.NatGeo.FirstYear <= 0 {
		return fmt.Errorf("natgeo: first_year must be positive")
	}
	if c.Mirror.Enabled && c.Storage.Endpoint == "" {
		return fmt.Errorf("mirror: storage.endpoint is required when mirror is enabled")
	}
	if c.Schedule.MaxAttempts < 0 {
		return fmt.Errorf("schedule: max_attempts must not be negative")
	}
	return nil
}
