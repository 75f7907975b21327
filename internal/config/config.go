package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	App           AppConfig          `yaml:"app"`
	HTTP          HTTPConfig         `yaml:"http"`
	Storage       StorageConfig      `yaml:"storage"`
	Backup        BackupConfig       `yaml:"backup"`
	Notifications NotificationConfig `yaml:"notifications"`
	Monitoring    MonitoringConfig   `yaml:"monitoring"`
	Logging       LoggingConfig      `yaml:"logging"`
	Technicians   TechniciansConfig  `yaml:"technicians"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port        int             `yaml:"port"`
	StaticDir   string          `yaml:"static_dir"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageSQLite   = "sqlite"
	StorageFailover = "failover"
)

type StorageConfig struct {
	// Driver is one of file, memory, redis, sqlite, failover.
	// failover writes to redis and falls back to the file mirror.
	Driver     string      `yaml:"driver"`
	Path       string      `yaml:"path"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Key      string `yaml:"key"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type NotificationConfig struct {
	OwnerEmail string         `yaml:"owner_email"`
	Email      EmailConfig    `yaml:"email"`
	Telegram   TelegramConfig `yaml:"telegram"`
}

type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	From         string `yaml:"from"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	OwnerChatID int64  `yaml:"owner_chat_id"`
	Debug       bool   `yaml:"debug"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type TechniciansConfig struct {
	Path string `yaml:"path"`
}

// Load reads configPath (YAML with ${VAR} expansion), applies defaults and
// environment overrides, then validates. A missing file at DefaultPath is
// not an error; the service then runs on defaults and environment only.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if configPath == "" {
		configPath = DefaultPath
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && configPath == DefaultPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port %d is out of range", c.HTTP.Port)
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Path == "" {
			return errors.New("storage path is required for the file driver")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage sqlite_path is required for the sqlite driver")
		}
	case StorageRedis, StorageFailover:
		if c.Storage.Redis.Address == "" {
			return fmt.Errorf("storage redis address is required for the %s driver", c.Storage.Driver)
		}
		if c.Storage.Driver == StorageFailover && c.Storage.Path == "" {
			return errors.New("storage path is required for the failover driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Notifications.Email.Enabled {
		e := c.Notifications.Email
		if e.ClientID == "" || e.ClientSecret == "" || e.RefreshToken == "" {
			return errors.New("email notifications require client_id, client_secret and refresh_token")
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "titan-booking"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.HTTP.RateLimit.RPS > 0 && c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = 5
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/bookings.json"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/bookings.db"
	}
	if c.Storage.Redis.Key == "" {
		c.Storage.Redis.Key = "titan:bookings"
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Technicians.Path == "" {
		c.Technicians.Path = "configs/technicians.yaml"
	}
}

// applyEnv overlays process environment on top of the file values.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BOOKINGS_FILE":       &c.Storage.Path,
		"STORAGE_DRIVER":      &c.Storage.Driver,
		"REDIS_ADDR":          &c.Storage.Redis.Address,
		"REDIS_PASSWORD":      &c.Storage.Redis.Password,
		"OWNER_EMAIL":         &c.Notifications.OwnerEmail,
		"EMAIL_FROM":          &c.Notifications.Email.From,
		"GMAIL_CLIENT_ID":     &c.Notifications.Email.ClientID,
		"GMAIL_CLIENT_SECRET": &c.Notifications.Email.ClientSecret,
		"GMAIL_REFRESH_TOKEN": &c.Notifications.Email.RefreshToken,
		"TELEGRAM_BOT_TOKEN":  &c.Notifications.Telegram.BotToken,
		"TECHNICIANS_PATH":    &c.Technicians.Path,
		"LOG_LEVEL":           &c.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.HTTP.Port = port
	}
	if v, ok := lookup("TELEGRAM_OWNER_CHAT_ID"); ok && strings.TrimSpace(v) != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_OWNER_CHAT_ID %q: %w", v, err)
		}
		c.Notifications.Telegram.OwnerChatID = id
	}
	if c.Notifications.Email.RefreshToken != "" && c.Notifications.Email.ClientID != "" {
		c.Notifications.Email.Enabled = true
	}

	return nil
}
