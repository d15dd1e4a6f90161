package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database          DatabaseConfig   `json:"database"`
	JWTSecret         string           `json:"jwt_secret"`
	Port              int              `json:"port"`
	BaseURL           string           `json:"base_url"`
	UploadMaxBytes    int64            `json:"upload_max_bytes"`
	AccessRateLimitMs int64            `json:"access_rate_limit_ms"`
	CORSAllowlist     []string         `json:"cors_allowlist"`
	LogConfig         logger.LogConfig `json:"log_config"`
	FileStore         FileStoreConfig  `json:"file_store"`
	Share             ShareConfig      `json:"share"`
	Cleanup           CleanupConfig    `json:"cleanup"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ShareConfig is the issuance and access policy for share links.
type ShareConfig struct {
	PasswordMinLength  int `json:"password_min_length"`
	PasswordMaxLength  int `json:"password_max_length"`
	TokenBytes         int `json:"token_bytes"`
	IssueAttempts      int `json:"issue_attempts"`
	BcryptCost         int `json:"bcrypt_cost"`
	VerifyConcurrency  int `json:"verify_concurrency"`
	DownloadURLTTLSec  int `json:"download_url_ttl_sec"`
	FileCacheSize      int `json:"file_cache_size"`
	FileCacheTTLSecond int `json:"file_cache_ttl_sec"`
}

// CleanupConfig drives the retention job for long-expired links.
// RetainDays == 0 keeps expired links forever.
type CleanupConfig struct {
	Spec       string `json:"spec"`
	RetainDays int    `json:"retain_days"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	minTokenBytes = 16
)

func (cfg *Config) AccessRateLimit() time.Duration {
	return time.Duration(cfg.AccessRateLimitMs) * time.Millisecond
}

func (c ShareConfig) DownloadURLTTL() time.Duration {
	return time.Duration(c.DownloadURLTTLSec) * time.Second
}

func (c ShareConfig) FileCacheTTL() time.Duration {
	return time.Duration(c.FileCacheTTLSecond) * time.Second
}

func DefaultShareConfig() ShareConfig {
	cfg := ShareConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ShareConfig) applyDefaults() {
	if c.PasswordMinLength == 0 {
		c.PasswordMinLength = 4
	}
	if c.PasswordMaxLength == 0 {
		c.PasswordMaxLength = 50
	}
	if c.TokenBytes == 0 {
		c.TokenBytes = 32
	}
	if c.IssueAttempts == 0 {
		c.IssueAttempts = 3
	}
	if c.VerifyConcurrency == 0 {
		c.VerifyConcurrency = runtime.NumCPU()
	}
	if c.DownloadURLTTLSec == 0 {
		c.DownloadURLTTLSec = 300
	}
	if c.FileCacheSize == 0 {
		c.FileCacheSize = 1024
	}
	if c.FileCacheTTLSecond == 0 {
		c.FileCacheTTLSecond = 60
	}
}

func (c *ShareConfig) validate() error {
	if c.PasswordMinLength < 1 {
		return fmt.Errorf("share.password_min_length must be positive")
	}
	if c.PasswordMaxLength < c.PasswordMinLength {
		return fmt.Errorf("share.password_max_length must not be less than password_min_length")
	}
	if c.TokenBytes < minTokenBytes {
		return fmt.Errorf("share.token_bytes must be at least %d", minTokenBytes)
	}
	if c.IssueAttempts < 1 {
		return fmt.Errorf("share.issue_attempts must be positive")
	}
	if c.VerifyConcurrency < 1 {
		return fmt.Errorf("share.verify_concurrency must be positive")
	}
	return nil
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case DriverSQLite:
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.UploadMaxBytes == 0 {
		cfg.UploadMaxBytes = 100 * 1024 * 1024
	}
	if cfg.AccessRateLimitMs < 0 {
		return fmt.Errorf("access_rate_limit_ms must not be negative")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	cfg.FileStore.Type = strings.ToLower(strings.TrimSpace(cfg.FileStore.Type))
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type != "local" && cfg.FileStore.Type != "s3" {
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if cfg.FileStore.Data == nil {
		return fmt.Errorf("file_store.data is required")
	}
	cfg.Share.applyDefaults()
	if err := cfg.Share.validate(); err != nil {
		return err
	}
	if cfg.Cleanup.Spec == "" {
		cfg.Cleanup.Spec = "0 3 * * *"
	}
	if cfg.Cleanup.RetainDays < 0 {
		return fmt.Errorf("cleanup.retain_days must not be negative")
	}
	return nil
}
