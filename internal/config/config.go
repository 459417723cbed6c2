// Package config loads server configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	Storage   StorageConfig   `yaml:"storage"`
	Templates TemplatesConfig `yaml:"templates"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	BaseURL         string        `yaml:"base_url"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// DSN is a SQLite path or a MySQL DSN (user:pass@tcp(host:port)/db).
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret                string        `yaml:"jwt_secret"`
	CookieSecret             string        `yaml:"cookie_secret"`
	SessionTTL               time.Duration `yaml:"session_ttl"`
	ResetTokenTTL            time.Duration `yaml:"reset_token_ttl"`
	RequireEmailConfirmation bool          `yaml:"require_email_confirmation"`
}

type MailConfig struct {
	Provider string `yaml:"provider"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type StorageConfig struct {
	UploadDir string `yaml:"upload_dir"`
	// PublicPath is the URL prefix uploads are served under.
	PublicPath  string `yaml:"public_path"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type TemplatesConfig struct {
	Dir       string `yaml:"dir"`
	StaticDir string `yaml:"static_dir"`
	Watch     bool   `yaml:"watch"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			BaseURL:         "http://localhost:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{DSN: "data/carsaiplay.db"},
		Auth: AuthConfig{
			SessionTTL:               7 * 24 * time.Hour,
			ResetTokenTTL:            time.Hour,
			RequireEmailConfirmation: true,
		},
		Mail:      MailConfig{Provider: "console"},
		Storage:   StorageConfig{UploadDir: "data/uploads", PublicPath: "/uploads/", MaxUploadMB: 10},
		Templates: TemplatesConfig{Dir: "templates", StaticDir: "static"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads path (if non-empty and present) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.BaseURL, "BASE_URL")
	setString(&c.Database.DSN, "DB_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.CookieSecret, "COOKIE_SECRET")
	setString(&c.Mail.Provider, "MAIL_PROVIDER")
	setString(&c.Mail.Host, "SMTP_HOST")
	setString(&c.Mail.Port, "SMTP_PORT")
	setString(&c.Mail.User, "SMTP_USER")
	setString(&c.Mail.Password, "SMTP_PASSWORD")
	setString(&c.Mail.From, "SMTP_FROM")
	setString(&c.Storage.UploadDir, "UPLOAD_DIR")
	setString(&c.Templates.Dir, "TEMPLATES_DIR")
	setString(&c.Templates.StaticDir, "STATIC_DIR")
	setString(&c.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		c.Auth.SessionTTL = d
	}
	if err := setBool(&c.Auth.RequireEmailConfirmation, "REQUIRE_EMAIL_CONFIRMATION"); err != nil {
		return err
	}
	return setBool(&c.Templates.Watch, "TEMPLATES_WATCH")
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.Auth.CookieSecret == "" {
		c.Auth.CookieSecret = c.Auth.JWTSecret
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if !strings.HasSuffix(c.Storage.PublicPath, "/") {
		c.Storage.PublicPath += "/"
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
