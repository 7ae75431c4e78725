// Package config loads the bridge's settings: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.sr.ht/~jakintosh/ssobridge/pkg/ssotoken"
)

type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	SSO       SSOConfig       `yaml:"sso"`
	Admin     AdminConfig     `yaml:"admin"`
	Session   SessionConfig   `yaml:"session"`
	Nonce     NonceConfig     `yaml:"nonce"`
	Log       LogConfig       `yaml:"log"`
	Templates TemplatesConfig `yaml:"templates"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsEnabled  bool          `yaml:"metrics_enabled"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SSOConfig struct {
	Secret          string   `yaml:"secret"`
	CPURL           string   `yaml:"cp_url"`
	ProjectPublicID string   `yaml:"project_public_id"`
	RefreshCookie   string   `yaml:"refresh_cookie"`
	AdminPath       string   `yaml:"admin_path"`
	StorageKeys     []string `yaml:"storage_keys"`
	// TokenLifetime is the longest control plane token lifetime accepted.
	TokenLifetime time.Duration `yaml:"token_lifetime"`
}

type AdminConfig struct {
	Email          string `yaml:"email"`
	FirstName      string `yaml:"first_name"`
	LastName       string `yaml:"last_name"`
	SuperAdminRole string `yaml:"super_admin_role"`
}

type SessionConfig struct {
	SigningKeyPath  string        `yaml:"signing_key_path"`
	IssuerDomain    string        `yaml:"issuer_domain"`
	RefreshLifetime time.Duration `yaml:"refresh_lifetime"`
	AccessLifetime  time.Duration `yaml:"access_lifetime"`
	SweepSchedule   string        `yaml:"sweep_schedule"`
}

const (
	NonceModeMemory   = "memory"
	NonceModeInterval = "interval"
	NonceModeRedis    = "redis"
)

type NonceConfig struct {
	Mode          string        `yaml:"mode"`
	Retention     time.Duration `yaml:"retention"`
	ClearInterval time.Duration `yaml:"clear_interval"`
	RedisURL      string        `yaml:"redis_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:            "1337",
			ShutdownTimeout: 15 * time.Second,
			MetricsEnabled:  true,
		},
		Database: DatabaseConfig{
			Path: "ssobridge.db",
		},
		SSO: SSOConfig{
			RefreshCookie: "admin_refresh",
			AdminPath:     "/admin",
			StorageKeys: []string{
				"jwtToken",
				"sso_cp_url",
				"sso_login_url",
				"nps_survey_settings",
			},
			TokenLifetime: ssotoken.DefaultLifetime,
		},
		Admin: AdminConfig{
			FirstName:      "Admin",
			SuperAdminRole: "super-admin",
		},
		Session: SessionConfig{
			IssuerDomain:    "ssobridge.local",
			RefreshLifetime: 30 * 24 * time.Hour,
			AccessLifetime:  30 * time.Minute,
			SweepSchedule:   "@hourly",
		},
		Nonce: NonceConfig{
			Mode:          NonceModeMemory,
			Retention:     30*time.Second + 5*time.Minute,
			ClearInterval: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty), and the process environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(
	path string,
	lookup func(string) (string, bool),
) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %v", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %v", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	setString := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	setString("ENV", &c.Env)
	setString("PORT", &c.Server.Port)
	setString("DB_PATH", &c.Database.Path)
	setString("SSO_SECRET", &c.SSO.Secret)
	setString("SSO_CP_URL", &c.SSO.CPURL)
	setString("SSO_PROJECT_PUBLIC_ID", &c.SSO.ProjectPublicID)
	setString("REFRESH_COOKIE", &c.SSO.RefreshCookie)
	setString("CM_ADMIN_EMAIL", &c.Admin.Email)
	setString("CM_ADMIN_LAST_NAME", &c.Admin.LastName)
	setString("SIGNING_KEY_PATH", &c.Session.SigningKeyPath)
	setString("NONCE_MODE", &c.Nonce.Mode)
	setString("REDIS_URL", &c.Nonce.RedisURL)
	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)
	setString("TEMPLATE_DIR", &c.Templates.Dir)

	// an empty first name still falls back to the default
	if v, ok := lookup("CM_ADMIN_FIRST_NAME"); ok && v != "" {
		c.Admin.FirstName = v
	}

	if v, ok := lookup("METRICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env var 'METRICS_ENABLED' could not be parsed as bool (%q)", v)
		}
		c.Server.MetricsEnabled = b
	}

	if v, ok := lookup("NONCE_RETENTION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("env var 'NONCE_RETENTION' could not be parsed as duration (%q)", v)
		}
		c.Nonce.Retention = d
	}

	return nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Nonce.Mode {
	case NonceModeMemory, NonceModeInterval:
	case NonceModeRedis:
		if c.Nonce.RedisURL == "" {
			return fmt.Errorf("nonce mode '%s' requires a redis url", c.Nonce.Mode)
		}
	default:
		return fmt.Errorf("unknown nonce mode '%s'", c.Nonce.Mode)
	}

	if c.SSO.TokenLifetime <= 0 {
		return fmt.Errorf("sso token lifetime must be positive")
	}
	// a nonce must outlive every token that can carry it
	window := c.SSO.TokenLifetime + ssotoken.ClockSkew
	if c.Nonce.Retention < window {
		return fmt.Errorf("nonce retention must be at least %s", window)
	}
	if c.Nonce.Mode == NonceModeInterval && c.Nonce.ClearInterval < window {
		return fmt.Errorf("nonce clear interval must be at least %s", window)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.SSO.RefreshCookie == "" {
		return fmt.Errorf("refresh cookie name is required")
	}
	if !strings.HasPrefix(c.SSO.AdminPath, "/") {
		return fmt.Errorf("admin path must start with '/'")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SSOEnabled reports whether the callback can verify tokens at all.
func (c *Config) SSOEnabled() bool {
	return c.SSO.Secret != ""
}
