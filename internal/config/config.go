// ABOUTME: Configuration loading and parsing for turn-admin
// ABOUTME: Supports YAML or TOML files with environment variable expansion and overrides

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding field is left empty.
const (
	DefaultHTTPAddr        = "localhost:3000"
	DefaultCookieName      = "admin-auth-token"
	DefaultCredentialsPath = "data/users.json"
	DefaultServiceName     = "coturn"
	DefaultAdminBinary     = "turnadmin"
	DefaultServerBinary    = "turnserver"
	DefaultRelayLogFile    = "/var/log/turnserver.log"
	DefaultCommandTimeout  = 15 * time.Second
)

// Password modes for comparing a login secret with the stored one.
const (
	PasswordModePlaintext = "plaintext"
	PasswordModeBcrypt    = "bcrypt"
)

// Credential store backends.
const (
	CredentialsBackendFile   = "file"
	CredentialsBackendSQLite = "sqlite"
)

// Relay service controllers.
const (
	ControllerService   = "service"
	ControllerSystemctl = "systemctl"
)

// Config represents the complete turn-admin configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Tailscale   TailscaleConfig   `yaml:"tailscale" toml:"tailscale"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	Credentials CredentialsConfig `yaml:"credentials" toml:"credentials"`
	Turn        TurnConfig        `yaml:"turn" toml:"turn"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"` // serve on :443 with tailnet certs
}

// DatabaseConfig holds the audit database location. Empty disables auditing.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds session and login configuration
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret" toml:"jwt_secret"`
	CookieName   string `yaml:"cookie_name" toml:"cookie_name"`
	Production   bool   `yaml:"production" toml:"production"` // marks the session cookie Secure
	PasswordMode string `yaml:"password_mode" toml:"password_mode"`

	// LoginAttemptsPerMinute limits login attempts per client IP. Zero disables the limit.
	LoginAttemptsPerMinute int `yaml:"login_attempts_per_minute" toml:"login_attempts_per_minute"`
	LoginBurst             int `yaml:"login_burst" toml:"login_burst"`
}

// CredentialsConfig selects the administrator credential store
type CredentialsConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	Path    string `yaml:"path" toml:"path"`
}

// TurnConfig describes the managed relay and its tooling
type TurnConfig struct {
	Realm        string `yaml:"realm" toml:"realm"`
	ServiceName  string `yaml:"service_name" toml:"service_name"`
	Controller   string `yaml:"controller" toml:"controller"`
	UseSudo      bool   `yaml:"use_sudo" toml:"use_sudo"` // only for the systemctl controller
	AdminBinary  string `yaml:"admin_binary" toml:"admin_binary"`
	ServerBinary string `yaml:"server_binary" toml:"server_binary"`
	LogFile      string `yaml:"log_file" toml:"log_file"`

	CommandTimeout    time.Duration `yaml:"-" toml:"-"`
	CommandTimeoutRaw string        `yaml:"command_timeout" toml:"command_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	Format     string `yaml:"format" toml:"format"`
	File       string `yaml:"file" toml:"file"` // rotated log file, stdout when empty
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then the
// well-known environment overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(&cfg)
}

// FromEnv builds a Config purely from defaults and environment overrides.
// Used when no configuration file exists.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides lets the process environment override file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTH_COOKIE_NAME"); v != "" {
		cfg.Auth.CookieName = v
	}
	if v := os.Getenv("TURN_ADMIN_ENV"); v != "" {
		cfg.Auth.Production = strings.EqualFold(v, "production")
	}
	if v := os.Getenv("REALM"); v != "" {
		cfg.Turn.Realm = v
	}
	if v := os.Getenv("USER_DB_PATH"); v != "" {
		cfg.Credentials.Path = v
	}
	if v := os.Getenv("TURN_ADMIN_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" && !cfg.Tailscale.Enabled {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = DefaultCookieName
	}
	if cfg.Auth.PasswordMode == "" {
		cfg.Auth.PasswordMode = PasswordModePlaintext
	}
	if cfg.Auth.LoginAttemptsPerMinute > 0 && cfg.Auth.LoginBurst <= 0 {
		cfg.Auth.LoginBurst = cfg.Auth.LoginAttemptsPerMinute
	}
	if cfg.Credentials.Backend == "" {
		cfg.Credentials.Backend = CredentialsBackendFile
	}
	if cfg.Credentials.Path == "" && cfg.Credentials.Backend == CredentialsBackendFile {
		cfg.Credentials.Path = DefaultCredentialsPath
	}
	if cfg.Turn.ServiceName == "" {
		cfg.Turn.ServiceName = DefaultServiceName
	}
	if cfg.Turn.Controller == "" {
		cfg.Turn.Controller = ControllerService
	}
	if cfg.Turn.AdminBinary == "" {
		cfg.Turn.AdminBinary = DefaultAdminBinary
	}
	if cfg.Turn.ServerBinary == "" {
		cfg.Turn.ServerBinary = DefaultServerBinary
	}
	if cfg.Turn.LogFile == "" {
		cfg.Turn.LogFile = DefaultRelayLogFile
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (or set JWT_SECRET)")
	}

	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Auth.PasswordMode {
	case PasswordModePlaintext, PasswordModeBcrypt:
	default:
		return fmt.Errorf("auth.password_mode must be %q or %q, got %q", PasswordModePlaintext, PasswordModeBcrypt, c.Auth.PasswordMode)
	}

	if c.Auth.LoginAttemptsPerMinute < 0 {
		return fmt.Errorf("auth.login_attempts_per_minute must not be negative")
	}

	switch c.Credentials.Backend {
	case CredentialsBackendFile, CredentialsBackendSQLite:
	default:
		return fmt.Errorf("credentials.backend must be %q or %q, got %q", CredentialsBackendFile, CredentialsBackendSQLite, c.Credentials.Backend)
	}
	if c.Credentials.Backend == CredentialsBackendSQLite && c.Credentials.Path == "" && c.Database.Path == "" {
		return fmt.Errorf("credentials.path or database.path is required for the sqlite credential backend")
	}

	switch c.Turn.Controller {
	case ControllerService, ControllerSystemctl:
	default:
		return fmt.Errorf("turn.controller must be %q or %q, got %q", ControllerService, ControllerSystemctl, c.Turn.Controller)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	cfg.Turn.CommandTimeout = DefaultCommandTimeout
	if cfg.Turn.CommandTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Turn.CommandTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing command_timeout %q: %w", cfg.Turn.CommandTimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("command_timeout must be positive, got %s", d)
		}
		cfg.Turn.CommandTimeout = d
	}
	return nil
}
