package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/scrcr/scrcr-server/pkg/observability"
	"gopkg.in/yaml.v3"
)

// Environment names recognized by Validate
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	// Environment is one of development, production, test
	Environment string

	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Auth configuration
	Auth AuthConfig

	// Audit configuration
	Audit AuditConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string

	// StaticDir holds the built front end served on page routes
	StaticDir string

	// CORS origins allowed to call the API with credentials
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	PingTimeout time.Duration
}

// AuthConfig holds authentication and lockout policy configuration
type AuthConfig struct {
	// Secret signs session tokens. Mandatory outside the test environment.
	Secret string

	TokenTTL         time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration

	// VerifyTimeout bounds the gatekeeper's session verification
	VerifyTimeout time.Duration
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	RetentionDays int
	// PruneSchedule is a cron expression for the retention job
	PruneSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from the optional YAML file named by
// SCRCR_CONFIG_FILE, then overrides from environment variables, then
// validates the result.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("SCRCR_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
			StaticDir:       "./web/dist",
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConns:    25,
			MinConns:    5,
			PingTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:         24 * time.Hour,
			LockoutThreshold: 5,
			LockoutDuration:  30 * time.Minute,
			VerifyTimeout:    3 * time.Second,
		},
		Audit: AuditConfig{
			RetentionDays: 90,
			PruneSchedule: "0 3 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "scrcr-server",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// fileConfig mirrors Config for the YAML overlay; only set fields override
type fileConfig struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host           string   `yaml:"host"`
		Port           string   `yaml:"port"`
		HealthPort     string   `yaml:"health_port"`
		StaticDir      string   `yaml:"static_dir"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Database struct {
		URL      string `yaml:"url"`
		MaxConns int    `yaml:"max_conns"`
		MinConns int    `yaml:"min_conns"`
	} `yaml:"database"`
	Auth struct {
		TokenTTL         string `yaml:"token_ttl"`
		LockoutThreshold int    `yaml:"lockout_threshold"`
		LockoutDuration  string `yaml:"lockout_duration"`
	} `yaml:"auth"`
	Audit struct {
		RetentionDays int    `yaml:"retention_days"`
		PruneSchedule string `yaml:"prune_schedule"`
	} `yaml:"audit"`
	Observability struct {
		LogLevel    string `yaml:"log_level"`
		OTelEnabled *bool  `yaml:"otel_enabled"`
	} `yaml:"observability"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	if fc.Environment != "" {
		c.Environment = fc.Environment
	}
	if fc.Server.Host != "" {
		c.Server.Host = fc.Server.Host
	}
	if fc.Server.Port != "" {
		c.Server.Port = fc.Server.Port
	}
	if fc.Server.HealthPort != "" {
		c.Server.HealthPort = fc.Server.HealthPort
	}
	if fc.Server.StaticDir != "" {
		c.Server.StaticDir = fc.Server.StaticDir
	}
	if len(fc.Server.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = fc.Server.AllowedOrigins
	}
	if fc.Database.URL != "" {
		c.Database.URL = fc.Database.URL
	}
	if fc.Database.MaxConns > 0 {
		c.Database.MaxConns = fc.Database.MaxConns
	}
	if fc.Database.MinConns > 0 {
		c.Database.MinConns = fc.Database.MinConns
	}
	if fc.Auth.TokenTTL != "" {
		d, err := time.ParseDuration(fc.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("invalid auth.token_ttl: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	if fc.Auth.LockoutThreshold > 0 {
		c.Auth.LockoutThreshold = fc.Auth.LockoutThreshold
	}
	if fc.Auth.LockoutDuration != "" {
		d, err := time.ParseDuration(fc.Auth.LockoutDuration)
		if err != nil {
			return fmt.Errorf("invalid auth.lockout_duration: %w", err)
		}
		c.Auth.LockoutDuration = d
	}
	if fc.Audit.RetentionDays > 0 {
		c.Audit.RetentionDays = fc.Audit.RetentionDays
	}
	if fc.Audit.PruneSchedule != "" {
		c.Audit.PruneSchedule = fc.Audit.PruneSchedule
	}
	if fc.Observability.LogLevel != "" {
		c.Observability.LogLevel = observability.ParseLevel(fc.Observability.LogLevel)
	}
	if fc.Observability.OTelEnabled != nil {
		c.Observability.OTelEnabled = *fc.Observability.OTelEnabled
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("SCRCR_ENV", c.Environment)

	c.Server.Host = getEnv("SCRCR_HOST", c.Server.Host)
	c.Server.Port = getEnv("SCRCR_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SCRCR_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SCRCR_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SCRCR_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SCRCR_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.HealthPort = getEnv("SCRCR_HEALTH_PORT", c.Server.HealthPort)
	c.Server.StaticDir = getEnv("SCRCR_STATIC_DIR", c.Server.StaticDir)
	if origins := getEnv("SCRCR_ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	c.Database.URL = getEnv("SCRCR_POSTGRES_URL", c.Database.URL)
	c.Database.MaxConns = getEnvInt("SCRCR_POSTGRES_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvInt("SCRCR_POSTGRES_MIN_CONNS", c.Database.MinConns)
	c.Database.PingTimeout = getEnvDuration("SCRCR_POSTGRES_TIMEOUT", c.Database.PingTimeout)

	c.Auth.Secret = getEnv("SCRCR_AUTH_SECRET", c.Auth.Secret)
	c.Auth.TokenTTL = getEnvDuration("SCRCR_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.LockoutThreshold = getEnvInt("SCRCR_LOCKOUT_THRESHOLD", c.Auth.LockoutThreshold)
	c.Auth.LockoutDuration = getEnvDuration("SCRCR_LOCKOUT_DURATION", c.Auth.LockoutDuration)
	c.Auth.VerifyTimeout = getEnvDuration("SCRCR_VERIFY_TIMEOUT", c.Auth.VerifyTimeout)

	c.Audit.RetentionDays = getEnvInt("SCRCR_AUDIT_RETENTION_DAYS", c.Audit.RetentionDays)
	c.Audit.PruneSchedule = getEnv("SCRCR_AUDIT_PRUNE_SCHEDULE", c.Audit.PruneSchedule)

	if level := getEnv("SCRCR_LOG_LEVEL", ""); level != "" {
		c.Observability.LogLevel = observability.ParseLevel(level)
	}
	c.Observability.MetricsEnabled = getEnvBool("SCRCR_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("SCRCR_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("SCRCR_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("SCRCR_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("SCRCR_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("SCRCR_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("invalid environment: %s (must be development, production, or test)", c.Environment)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	// The signing secret has no default. Refusing to start beats silently
	// minting tokens anyone can forge.
	if c.Auth.Secret == "" && c.Environment != EnvTest {
		return fmt.Errorf("SCRCR_AUTH_SECRET is required in the %s environment", c.Environment)
	}

	if c.Auth.LockoutThreshold < 1 {
		return fmt.Errorf("lockout threshold must be at least 1")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// IsProduction reports whether the server runs with production hardening
// (Secure cookies, SameSite=Strict)
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
