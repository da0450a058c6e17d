package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Dashboard DashboardConfig
	Logger    LoggerConfig
	Security  SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig locates the static inputs. AliasFile and RatesFile are optional
// YAML overrides for the built-in region alias and exchange-rate tables.
type DataConfig struct {
	PriceCSV     string
	PurchaseCSV  string
	BoundaryFile string
	NameProperty string
	AliasFile    string
	RatesFile    string
	LoadTimeout  time.Duration
}

type DashboardConfig struct {
	TopStates int
	Month     string
}

type LoggerConfig struct {
	Level     string
	Format    string
	AddSource bool
}

type SecurityConfig struct {
	EnableRateLimit      bool
	RateLimitRPS         int
	RateLimitBurst       int
	// Stream limits apply to /sse/* only. Zero falls back to the general limits.
	StreamRateLimitRPS   int
	StreamRateLimitBurst int
	AllowedOrigins       []string
	TrustedProxies       []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			PriceCSV:     getEnvString("DATA_PRICE_CSV", "historical_silver_price.csv"),
			PurchaseCSV:  getEnvString("DATA_PURCHASE_CSV", "state_wise_silver_purchased_kg.csv"),
			BoundaryFile: getEnvString("DATA_BOUNDARY_FILE", "india_states.geojson"),
			NameProperty: getEnvString("DATA_NAME_PROPERTY", "NAME_1"),
			AliasFile:    getEnvString("DATA_ALIAS_FILE", ""),
			RatesFile:    getEnvString("DATA_RATES_FILE", ""),
			LoadTimeout:  getEnvDuration("DATA_LOAD_TIMEOUT", 30*time.Second),
		},
		Dashboard: DashboardConfig{
			TopStates: getEnvInt("DASHBOARD_TOP_STATES", 5),
			Month:     getEnvString("DASHBOARD_MONTH", "Jan"),
		},
		Logger: LoggerConfig{
			Level:     getEnvString("LOG_LEVEL", "info"),
			Format:    getEnvString("LOG_FORMAT", "json"),
			AddSource: getEnvBool("LOG_ADD_SOURCE", false),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),

			StreamRateLimitRPS:   getEnvInt("SECURITY_STREAM_RATE_LIMIT_RPS", 20),
			StreamRateLimitBurst: getEnvInt("SECURITY_STREAM_RATE_LIMIT_BURST", 5),
			AllowedOrigins:       getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:       getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	for name, path := range map[string]string{
		"price CSV":     c.Data.PriceCSV,
		"purchase CSV":  c.Data.PurchaseCSV,
		"boundary file": c.Data.BoundaryFile,
	} {
		if path == "" {
			return fmt.Errorf("%s path cannot be empty", name)
		}
	}

	if c.Data.NameProperty == "" {
		return fmt.Errorf("boundary name property cannot be empty")
	}

	if c.Data.LoadTimeout <= 0 {
		return fmt.Errorf("data load timeout must be positive")
	}

	if c.Dashboard.TopStates <= 0 {
		return fmt.Errorf("top states count must be positive, got %d", c.Dashboard.TopStates)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Security.StreamRateLimitRPS < 0 || c.Security.StreamRateLimitBurst < 0 {
		return fmt.Errorf("stream rate limit cannot be negative")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
