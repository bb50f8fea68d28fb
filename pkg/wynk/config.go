package wynk

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	wynkerrors "github.com/wynkjs/wynk/internal/errors"
)

// Config is the application configuration, loaded from wynk.yaml and
// WYNK_-prefixed environment variables.
type Config struct {
	Env         string            `mapstructure:"env"`
	Server      ServerConfig      `mapstructure:"server"`
	Compression CompressionConfig `mapstructure:"compression"`
	Validation  ValidationConfig  `mapstructure:"validation"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Cache       CacheConfig       `mapstructure:"cache"`
}

// ServerConfig holds listener settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Adapter         string        `mapstructure:"adapter"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	GlobalPrefix    string        `mapstructure:"global_prefix"`
}

// CompressionConfig configures the response compression hook
type CompressionConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Threshold     int      `mapstructure:"threshold"`
	Encodings     []string `mapstructure:"encodings"`
	GzipLevel     int      `mapstructure:"gzip_level"`
	BrotliQuality int      `mapstructure:"brotli_quality"`
	DeflateLevel  int      `mapstructure:"deflate_level"`
}

// ValidationConfig selects the validation error formatter
type ValidationConfig struct {
	Formatter string `mapstructure:"formatter"`
}

// AuthConfig configures the JWT guard
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RateLimitConfig configures the rate limiting middleware
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// CacheConfig configures the response cache interceptor. A zero TTL disables it.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			Adapter:         "echo",
			ShutdownTimeout: 30 * time.Second,
		},
		Compression: CompressionConfig{
			Enabled:       true,
			Threshold:     1024,
			Encodings:     []string{"gzip", "br", "deflate"},
			GzipLevel:     -1,
			BrotliQuality: 6,
			DeflateLevel:  -1,
		},
		Validation: ValidationConfig{Formatter: "default"},
		RateLimit:  RateLimitConfig{RPS: 10, Burst: 20},
	}
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Addr returns host:port for the listener
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// LoadConfig reads configuration from path, or from wynk.yaml in the working
// directory when path is empty. A missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wynk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WYNK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, wynkerrors.WrapConfigurationError(v.ConfigFileUsed(), "read", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, wynkerrors.WrapConfigurationError("wynk", "decode", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by decoding
func (c *Config) Validate() error {
	switch strings.ToLower(c.Server.Adapter) {
	case "echo", "gin", "fiber":
	default:
		return fmt.Errorf("%w: server.adapter must be echo, gin or fiber, got %q", ErrConfiguration, c.Server.Adapter)
	}
	if c.Server.GlobalPrefix != "" && !strings.HasPrefix(c.Server.GlobalPrefix, "/") {
		return fmt.Errorf("%w: server.global_prefix must start with '/', got %q", ErrConfiguration, c.Server.GlobalPrefix)
	}
	if _, err := FormatterByName(c.Validation.Formatter); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if c.Compression.Threshold < 0 {
		return fmt.Errorf("%w: compression.threshold must not be negative", ErrConfiguration)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("env", d.Env)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.adapter", d.Server.Adapter)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.global_prefix", d.Server.GlobalPrefix)
	v.SetDefault("compression.enabled", d.Compression.Enabled)
	v.SetDefault("compression.threshold", d.Compression.Threshold)
	v.SetDefault("compression.encodings", d.Compression.Encodings)
	v.SetDefault("compression.gzip_level", d.Compression.GzipLevel)
	v.SetDefault("compression.brotli_quality", d.Compression.BrotliQuality)
	v.SetDefault("compression.deflate_level", d.Compression.DeflateLevel)
	v.SetDefault("validation.formatter", d.Validation.Formatter)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("ratelimit.rps", d.RateLimit.RPS)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.ttl", d.Cache.TTL)
}
