package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Log        LogConfig       `mapstructure:"log"`
	Tracing    TracingConfig   `mapstructure:"tracing"`
	CORS       CORSConfig      `mapstructure:"cors"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// AssessmentConfig points at the authoritative Assessment Service.
type AssessmentConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// ForwardToken passes the caller's bearer token through to the service.
	ForwardToken bool   `mapstructure:"forward_token"`
	ServiceToken string `mapstructure:"service_token"`
}

type EngineConfig struct {
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	RedirectSeconds   int           `mapstructure:"redirect_seconds"`
	MaxSubmitAttempts int           `mapstructure:"max_submit_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	SkewTolerance     time.Duration `mapstructure:"skew_tolerance"`
	SessionIdleTTL    time.Duration `mapstructure:"session_idle_ttl"`
}

// CacheConfig selects the advisory recovery cache backend: memory, redis or mysql.
type CacheConfig struct {
	Type string        `mapstructure:"type"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

// LogConfig controls the rotated JSON log file. An empty Level follows
// server.mode: debug in debug mode, info otherwise.
type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type StorageConfig struct {
	Type          string        `mapstructure:"type"`
	PublicPrefix  string        `mapstructure:"public_prefix"`
	MinioEndpoint string        `mapstructure:"minio_endpoint"`
	MinioAccessID string        `mapstructure:"minio_access_key"`
	MinioSecret   string        `mapstructure:"minio_secret_key"`
	MinioBucket   string        `mapstructure:"minio_bucket"`
	MinioSecure   bool          `mapstructure:"minio_secure"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	ServiceName       string  `mapstructure:"service_name"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheMySQL  = "mysql"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("assessment.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("assessment.timeout", 10*time.Second)
	v.SetDefault("assessment.forward_token", true)

	v.SetDefault("engine.tick_interval", time.Second)
	v.SetDefault("engine.redirect_seconds", 30)
	v.SetDefault("engine.max_submit_attempts", 3)
	v.SetDefault("engine.retry_backoff", time.Second)
	v.SetDefault("engine.skew_tolerance", 5*time.Second)
	v.SetDefault("engine.session_idle_ttl", 2*time.Hour)

	v.SetDefault("cache.type", CacheMemory)
	v.SetDefault("cache.ttl", 6*time.Hour)

	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("log.file", "logs/attemptd.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.public_prefix", "/uploads/")
	v.SetDefault("storage.presign_expiry", time.Hour)

	v.SetDefault("tracing.service_name", "testwise-attemptd")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

// LoadConfig reads config.yaml from path, overlaid with TESTWISE_* environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TESTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("assessment.service_token", "ASSESSMENT_SERVICE_TOKEN")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Assessment.BaseURL == "" {
		return fmt.Errorf("assessment.base_url is required")
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tick_interval must be positive, got %s", c.Engine.TickInterval)
	}
	if c.Engine.MaxSubmitAttempts < 1 {
		return fmt.Errorf("engine.max_submit_attempts must be at least 1, got %d", c.Engine.MaxSubmitAttempts)
	}
	if c.Engine.RedirectSeconds < 0 {
		return fmt.Errorf("engine.redirect_seconds must not be negative")
	}
	switch c.Cache.Type {
	case CacheMemory, CacheRedis, CacheMySQL:
	default:
		return fmt.Errorf("unknown cache.type %q", c.Cache.Type)
	}
	if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %g", r)
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	return nil
}

// RedirectAfter is the post-completion redirect delay.
func (e EngineConfig) RedirectAfter() time.Duration {
	return time.Duration(e.RedirectSeconds) * time.Second
}
