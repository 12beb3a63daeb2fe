package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config 应用配置结构
type Config struct {
	// 环境配置
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	Port        string `env:"PORT" env-default:"3000"`

	// 数据库配置
	UseMemoryDB bool   `env:"USE_MEMORY_DB" env-default:"false"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// JWT配置
	JWTSecret string        `env:"JWT_SECRET" env-default:"your-secret-key-change-in-production"`
	JWTTTL    time.Duration `env:"JWT_TTL" env-default:"168h"`

	BcryptCost int `env:"BCRYPT_COST" env-default:"10"`

	// CORS配置
	AllowedOrigins       []string      `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	CORSAllowCredentials bool          `env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	CORSMaxAge           time.Duration `env:"CORS_MAX_AGE" env-default:"5m"`

	// 日志与调试
	LogLevel string `env:"LOG_LEVEL" env-default:"INFO"`
	Debug    bool   `env:"DEBUG" env-default:"false"`

	// 请求限制
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"25s"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" env-default:"1048576"`
}

// LoadConfig 加载配置：先叠加 .env 文件，再由环境变量解析
func LoadConfig() (*Config, error) {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development" // 默认开发环境
	}

	// 按环境加载对应的 .env 文件
	envFile := ".env.local"
	if env == "production" {
		envFile = ".env.production"
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read env: %w", err)
	}

	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}

	// 生产环境关闭调试
	if cfg.IsProduction() {
		cfg.Debug = false
	}

	return &cfg, nil
}

// Cached config (initialized once per process)
var (
	cachedConfig *Config
	cachedErr    error
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
func GetCached() (*Config, error) {
	configOnce.Do(func() {
		cachedConfig, cachedErr = LoadConfig()
	})
	return cachedConfig, cachedErr
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if (c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret) && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	if !c.UseMemoryDB && c.PostgresDSN == "" {
		return fmt.Errorf("database is not configured: set POSTGRES_DSN or USE_MEMORY_DB")
	}

	return nil
}

// UsesDefaultSecret reports whether the JWT secret was left at its placeholder.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

// AllowsAnyOrigin reports whether ALLOWED_ORIGINS is empty or contains "*".
func (c *Config) AllowsAnyOrigin() bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// loadEnvFile 加载 .env 文件到环境变量，已存在的变量不会被覆盖；文件不存在时忽略
func loadEnvFile(filename string) error {
	if err := godotenv.Load(filename); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", filename, err)
	}
	return nil
}
