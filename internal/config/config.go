package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aman-churiwal/quota-gate/internal/ratelimit"
)

const defaultCacheInvalidateTTL = 3600

type Config struct {
	Server    ServerConfig    `json:"server"`
	Redis     RedisConfig     `json:"redis"`
	Postgres  PostgresConfig  `json:"postgres"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret"`
	ExpiryHours int    `json:"expiry_hours"`
}

type RateLimitConfig struct {
	Namespace string `json:"namespace"`
	// Seconds a cached plan assignment stays valid. Omitted means 3600;
	// zero or negative disables caching entirely.
	CacheInvalidateTTL *int                      `json:"cache_invalidate_ttl"`
	Plans              map[string]ratelimit.Plan `json:"plans"`
}

// CacheTTL resolves the configured invalidation window to a duration.
func (r RateLimitConfig) CacheTTL() time.Duration {
	if r.CacheInvalidateTTL == nil {
		return defaultCacheInvalidateTTL * time.Second
	}
	if *r.CacheInvalidateTTL <= 0 {
		return 0
	}
	return time.Duration(*r.CacheInvalidateTTL) * time.Second
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	// Secrets come from the environment when set, overriding the file.
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		config.Postgres.Password = password
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Auth.ExpiryHours <= 0 {
		config.Auth.ExpiryHours = 24
	}

	return &config, nil
}
