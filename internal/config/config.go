package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Port                     string `toml:"port"`
	AllowedOrigin            string `toml:"allowed_origin"`
	DatabaseURL              string `toml:"database_url"`
	RedisAddr                string `toml:"redis_addr"`
	RedisPassword            string `toml:"redis_password"`
	RedisDB                  int    `toml:"redis_db"`
	AuthSecret               string `toml:"auth_secret"`
	AccessTokenTTLMinutes    int    `toml:"access_token_ttl_minutes"`
	DashboardCacheTTLSeconds int    `toml:"dashboard_cache_ttl_seconds"`
	CommitLockTTLSeconds     int    `toml:"commit_lock_ttl_seconds"`
	LogLevel                 string `toml:"log_level"`
	Timezone                 string `toml:"timezone"`
}

func Default() Config {
	return Config{
		Port:                     "8080",
		AllowedOrigin:            "http://127.0.0.1:3000",
		AccessTokenTTLMinutes:    480,
		DashboardCacheTTLSeconds: 10,
		CommitLockTTLSeconds:     30,
		LogLevel:                 "info",
		Timezone:                 "Asia/Seoul",
	}
}

// Load reads .env when present, then the TOML file named by CONFIG_FILE, then
// environment variables. Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB, 0)
	cfg.AuthSecret = strings.TrimSpace(getEnv("AUTH_SECRET", cfg.AuthSecret))
	cfg.AccessTokenTTLMinutes = getEnvInt("ACCESS_TOKEN_TTL_MINUTES", cfg.AccessTokenTTLMinutes, 1)
	cfg.DashboardCacheTTLSeconds = getEnvInt("DASHBOARD_CACHE_TTL_SECONDS", cfg.DashboardCacheTTLSeconds, 1)
	cfg.CommitLockTTLSeconds = getEnvInt("COMMIT_LOCK_TTL_SECONDS", cfg.CommitLockTTLSeconds, 1)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c Config) DashboardCacheTTL() time.Duration {
	return time.Duration(c.DashboardCacheTTLSeconds) * time.Second
}

func (c Config) CommitLockTTL() time.Duration {
	return time.Duration(c.CommitLockTTLSeconds) * time.Second
}

// Location resolves Timezone, falling back to UTC when the zone database
// does not know it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int, min int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < min {
		return fallback
	}
	return n
}
