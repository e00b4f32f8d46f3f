package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceHost string
	ServicePort int `validate:"min=1,max=65535"`
	LogLevel    string

	// Mongo Configuration
	// MongoURI может быть пустым: ошибка подключения вернется при первом запросе
	MongoURI            string
	MongoConnectTimeout time.Duration
	MongoMaxPoolSize    uint64
	DefaultDatabase     string
	DefaultCollection   string

	// SSRM Configuration
	MaxPageSize    int           `validate:"min=1"`
	RequestTimeout time.Duration
	BaseMatch      string
	TenantField    string

	// Redis Configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	PivotKeyTTL   time.Duration
}

func NewConfig() (*Config, error) {
	// Загружаем .env файл
	_ = godotenv.Load()

	configName := "config"
	if os.Getenv("CONFIG_NAME") != "" {
		configName = os.Getenv("CONFIG_NAME")
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	v.SetDefault("ServiceHost", "0.0.0.0")
	v.SetDefault("ServicePort", 8080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("MongoConnectTimeout", "10s")
	v.SetDefault("MongoMaxPoolSize", 100)
	v.SetDefault("MaxPageSize", 1000)
	v.SetDefault("RequestTimeout", "30s")
	v.SetDefault("RedisPort", "6379")
	v.SetDefault("PivotKeyTTL", "30s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Infof("config file %q not found, using defaults and environment", configName)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Переменные окружения перекрывают файл
	cfg.ServiceHost = getEnv("SERVICE_HOST", cfg.ServiceHost)
	cfg.ServicePort = getEnvInt("SERVICE_PORT", cfg.ServicePort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoConnectTimeout = getEnvDuration("MONGO_CONNECT_TIMEOUT", cfg.MongoConnectTimeout)
	cfg.DefaultDatabase = getEnv("MONGO_DATABASE", cfg.DefaultDatabase)
	cfg.DefaultCollection = getEnv("MONGO_COLLECTION", cfg.DefaultCollection)

	cfg.MaxPageSize = getEnvInt("SSRM_MAX_PAGE_SIZE", cfg.MaxPageSize)
	cfg.RequestTimeout = getEnvDuration("SSRM_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.BaseMatch = getEnv("SSRM_BASE_MATCH", cfg.BaseMatch)
	cfg.TenantField = getEnv("SSRM_TENANT_FIELD", cfg.TenantField)

	cfg.RedisHost = getEnv("REDIS_HOST", cfg.RedisHost)
	cfg.RedisPort = getEnv("REDIS_PORT", cfg.RedisPort)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.PivotKeyTTL = getEnvDuration("PIVOT_KEY_TTL", cfg.PivotKeyTTL)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.MongoURI == "" {
		log.Warn("MONGO_URI is not set - SSRM requests will fail until it is configured")
	}

	log.Info("config parsed")

	return cfg, nil
}

// RedisEnabled - кэш pivot-ключей включается только при заданном хосте
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != "" && c.PivotKeyTTL > 0
}

// getEnv вспомогательная функция для получения environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Warnf("ignoring %s=%q: not an integer", key, value)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Warnf("ignoring %s=%q: not a duration", key, value)
	}
	return defaultValue
}
