package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Gateway  GatewayConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderPaid string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// GatewayConfig carries the host-side knobs of the PayAnyWay integration.
// Merchant credentials live in the settings store, not here: SiteURL is the
// base the three MNT_*_URL callbacks are derived from, SystemName is the
// first word of every plaintext acknowledgement, StoreScope selects which
// per-store settings the public endpoints run under.
type GatewayConfig struct {
	SiteURL    string
	SystemName string
	StoreScope int
	OIDCIssuer string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "payanyway_user"),
			Password:     getEnv("DB_PASSWORD", "payanyway_pass"),
			Database:     getEnv("DB_NAME", "payanyway"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				OrderPaid: getEnv("KAFKA_TOPIC_ORDER_PAID", "order-paid"),
			},
		},
		Gateway: GatewayConfig{
			SiteURL:    getEnv("SITE_URL", "http://localhost:8080/"),
			SystemName: getEnv("SYSTEM_NAME", "Evently"),
			StoreScope: getEnvInt("STORE_SCOPE", 0),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
