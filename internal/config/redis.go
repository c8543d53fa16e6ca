package config

import (
	"os"
	"strconv"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	Group    string `yaml:"group"`
	Consumer string `yaml:"consumer"`
}

// GetRedisConfig returns the defaults with environment overrides applied
func GetRedisConfig() RedisConfig {
	return RedisConfig{}.withDefaults().withEnv()
}

func (r RedisConfig) withDefaults() RedisConfig {
	if r.Addr == "" {
		r.Addr = "localhost:6379"
	}
	if r.Stream == "" {
		r.Stream = "sensor_updates"
	}
	if r.Group == "" {
		r.Group = "greenorbit_server"
	}
	if r.Consumer == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			r.Consumer = host
		} else {
			r.Consumer = "greenorbit"
		}
	}
	return r
}

func (r RedisConfig) withEnv() RedisConfig {
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			r.DB = parsed
		}
	}

	r.Addr = getEnv("REDIS_ADDR", r.Addr)
	r.Password = getEnv("REDIS_PASSWORD", r.Password)
	r.Stream = getEnv("REDIS_STREAM", r.Stream)
	r.Group = getEnv("REDIS_GROUP", r.Group)
	r.Consumer = getEnv("REDIS_CONSUMER", r.Consumer)
	return r
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
