package main

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/config"
	"greenorbit/internal/mockdata"
	"greenorbit/internal/realtime"
	"greenorbit/internal/weather"
)

// newSampler picks live weather when enabled, otherwise the simulator
func newSampler(c *config.Config, gen *mockdata.Generator, logger *zap.Logger) realtime.Sampler {
	if !c.Weather.Enabled {
		return gen
	}
	client := weather.NewOpenMeteoClient(c.Weather.BaseURL, c.Weather.Timeout)
	logger.Info("sampling live weather", zap.String("base_url", c.Weather.BaseURL))
	return weather.NewSource(client, gen, logger)
}

func newRedisClient(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, eris.Wrapf(err, "redis: ping %s", rc.Addr)
	}
	return client, nil
}
