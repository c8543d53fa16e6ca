// Package feed carries sensor updates between processes over a Redis stream.
package feed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"greenorbit/internal/metrics"
	"greenorbit/internal/models"
)

// Entries kept in the stream, approximately
const streamMaxLen = 1000

// StreamClient is the part of the Redis client the feed uses; *redis.Client satisfies it
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Publisher appends updates to the stream as JSON under the "data" field
type Publisher struct {
	client StreamClient
	stream string
}

// NewPublisher creates a publisher appending to stream
func NewPublisher(client StreamClient, stream string) *Publisher {
	return &Publisher{client: client, stream: stream}
}

// Publish serializes the update and adds it to the stream
func (p *Publisher) Publish(ctx context.Context, u models.SensorUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return eris.Wrapf(err, "feed: serialize update for %s", u.FarmID)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return eris.Wrapf(err, "feed: publish update for %s", u.FarmID)
	}

	metrics.SensorUpdatesTotal.WithLabelValues("redis_publish").Inc()
	return nil
}

// Handler receives each decoded update
type Handler func(ctx context.Context, u models.SensorUpdate) error

// Consumer reads the stream through a consumer group
type Consumer struct {
	client   StreamClient
	stream   string
	group    string
	consumer string
	logger   *zap.Logger

	Count int64
	Block time.Duration
}

// NewConsumer creates a consumer reading stream as consumer within group
func NewConsumer(client StreamClient, stream, group, consumer string, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumer,
		logger:   logger,
		Count:    10,
		Block:    5 * time.Second,
	}
}

// EnsureGroup creates the stream and consumer group. An existing group is not an error.
// New groups start at the end of the stream; updates older than the process are stale.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return eris.Wrapf(err, "feed: create consumer group %s", c.group)
	}
	return nil
}

// Run reads until ctx is done, handing every update to handle. Messages are acknowledged
// once handled, including ones that fail to decode or to handle, which are logged.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("consuming sensor updates",
		zap.String("stream", c.stream), zap.String("group", c.group), zap.String("consumer", c.consumer))

	for {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    c.Count,
			Block:    c.Block,
		}).Result()

		if ctx.Err() != nil {
			return nil
		}

		if err != nil && err != redis.Nil {
			c.logger.Error("read from redis", zap.Error(err))
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		for _, s := range streams {
			for _, m := range s.Messages {
				c.process(ctx, m, handle)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, m redis.XMessage, handle Handler) {
	defer func() {
		if err := c.client.XAck(context.Background(), c.stream, c.group, m.ID).Err(); err != nil {
			c.logger.Warn("ack message", zap.String("id", m.ID), zap.Error(err))
		}
	}()

	u, err := Decode(m)
	if err != nil {
		c.logger.Warn("skipping malformed message", zap.String("id", m.ID), zap.Error(err))
		return
	}

	metrics.SensorUpdatesTotal.WithLabelValues("redis_consume").Inc()
	if err := handle(ctx, u); err != nil {
		c.logger.Error("handle update", zap.String("id", m.ID), zap.String("farm_id", u.FarmID), zap.Error(err))
	}
}

// Decode extracts the update carried by a stream message
func Decode(m redis.XMessage) (models.SensorUpdate, error) {
	var u models.SensorUpdate

	raw, ok := m.Values["data"].(string)
	if !ok {
		return u, eris.New("feed: message has no data field")
	}
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return u, eris.Wrap(err, "feed: unmarshal update")
	}
	if u.FarmID == "" {
		return u, eris.New("feed: update has no farm id")
	}
	if u.Type == "" {
		u.Type = models.TypeSensorUpdate
	}
	return u, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
