package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greenorbit/internal/models"
)

type fakeStream struct {
	mu       sync.Mutex
	added    []*redis.XAddArgs
	groupErr error
	groups   []string
	batches  [][]redis.XStream
	acked    []string
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, a)
	return redis.NewStringResult("1-0", nil)
}

func (f *fakeStream) XGroupCreateMkStream(_ context.Context, stream, group, start string) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups = append(f.groups, stream+"/"+group+"@"+start)
	return redis.NewStatusResult("OK", f.groupErr)
}

func (f *fakeStream) XReadGroup(ctx context.Context, _ *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return redis.NewXStreamSliceCmdResult(batch, nil)
	}
	f.mu.Unlock()

	<-ctx.Done()
	return redis.NewXStreamSliceCmdResult(nil, ctx.Err())
}

func (f *fakeStream) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func update(farmID string) models.SensorUpdate {
	return models.SensorUpdate{
		Type:      models.TypeSensorUpdate,
		FarmID:    farmID,
		Data:      models.SensorData{SoilMoisture: 52, Temperature: 24, Humidity: 61},
		Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func message(t *testing.T, id string, u models.SensorUpdate) redis.XMessage {
	data, err := json.Marshal(u)
	require.NoError(t, err)
	return redis.XMessage{ID: id, Values: map[string]interface{}{"data": string(data)}}
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeStream{}
	p := NewPublisher(client, "sensor_updates")

	require.NoError(t, p.Publish(context.Background(), update("FARM-001")))

	require.Len(t, client.added, 1)
	args := client.added[0]
	assert.Equal(t, "sensor_updates", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values, ok := args.Values.(map[string]interface{})
	require.True(t, ok)
	decoded, err := Decode(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)
	assert.Equal(t, update("FARM-001"), decoded)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		wantErr bool
	}{
		{"missing data", map[string]interface{}{}, true},
		{"not a string", map[string]interface{}{"data": 12}, true},
		{"bad json", map[string]interface{}{"data": "{"}, true},
		{"no farm", map[string]interface{}{"data": `{"type":"sensor-update"}`}, true},
		{"valid", map[string]interface{}{"data": `{"farmId":"FARM-003","data":{"humidity":40}}`}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Decode(redis.XMessage{ID: "1-0", Values: tt.values})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "FARM-003", u.FarmID)
			assert.Equal(t, models.TypeSensorUpdate, u.Type)
			assert.Equal(t, 40.0, u.Data.Humidity)
		})
	}
}

func TestConsumer_Run(t *testing.T) {
	client := &fakeStream{
		groupErr: errors.New("BUSYGROUP Consumer Group name already exists"),
		batches: [][]redis.XStream{{
			{Stream: "sensor_updates", Messages: []redis.XMessage{
				message(t, "1-0", update("FARM-001")),
				{ID: "2-0", Values: map[string]interface{}{"data": "garbage"}},
				message(t, "3-0", update("FARM-002")),
			}},
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	c := NewConsumer(client, "sensor_updates", "greenorbit_server", "test", zap.NewNop())
	err := c.Run(ctx, func(_ context.Context, u models.SensorUpdate) error {
		got = append(got, u.FarmID)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"FARM-001", "FARM-002"}, got)
	assert.Equal(t, []string{"1-0", "2-0", "3-0"}, client.acked)
	assert.Equal(t, []string{"sensor_updates/greenorbit_server@$"}, client.groups)
}

func TestConsumer_EnsureGroupError(t *testing.T) {
	client := &fakeStream{groupErr: errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")}
	c := NewConsumer(client, "sensor_updates", "greenorbit_server", "test", zap.NewNop())

	err := c.Run(context.Background(), func(context.Context, models.SensorUpdate) error { return nil })
	assert.Error(t, err)
}

func TestConsumer_HandlerErrorStillAcks(t *testing.T) {
	client := &fakeStream{
		batches: [][]redis.XStream{{
			{Stream: "sensor_updates", Messages: []redis.XMessage{message(t, "9-0", update("FARM-001"))}},
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(client, "sensor_updates", "g", "c", zap.NewNop())
	require.NoError(t, c.Run(ctx, func(context.Context, models.SensorUpdate) error {
		cancel()
		return errors.New("store down")
	}))

	assert.Equal(t, []string{"9-0"}, client.acked)
}
