package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `server:
  port: 8080
  jwt_secret: "file-secret"
  cors_origins:
    - "http://localhost:3000"
log:
  level: debug
  format: console
realtime:
  source: redis
  interval: 5s
storage:
  driver: mysql
  dsn: "u:p@tcp(db:3306)/greenorbit?parseTime=true"
redis:
  addr: "redis:6379"
  stream: "farm_updates"
weather:
  enabled: true
farms:
  - id: FARM-001
    name: "Kiambu North"
    latitude: -1.17
    longitude: 36.83
    crop_type: Maize
    crop_stage: "4-leaf to boot"
    area: 2.5
  - id: FARM-002
    name: "Thika East"
    latitude: -1.03
    longitude: 37.07
    crop_type: Maize
    crop_stage: Tasseling
    area: 4
`

func resetSingleton() {
	instance = nil
	once = *new(sync.Once)
}

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "JWT_SECRET",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_STREAM", "REDIS_GROUP", "REDIS_CONSUMER",
		"DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "DATABASE_DSN",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	resetSingleton()

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file-secret", cfg.Server.JWTSecret)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, SourceRedis, cfg.Realtime.Source)
	assert.Equal(t, 5*time.Second, cfg.Realtime.Interval)
	assert.Equal(t, DriverMySQL, cfg.Storage.Driver)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "farm_updates", cfg.Redis.Stream)
	assert.Equal(t, "greenorbit_server", cfg.Redis.Group)
	assert.True(t, cfg.Weather.Enabled)

	require.Len(t, cfg.Farms, 2)
	assert.Equal(t, "Kiambu North", cfg.Farms[0].Name)
	assert.Equal(t, 4.0, cfg.Farms[1].Area)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte("farms:\n  - id: FARM-001\n"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "./build", cfg.Server.StaticDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, SourceLocal, cfg.Realtime.Source)
	assert.Equal(t, 10*time.Second, cfg.Realtime.Interval)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "sensor_updates", cfg.Redis.Stream)
	assert.Equal(t, "https://api.open-meteo.com/v1", cfg.Weather.BaseURL)
	assert.False(t, cfg.Weather.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("REDIS_ADDR", "cache:6380")

	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Server.JWTSecret)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "farm_updates", cfg.Redis.Stream)
}

func TestLoad_InvalidYAML(t *testing.T) {
	resetSingleton()

	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	resetSingleton()

	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	clearEnv(t)
	resetSingleton()

	_, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	cfg := Get()
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Farms, 2)
}

func TestGet_Panic(t *testing.T) {
	resetSingleton()

	assert.Panics(t, func() { Get() })
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Farms: []FarmConfig{{ID: "FARM-001"}, {ID: "FARM-002"}}}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"no farms", func(c *Config) { c.Farms = nil }, true},
		{"duplicate farm id", func(c *Config) { c.Farms[1].ID = "FARM-001" }, true},
		{"empty farm id", func(c *Config) { c.Farms[0].ID = "" }, true},
		{"unknown source", func(c *Config) { c.Realtime.Source = "kafka" }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, true},
		{"negative interval", func(c *Config) { c.Realtime.Interval = -time.Second }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistryFarms(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	farms := cfg.RegistryFarms()
	require.Len(t, farms, 2)
	assert.Equal(t, "FARM-001", farms[0].ID)
	assert.Equal(t, -1.17, farms[0].Location.Latitude)
	assert.Equal(t, 2.5, farms[0].AreaMeasure)
	assert.Equal(t, "Tasseling", farms[1].CropStage)
}

func TestDatabaseDSN(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(db:3306)/greenorbit?parseTime=true", cfg.DatabaseDSN())

	t.Setenv("DATABASE_DSN", "env:dsn@tcp(envdb:3306)/greenorbit?parseTime=true")
	assert.Equal(t, "env:dsn@tcp(envdb:3306)/greenorbit?parseTime=true", cfg.DatabaseDSN())

	t.Setenv("DATABASE_DSN", "")
	cfg.Storage.DSN = ""
	assert.Equal(t, defaultDSN, cfg.DatabaseDSN())
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("GREENORBIT_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("GREENORBIT_TEST_VALUE"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GREENORBIT_TEST_VALUE=from-file\n"), 0o600))

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("GREENORBIT_TEST_VALUE"))
}
