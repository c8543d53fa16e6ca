package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"greenorbit/internal/models"
)

// Realtime sources and storage drivers
const (
	SourceLocal = "local"
	SourceRedis = "redis"

	DriverMemory = "memory"
	DriverMySQL  = "mysql"
)

var (
	instance *Config
	once     sync.Once
)

type ServerConfig struct {
	Port        int      `yaml:"port"`
	StaticDir   string   `yaml:"static_dir"`
	JWTSecret   string   `yaml:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type RealtimeConfig struct {
	Source   string        `yaml:"source"`
	Interval time.Duration `yaml:"interval"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type WeatherConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// FarmConfig is one entry of the farm registry
type FarmConfig struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	CropType  string  `yaml:"crop_type"`
	CropStage string  `yaml:"crop_stage"`
	Area      float64 `yaml:"area"`
}

// Farm converts the registry entry to the API model
func (f FarmConfig) Farm() models.Farm {
	return models.Farm{
		ID:          f.ID,
		Name:        f.Name,
		Location:    models.Location{Latitude: f.Latitude, Longitude: f.Longitude},
		CropType:    f.CropType,
		CropStage:   f.CropStage,
		AreaMeasure: f.Area,
	}
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Weather  WeatherConfig  `yaml:"weather"`
	Farms    []FarmConfig   `yaml:"farms"`
}

func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = eris.Wrapf(readErr, "config: read %s", configPath)
			return
		}

		instance, err = Parse(data)
	})

	return instance, err
}

// Parse decodes a YAML document, applies defaults and environment overrides, and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, eris.Wrap(err, "config: parse")
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "./build"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Realtime.Source == "" {
		c.Realtime.Source = SourceLocal
	}
	if c.Realtime.Interval == 0 {
		c.Realtime.Interval = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://api.open-meteo.com/v1"
	}
	if c.Weather.Timeout == 0 {
		c.Weather.Timeout = 10 * time.Second
	}
	c.Redis = c.Redis.withDefaults()
}

func (c *Config) applyEnv() {
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		c.Server.Port = port
	}
	c.Server.JWTSecret = getEnv("JWT_SECRET", c.Server.JWTSecret)
	c.Redis = c.Redis.withEnv()
}

func (c *Config) validate() error {
	if len(c.Farms) == 0 {
		return eris.New("config: farms cannot be empty")
	}

	seen := make(map[string]bool, len(c.Farms))
	for _, f := range c.Farms {
		if f.ID == "" {
			return eris.New("config: farm id cannot be empty")
		}
		if seen[f.ID] {
			return eris.Errorf("config: duplicate farm id %s", f.ID)
		}
		seen[f.ID] = true
	}

	switch c.Realtime.Source {
	case SourceLocal, SourceRedis:
	default:
		return eris.Errorf("config: unknown realtime.source %q", c.Realtime.Source)
	}

	switch c.Storage.Driver {
	case DriverMemory, DriverMySQL:
	default:
		return eris.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Realtime.Interval <= 0 {
		return eris.New("config: realtime.interval must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

// RegistryFarms returns the configured farms as API models, in file order
func (c *Config) RegistryFarms() []models.Farm {
	farms := make([]models.Farm, len(c.Farms))
	for i, f := range c.Farms {
		farms[i] = f.Farm()
	}
	return farms
}

// DatabaseDSN picks the MySQL DSN: environment first, then storage.dsn, then the local default
func (c *Config) DatabaseDSN() string {
	if dsn, ok := dsnFromEnv(); ok {
		return dsn
	}
	if c.Storage.DSN != "" {
		return c.Storage.DSN
	}
	return GetDatabaseDSN()
}
