package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string   `mapstructure:"mode"`
	Port       int      `mapstructure:"port"`
	StaticPath string   `mapstructure:"static_path"`
	Secret     string   `mapstructure:"secret"`
	LogLevel   string   `mapstructure:"log_level"`
	CORSAllow  []string `mapstructure:"cors_allow"`

	WS    WSConfig    `mapstructure:"ws"`
	Rooms RoomsConfig `mapstructure:"rooms"`
}

type WSConfig struct {
	// ReadLimit caps one inbound frame in bytes; 0 means unlimited.
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	// RequireKnownRoom rejects upgrades for codes the room store never issued.
	RequireKnownRoom   bool   `mapstructure:"require_known_room"`
	BackpressurePolicy string `mapstructure:"backpressure_policy"`
}

type RoomsConfig struct {
	Capacity int `mapstructure:"capacity"`
	// StorePath is the badger directory; empty keeps rooms in memory.
	StorePath string `mapstructure:"store_path"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName on top of the defaults. A missing file is not an
// error. QUICKROOM_* environment variables override both, e.g.
// QUICKROOM_WS_SEND_BUFFER.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("quickroom")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8000)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "quickroom-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_allow", []string{"http://localhost:5173", "http://localhost:3000"})

	v.SetDefault("ws.read_limit", 0)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.pong_wait", "60s")
	v.SetDefault("ws.write_wait", "10s")
	v.SetDefault("ws.send_buffer", 64)
	v.SetDefault("ws.require_known_room", true)
	v.SetDefault("ws.backpressure_policy", "drop")

	v.SetDefault("rooms.capacity", 5)
	v.SetDefault("rooms.store_path", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Int("capacity", cfg.Rooms.Capacity).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.Rooms.Capacity <= 0:
		return fmt.Errorf("rooms.capacity must be positive, got %d", c.Rooms.Capacity)
	case c.WS.SendBuffer <= 0:
		return fmt.Errorf("ws.send_buffer must be positive, got %d", c.WS.SendBuffer)
	case c.WS.ReadLimit < 0:
		return fmt.Errorf("ws.read_limit must not be negative, got %d", c.WS.ReadLimit)
	case c.WS.PingPeriod <= 0 || c.WS.PingPeriod >= c.WS.PongWait:
		return fmt.Errorf("ws.ping_period (%s) must be positive and shorter than ws.pong_wait (%s)", c.WS.PingPeriod, c.WS.PongWait)
	case c.WS.WriteWait <= 0:
		return fmt.Errorf("ws.write_wait must be positive, got %s", c.WS.WriteWait)
	case c.Secret == "":
		return errors.New("secret must not be empty")
	}
	return nil
}
