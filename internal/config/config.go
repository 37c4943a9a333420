package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Parley/internal/app"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	StaticPath string `mapstructure:"static_path"`
	Secret     string `mapstructure:"secret"`
	LogLevel   string `mapstructure:"log_level"`

	// ReadLimit is the transport hard cap; a larger frame kills the connection.
	ReadLimit int64 `mapstructure:"read_limit"`
	// MaxPayload is the per-message cap; larger frames are dropped and the
	// sender is told.
	MaxPayload int           `mapstructure:"max_payload"`
	SendBuffer int           `mapstructure:"send_buffer"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`

	ClosurePolicy app.ClosurePolicy `mapstructure:"closure_policy"`
	// Backpressure is "kick" or "drop".
	Backpressure string `mapstructure:"backpressure"`

	RoomRateLimit    int           `mapstructure:"room_rate_limit"`
	RoomRateInterval time.Duration `mapstructure:"room_rate_interval"`
}

// Policy returns the backpressure policy named by Backpressure.
func (c *Config) Policy() app.Policy {
	if c.Backpressure == "drop" {
		return app.LossyPolicy{}
	}
	return app.SimplePolicy{}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.MaxPayload <= 0 {
		return fmt.Errorf("max_payload must be positive")
	}
	if c.ReadLimit < int64(c.MaxPayload) {
		return fmt.Errorf("read_limit (%d) must be >= max_payload (%d)", c.ReadLimit, c.MaxPayload)
	}
	if c.PingPeriod >= c.PongWait {
		return fmt.Errorf("ping_period (%s) must be shorter than pong_wait (%s)", c.PingPeriod, c.PongWait)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive")
	}
	switch c.Backpressure {
	case "kick", "drop":
	default:
		return fmt.Errorf("backpressure must be kick or drop, got %q", c.Backpressure)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("max_payload", 256<<10)
	v.SetDefault("send_buffer", 256)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("closure_policy", "owner")
	v.SetDefault("backpressure", "kick")
	v.SetDefault("room_rate_limit", 10)
	v.SetDefault("room_rate_interval", "10s")
}

func closurePolicyHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(app.ClosurePolicy(0)) || from.Kind() != reflect.String {
			return data, nil
		}
		return app.ParseClosurePolicy(data.(string))
	}
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults; PARLEY_*
// environment variables override both.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
		watch(v)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("closure_policy", cfg.ClosurePolicy.String()).Msg("config ready")
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		closurePolicyHook(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// watch applies log_level changes without a restart. Other keys need one.
func watch(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		ApplyLogLevel(v.GetString("log_level"))
		log.Info().Str("module", "config").Str("file", e.Name).Msg("config reloaded")
	})
	v.WatchConfig()
}

// ApplyLogLevel sets the global zerolog level; unknown names keep the current one.
func ApplyLogLevel(name string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || name == "" {
		log.Warn().Str("module", "config").Str("log_level", name).Msg("unknown log level, keeping current")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
