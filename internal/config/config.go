package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string `mapstructure:"mode"`
	Port       int    `mapstructure:"port"`
	LogLevel   string `mapstructure:"log_level"`
	StaticPath string `mapstructure:"static_path"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	Secret        string `mapstructure:"secret"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	AccessCookie  string `mapstructure:"access_cookie"`
	InternalToken string `mapstructure:"internal_token"`

	DatabaseDSN string `mapstructure:"database_dsn"`

	MailboxSize    int     `mapstructure:"mailbox_size"`
	SlowSubscriber string  `mapstructure:"slow_subscriber"`
	CloseOnBan     bool    `mapstructure:"close_on_ban"`
	CommandRate    float64 `mapstructure:"command_rate"`
	CommandBurst   int     `mapstructure:"command_burst"`

	ICEServers []string `mapstructure:"ice_servers"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", "lounge-dev-secret")
	v.SetDefault("jwt_secret", "lounge-dev-jwt-secret")
	v.SetDefault("access_cookie", "access_token")
	v.SetDefault("internal_token", "")
	v.SetDefault("database_dsn", "file:lounge.db?cache=shared&_busy_timeout=5000")
	v.SetDefault("mailbox_size", 64)
	v.SetDefault("slow_subscriber", "drop")
	v.SetDefault("close_on_ban", false)
	v.SetDefault("command_rate", 20.0)
	v.SetDefault("command_burst", 40)
	v.SetDefault("ice_servers", []string{})
}

// Load reads .env, then config/config.<CONFIG_ENV>.yaml, then LOUNGE_* env vars.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Info().Str("module", "config").Msg("loaded .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("LOUNGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").
		Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).
		Str("slow_subscriber", cfg.SlowSubscriber).Bool("close_on_ban", cfg.CloseOnBan).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.SlowSubscriber {
	case "drop", "close":
	default:
		return fmt.Errorf("slow_subscriber must be drop or close, got %q", c.SlowSubscriber)
	}
	if c.PongWait <= c.PingPeriod {
		return fmt.Errorf("pong_wait (%s) must exceed ping_period (%s)", c.PongWait, c.PingPeriod)
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
