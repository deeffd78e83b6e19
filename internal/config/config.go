package config

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the agent's configuration, read from config.yaml in the working
// directory with CHECKIN_* environment overrides.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// Login bootstrap, used only when no valid session is stored.
	Organisation string `mapstructure:"organisation"`
	WorkerName   string `mapstructure:"worker_name"`

	BaseURLTemplate string `mapstructure:"base_url_template"`
	DBPath          string `mapstructure:"db_path"`

	PresenceInterval time.Duration `mapstructure:"presence_interval"`
	StatusInterval   time.Duration `mapstructure:"status_interval"`
	LocationInterval time.Duration `mapstructure:"location_interval"`

	ScanCooldown         time.Duration `mapstructure:"scan_cooldown"`
	NotificationThrottle time.Duration `mapstructure:"notification_throttle"`

	NtfyServer string `mapstructure:"ntfy_server"`
	NtfyTopic  string `mapstructure:"ntfy_topic"`

	// LocationCommand, when set, is run to acquire fixes (must print
	// {"lat":..,"lon":..}).  Otherwise the static coordinates are used.
	LocationCommand string  `mapstructure:"location_command"`
	StaticLat       float64 `mapstructure:"static_lat"`
	StaticLon       float64 `mapstructure:"static_lon"`
}

func MustLoad() *Config {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetEnvPrefix("checkin")
	viper.AutomaticEnv()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("base_url_template", "https://%s.vercel.app")
	viper.SetDefault("db_path", "./data/checkin.db")
	viper.SetDefault("presence_interval", 20*time.Second)
	viper.SetDefault("status_interval", 10*time.Second)
	viper.SetDefault("location_interval", 10*time.Second)
	viper.SetDefault("scan_cooldown", 7*time.Second)
	viper.SetDefault("notification_throttle", 12*time.Hour)
	viper.SetDefault("ntfy_server", "https://ntfy.sh")

	if err := viper.ReadInConfig(); err != nil {
		// Defaults plus environment are enough to run; only a broken
		// config file is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("can't read config file", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("can't unmarshal config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	return &cfg
}
