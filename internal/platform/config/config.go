package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Encoder     EncoderConfig     `mapstructure:"encoder"`
	Session     SessionConfig     `mapstructure:"session"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// EncoderConfig holds the rendering options handed to the QR encoder on every
// generation. Margin is measured in modules, Width in pixels.
type EncoderConfig struct {
	Width            int    `mapstructure:"width"`
	Margin           int    `mapstructure:"margin"`
	DarkColor        string `mapstructure:"dark_color"`
	LightColor       string `mapstructure:"light_color"`
	DownloadFilename string `mapstructure:"download_filename"`
}

type SessionConfig struct {
	Secret        string        `mapstructure:"secret"`
	CookieName    string        `mapstructure:"cookie_name"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type DiagnosticsConfig struct {
	DatabasePath   string `mapstructure:"database_path"`
	MaxConnections int    `mapstructure:"max_connections"`
	RecentLimit    int    `mapstructure:"recent_limit"`
}

type RateLimitConfig struct {
	GeneratePerMinute int `mapstructure:"generate_per_minute"`
	APIPerMinute      int `mapstructure:"api_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("encoder.width", 256)
	v.SetDefault("encoder.margin", 2)
	v.SetDefault("encoder.dark_color", "#1f2937")
	v.SetDefault("encoder.light_color", "#ffffff")
	v.SetDefault("encoder.download_filename", "qr-code.png")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_name", "qrgen_session")
	v.SetDefault("session.token_ttl", 24*time.Hour)
	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.sweep_interval", 5*time.Minute)

	v.SetDefault("diagnostics.database_path", ":memory:")
	v.SetDefault("diagnostics.max_connections", 1)
	v.SetDefault("diagnostics.recent_limit", 50)

	v.SetDefault("rate_limit.generate_per_minute", 60)
	v.SetDefault("rate_limit.api_per_minute", 600)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
}

// Load reads the YAML file at path, layering environment variables on top
// (server.port -> SERVER_PORT). A missing file is not an error: the defaults
// describe a complete working configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *fs.PathError
			if !errors.As(err, &pathErr) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
