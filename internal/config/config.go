package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Render RenderConfig `mapstructure:"render" yaml:"render"`
	Stream StreamConfig `mapstructure:"stream" yaml:"stream"`
	Serve  ServeConfig  `mapstructure:"serve" yaml:"serve"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// RenderConfig configures the render command
type RenderConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // json, markup, text, blocks, terminal or html
	Width  int    `mapstructure:"width" yaml:"width"`   // wrap width for terminal output, 0 detects
}

// StreamConfig configures the stream replay command
type StreamConfig struct {
	ChunkSize int           `mapstructure:"chunk_size" yaml:"chunk_size"` // bytes per token
	Delay     time.Duration `mapstructure:"delay" yaml:"delay"`           // pause between chunks
}

// ServeConfig configures the HTTP server
type ServeConfig struct {
	Host        string        `mapstructure:"host" yaml:"host"`
	Port        int           `mapstructure:"port" yaml:"port"`
	Token       string        `mapstructure:"token" yaml:"token"` // bearer token, supports $VAR
	SessionTTL  time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	SessionMax  int           `mapstructure:"session_max" yaml:"session_max"`
	CORSOrigins []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug, info, warn or error
}

// Formats accepted by render.format.
var Formats = []string{"json", "markup", "text", "blocks", "terminal", "html"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{Format: "json"},
		Stream: StreamConfig{ChunkSize: 1},
		Serve: ServeConfig{
			Host:       "127.0.0.1",
			Port:       8787,
			SessionTTL: 30 * time.Minute,
			SessionMax: 1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads the config file (if any) and CHATMARKUP_* environment variables
// on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()

	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	return load(v, false)
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v, true)
}

func load(v *viper.Viper, required bool) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("chatmarkup")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The discovered config file is optional, an explicit one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || (!errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Serve.Token = expandEnv(cfg.Serve.Token)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("render.format", d.Render.Format)
	v.SetDefault("render.width", d.Render.Width)
	v.SetDefault("stream.chunk_size", d.Stream.ChunkSize)
	v.SetDefault("stream.delay", d.Stream.Delay)
	v.SetDefault("serve.host", d.Serve.Host)
	v.SetDefault("serve.port", d.Serve.Port)
	v.SetDefault("serve.token", d.Serve.Token)
	v.SetDefault("serve.session_ttl", d.Serve.SessionTTL)
	v.SetDefault("serve.session_max", d.Serve.SessionMax)
	v.SetDefault("serve.cors_origins", d.Serve.CORSOrigins)
	v.SetDefault("log.level", d.Log.Level)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !IsFormat(c.Render.Format) {
		return fmt.Errorf("invalid render.format %q (want one of %s)", c.Render.Format, strings.Join(Formats, ", "))
	}
	if c.Render.Width < 0 {
		return fmt.Errorf("invalid render.width %d (must be >= 0)", c.Render.Width)
	}
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("invalid stream.chunk_size %d (must be > 0)", c.Stream.ChunkSize)
	}
	if c.Stream.Delay < 0 {
		return fmt.Errorf("invalid stream.delay %s (must be >= 0)", c.Stream.Delay)
	}
	if c.Serve.Port <= 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("invalid serve.port %d (must be 1-65535)", c.Serve.Port)
	}
	if c.Serve.SessionTTL <= 0 {
		return fmt.Errorf("invalid serve.session_ttl %s (must be > 0)", c.Serve.SessionTTL)
	}
	if c.Serve.SessionMax <= 0 {
		return fmt.Errorf("invalid serve.session_max %d (must be > 0)", c.Serve.SessionMax)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return nil
}

// IsFormat reports whether f is a known render format.
func IsFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// ApplyOverrides applies command line overrides. Empty and zero values leave
// the configured setting alone.
func (c *Config) ApplyOverrides(format string, width int) {
	if format != "" {
		c.Render.Format = format
	}
	if width > 0 {
		c.Render.Width = width
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the XDG config directory for chatmarkup.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "chatmarkup"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "chatmarkup"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Exists reports whether a regular config file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}

// Save writes the config to path, creating its directory.
func Save(cfg *Config, path string) error {
	content, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, content, 0600)
}
