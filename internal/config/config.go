// Package config provides configuration management for clipsmith using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort      = 8080
	defaultServerTimeout   = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxIdleTime = 30 * time.Minute
	defaultRenderTimeout   = 10 * time.Minute
	defaultTempMaxAge      = 24 * time.Hour
	defaultCleanupCron     = "0 0 3 * * *" // daily at 3 AM
	defaultAgentModel      = "gemini-2.0-flash"
	defaultTTSModel        = "gemini-2.5-flash-preview-tts"
	defaultTTSVoice        = "Charon"
	defaultMaxToolRounds   = 8
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	FFmpeg   FFmpegConfig   `mapstructure:"ffmpeg"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	// ScratchBucket is the GCS bucket for intermediate render artifacts.
	ScratchBucket string `mapstructure:"scratch_bucket"`
	// TempDir is where downloaded sources and render outputs are staged.
	// Empty means the OS temp directory.
	TempDir string `mapstructure:"temp_dir"`
	// FeatureConfigPath points at the feature configuration JSON file.
	FeatureConfigPath string `mapstructure:"feature_config_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
	// FontFile is the font used for drawtext overlays.
	FontFile string `mapstructure:"font_file"`
	// RenderTimeout bounds a single ffmpeg invocation.
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
}

// GeminiConfig holds Google AI credentials and model selection.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	AgentModel string `mapstructure:"agent_model"`
	TTSModel   string `mapstructure:"tts_model"`
	TTSVoice   string `mapstructure:"tts_voice"`
	// TTSLanguage is the BCP-47 language code for synthesized speech.
	TTSLanguage string `mapstructure:"tts_language"`
}

// AgentConfig holds conversational agent configuration.
type AgentConfig struct {
	// AppName namespaces sessions in the store.
	AppName string `mapstructure:"app_name"`
	// MaxToolRounds bounds the tool-calling loop per user query.
	MaxToolRounds int `mapstructure:"max_tool_rounds"`
}

// CleanupConfig holds temp-file cleanup configuration.
type CleanupConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Cron is a 6-field cron expression for scheduled cleanup runs.
	Cron string `mapstructure:"cron"`
	// TempMaxAge is how old a staged file must be before removal.
	TempMaxAge time.Duration `mapstructure:"temp_max_age"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CLIPSMITH_ and use underscores
// for nesting. Example: CLIPSMITH_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/clipsmith")
		v.AddConfigPath("$HOME/.clipsmith")
	}

	v.SetEnvPrefix("CLIPSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file so defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "clipsmith.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.temp_dir", "")
	v.SetDefault("storage.feature_config_path", "configs/features.json")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)

	// FFmpeg defaults
	v.SetDefault("ffmpeg.font_file", "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf")
	v.SetDefault("ffmpeg.render_timeout", defaultRenderTimeout)

	// Gemini defaults
	v.SetDefault("gemini.agent_model", defaultAgentModel)
	v.SetDefault("gemini.tts_model", defaultTTSModel)
	v.SetDefault("gemini.tts_voice", defaultTTSVoice)
	v.SetDefault("gemini.tts_language", "en-US")

	// Agent defaults
	v.SetDefault("agent.app_name", "clipsmith")
	v.SetDefault("agent.max_tool_rounds", defaultMaxToolRounds)

	// Cleanup defaults
	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.cron", defaultCleanupCron)
	v.SetDefault("cleanup.temp_max_age", defaultTempMaxAge)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("database.driver must be sqlite, postgres, or mysql, got %q", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if c.Agent.MaxToolRounds < 1 {
		return fmt.Errorf("agent.max_tool_rounds must be at least 1, got %d", c.Agent.MaxToolRounds)
	}

	if c.FFmpeg.RenderTimeout <= 0 {
		return errors.New("ffmpeg.render_timeout must be positive")
	}

	return nil
}
