package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"next-nav-server/internal/filesystem"
	"next-nav-server/internal/logging"
)

// EnvPrefix prefixes every environment variable read by the server,
// e.g. NEXTNAV_WORKSPACE or NEXTNAV_LOG_LEVEL.
const EnvPrefix = "NEXTNAV"

// Config holds all configurable values for the server.
type Config struct {
	WorkingDirectory    string    `mapstructure:"workspace"`
	Transport           string    `mapstructure:"transport"`
	Port                int       `mapstructure:"port"`
	MaxFileSizeMB       int       `mapstructure:"max_file_size_mb"`
	OperationTimeoutSec int       `mapstructure:"operation_timeout_sec"`
	SessionCapacity     int       `mapstructure:"session_capacity"`
	TrashDir            string    `mapstructure:"trash_dir"`
	LockDir             string    `mapstructure:"lock_dir"`
	Log                 LogConfig `mapstructure:"log"`
}

// LogConfig configures the zap logger and its rotating file sink.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// flagKeys maps command-line flags to their configuration keys.
var flagKeys = map[string]string{
	"workspace":        "workspace",
	"transport":        "transport",
	"port":             "port",
	"max-file-size":    "max_file_size_mb",
	"timeout":          "operation_timeout_sec",
	"session-capacity": "session_capacity",
	"trash-dir":        "trash_dir",
	"lock-dir":         "lock_dir",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"log-file":         "log.file",
}

// SetDefaults registers the default of every key. Keys without a default are
// invisible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("workspace", "")
	v.SetDefault("transport", "http")
	v.SetDefault("port", 8080)
	v.SetDefault("max_file_size_mb", 10)
	v.SetDefault("operation_timeout_sec", 30)
	v.SetDefault("session_capacity", 1024)
	v.SetDefault("trash_dir", "")
	v.SetDefault("lock_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}

// RegisterFlags defines the server flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("workspace", "d", "", "Path to the workspace root (required)")
	fs.String("transport", "http", "Transport protocol (http or stdio)")
	fs.IntP("port", "p", 8080, "Port for HTTP transport")
	fs.Int("max-file-size", 10, "Maximum size in MB of a file returned by open_file")
	fs.Int("timeout", 30, "Operation timeout in seconds")
	fs.Int("session-capacity", 1024, "Maximum number of sessions kept in memory")
	fs.String("trash-dir", "", "Move deleted entries here instead of removing them")
	fs.String("lock-dir", "", "Directory for lock files (default: a temp directory)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-format", "json", "Log format (json or console)")
	fs.String("log-file", "", "Log to this file, rotated, instead of stderr")
}

// BindFlags binds the flags registered by RegisterFlags to their keys in v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML config file, .env and the environment, and flags bound to v.
// configFile may be empty, in which case next-nav.yaml is searched for in the
// working directory and the user config directory.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("next-nav")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "next-nav"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.WorkingDirectory == "" {
		return fmt.Errorf("working directory is required")
	}

	info, err := os.Stat(c.WorkingDirectory)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("working directory does not exist: %s", c.WorkingDirectory)
		}
		return fmt.Errorf("error accessing working directory: %v", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory is not a directory: %s", c.WorkingDirectory)
	}
	if err := filesystem.CheckDirectoryIsWritable(c.WorkingDirectory); err != nil {
		return fmt.Errorf("working directory is not writable: %w", err)
	}

	if c.Transport != "http" && c.Transport != "stdio" {
		return fmt.Errorf("transport must be 'http' or 'stdio'")
	}

	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1024 and 65535")
	}

	if c.MaxFileSizeMB < 1 || c.MaxFileSizeMB > 100 {
		return fmt.Errorf("max file size must be between 1 and 100 MB")
	}

	if c.OperationTimeoutSec < 1 || c.OperationTimeoutSec > 300 {
		return fmt.Errorf("operation timeout must be between 1 and 300 seconds")
	}

	if c.SessionCapacity < 1 || c.SessionCapacity > 1_000_000 {
		return fmt.Errorf("session capacity must be between 1 and 1000000")
	}

	if c.TrashDir != "" {
		inside, err := isWithin(c.WorkingDirectory, c.TrashDir)
		if err != nil {
			return fmt.Errorf("invalid trash directory: %w", err)
		}
		if inside {
			return fmt.Errorf("trash directory must be outside the working directory")
		}
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	return nil
}

// Logging converts the log section to the logging package's configuration.
func (c *Config) Logging() logging.Config {
	output := c.Log.File
	if output == "" {
		// stdout carries the stdio protocol, so logs always go to stderr.
		output = "stderr"
	}
	return logging.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		Output:     output,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

func isWithin(root, path string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}
