package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds storeview's runtime settings. Values come from the TOML config
// file, STOREVIEW_* environment variables and command-line flags, in
// increasing order of precedence.
type Config struct {
	ServerURL      string        `mapstructure:"server_url"`
	APIPrefix      string        `mapstructure:"api_prefix"`
	PageSize       int           `mapstructure:"page_size"`
	Namespace      string        `mapstructure:"namespace"`
	Environment    string        `mapstructure:"environment"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LoadTimeout    time.Duration `mapstructure:"load_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	LogDir         string        `mapstructure:"log_dir"`
	PrefsPath      string        `mapstructure:"prefs_path"`
	Debug          bool          `mapstructure:"debug"`
}

const (
	defaultConfigPath     = "~/.config/storeview/config.toml"
	defaultServerURL      = "http://localhost:5000"
	defaultAPIPrefix      = "/api/v1"
	defaultPageSize       = 100
	maxPageSize           = 1000
	defaultRequestTimeout = 10 * time.Second
	defaultLoadTimeout    = 30 * time.Second
	defaultPollInterval   = 5 * time.Second
	defaultLogDir         = "~/.local/share/storeview/logs"
	defaultPrefsPath      = "~/.config/storeview/prefs.toml"

	envPrefix = "STOREVIEW"
)

// New returns a viper instance with storeview's defaults and environment
// binding applied. Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("server_url", defaultServerURL)
	v.SetDefault("api_prefix", defaultAPIPrefix)
	v.SetDefault("page_size", defaultPageSize)
	v.SetDefault("namespace", "")
	v.SetDefault("environment", "")
	v.SetDefault("request_timeout", defaultRequestTimeout)
	v.SetDefault("load_timeout", defaultLoadTimeout)
	v.SetDefault("poll_interval", defaultPollInterval)
	v.SetDefault("log_dir", defaultLogDir)
	v.SetDefault("prefs_path", defaultPrefsPath)
	v.SetDefault("debug", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path (the default location when empty) into
// v and decodes the result. A missing file is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	v.SetConfigFile(resolved)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Watch re-reads the config file whenever it changes on disk and passes the
// decoded result to onChange. Load must have been called on v first.
func Watch(v *viper.Viper, onChange func(Config, error)) error {
	if v.ConfigFileUsed() == "" {
		return fmt.Errorf("watch config requires a loaded config file")
	}
	v.OnConfigChange(func(ev fsnotify.Event) {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
			return
		}
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			onChange(Config{}, fmt.Errorf("decode config: %w", err))
			return
		}
		if err := cfg.normalize(); err != nil {
			onChange(Config{}, err)
			return
		}
		onChange(cfg, nil)
	})
	v.WatchConfig()
	return nil
}

// Default returns the configuration used when no file, env or flag is set.
func Default() Config {
	cfg := Config{
		ServerURL:      defaultServerURL,
		APIPrefix:      defaultAPIPrefix,
		PageSize:       defaultPageSize,
		RequestTimeout: defaultRequestTimeout,
		LoadTimeout:    defaultLoadTimeout,
		PollInterval:   defaultPollInterval,
		LogDir:         defaultLogDir,
		PrefsPath:      defaultPrefsPath,
	}
	_ = cfg.normalize()
	return cfg
}

func (c *Config) normalize() error {
	c.ServerURL = strings.TrimSpace(c.ServerURL)
	if c.ServerURL == "" {
		c.ServerURL = defaultServerURL
	}
	if !strings.Contains(c.ServerURL, "://") {
		c.ServerURL = "http://" + c.ServerURL
	}
	c.APIPrefix = strings.TrimSpace(c.APIPrefix)
	if c.APIPrefix == "" {
		c.APIPrefix = defaultAPIPrefix
	}

	switch {
	case c.PageSize <= 0:
		c.PageSize = defaultPageSize
	case c.PageSize > maxPageSize:
		c.PageSize = maxPageSize
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = defaultLoadTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}

	c.Namespace = strings.TrimSpace(c.Namespace)
	c.Environment = strings.TrimSpace(c.Environment)
	if c.Environment != "" && c.Namespace == "" {
		return fmt.Errorf("environment %q set without a namespace", c.Environment)
	}

	c.LogDir = strings.TrimSpace(c.LogDir)
	if c.LogDir == "" {
		c.LogDir = defaultLogDir
	}
	c.LogDir = mustExpand(c.LogDir)

	c.PrefsPath = strings.TrimSpace(c.PrefsPath)
	if c.PrefsPath == "" {
		c.PrefsPath = defaultPrefsPath
	}
	c.PrefsPath = mustExpand(c.PrefsPath)
	return nil
}

// LogPath returns the path of storeview's own log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/storeview.log")
	}
	return filepath.Join(c.LogDir, "storeview.log")
}

// HasSelection reports whether a namespace/environment pair is configured.
func (c Config) HasSelection() bool {
	return c.Namespace != "" && c.Environment != ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
