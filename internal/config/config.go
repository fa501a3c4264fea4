// Package config loads client settings from TOML files, the environment and flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DirName         = ".tada"
	UserConfigName  = "config.toml"
	DefaultLogFile  = "client.log"
	DefaultTheme    = "classic"
	DefaultLogLevel = "info"
)

var projectConfigNames = []string{"tada.toml", ".tada.toml"}

// ErrNoAPIURL is returned by RequireAPIURL when no base URL is configured.
var ErrNoAPIURL = errors.New("api url not configured")

// Config holds every client setting.
type Config struct {
	APIURL      string `toml:"api_url"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
	LogFile     string `toml:"log_file"`
	Theme       string `toml:"theme"`
	MetricsAddr string `toml:"metrics_addr"`

	// Group splits the plain list into pending and done. Flag only.
	Group bool `toml:"-"`
}

// Load resolves configuration in priority order:
// 1. Defaults
// 2. User config file (~/.tada/config.toml)
// 3. Project config file (tada.toml or .tada.toml in the current directory)
// 4. Environment variables (TADA_*)
// 5. CLI flags
//
// It returns the remaining non-flag arguments.
func Load(fs *flag.FlagSet, args []string) (*Config, []string, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if p := findUserConfigFile(); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}
	if p := findProjectConfigFile(); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, nil, fmt.Errorf("loading project config file %s: %w", p, err)
		}
	}

	loadFromEnv(cfg)

	rest, err := parseFlags(cfg, fs, args)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}
	return cfg, rest, nil
}

func setDefaults(cfg *Config) {
	cfg.LogLevel = DefaultLogLevel
	cfg.LogFormat = "text"
	cfg.Theme = DefaultTheme
	if dir, err := Dir(); err == nil {
		cfg.LogFile = filepath.Join(dir, DefaultLogFile)
	}
}

// Dir is ~/.tada.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

func findUserConfigFile() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, UserConfigName)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func findProjectConfigFile() string {
	for _, name := range projectConfigNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// loadConfigFile decodes path over cfg; keys absent from the file keep their value.
func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("TADA_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("TADA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TADA_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TADA_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("TADA_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("TADA_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) ([]string, error) {
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "todo API base URL")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text|json|logfmt)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file used while the interactive list runs")
	fs.StringVar(&cfg.Theme, "theme", cfg.Theme, "color theme (classic|neon|mono)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve client metrics on this address (e.g. :9100)")
	// Root flags (apply to every subcommand)
	fs.BoolVar(&cfg.Group, "group", false, "group plain output by pending/done")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// RequireAPIURL returns the trimmed API URL or ErrNoAPIURL.
func (c *Config) RequireAPIURL() (string, error) {
	u := strings.TrimSpace(c.APIURL)
	if u == "" {
		return "", ErrNoAPIURL
	}
	return u, nil
}
