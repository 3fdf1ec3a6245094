// Package config loads user settings from ~/.etapas and merges them with
// environment variables and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL = "http://localhost:3000/api"
	DefaultTimeout    = 10 * time.Second
	DefaultListRetry  = 3 * time.Second
	DefaultLogLevel   = "info"
	DefaultTheme      = "auto"
)

const (
	EnvConfigDir = "ETAPAS_CONFIG_DIR"
	EnvAPIURL    = "ETAPAS_API_URL"
	EnvAPIToken  = "ETAPAS_API_TOKEN"
	EnvTimeout   = "ETAPAS_TIMEOUT"
	EnvLogLevel  = "ETAPAS_LOG_LEVEL"
	EnvLogFile   = "ETAPAS_LOG_FILE"
	EnvTUITheme  = "ETAPAS_TUI_THEME"
)

// Config is the on-disk file. Durations are strings ("10s", "1m").
type Config struct {
	APIBaseURL string     `json:"apiBaseURL,omitempty" yaml:"apiBaseURL,omitempty"`
	APIToken   string     `json:"apiToken,omitempty" yaml:"apiToken,omitempty"`
	Timeout    string     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ListRetry  string     `json:"listRetry,omitempty" yaml:"listRetry,omitempty"`
	LogLevel   string     `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFile    string     `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	TUI        *TUIConfig `json:"tui,omitempty" yaml:"tui,omitempty"`
}

type TUIConfig struct {
	// Theme is light, dark or auto (follow the terminal background).
	Theme string `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// Settings is the effective configuration after every layer is applied.
type Settings struct {
	APIBaseURL string
	APIToken   string
	Timeout    time.Duration
	ListRetry  time.Duration
	LogLevel   string
	LogFile    string
	Theme      string
}

// Overrides come from flags. Empty fields leave lower layers alone.
type Overrides struct {
	APIBaseURL string
	APIToken   string
	Timeout    string
	LogLevel   string
}

func Dir() (string, error) {
	// Keeps tests from touching ~/.etapas.
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".etapas"), nil
}

// Path returns config.json unless only config.yaml (or .yml) exists.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	jsonPath := filepath.Join(dir, "config.json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return jsonPath, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the config file. A missing file is an empty config.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(b, &cfg)
	} else {
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// Save writes cfg to Path in the format its extension names.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var b []byte
	if isYAML(path) {
		b, err = yaml.Marshal(cfg)
	} else {
		b, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	// The file may hold an API token.
	return atomicWriteFile(dir, filepath.Base(path)+".*.tmp", path, b, 0o600)
}

// Resolve layers defaults < file < environment < flags.
func Resolve(cfg *Config, o Overrides) (Settings, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	s := Settings{
		APIBaseURL: DefaultAPIBaseURL,
		Timeout:    DefaultTimeout,
		ListRetry:  DefaultListRetry,
		LogLevel:   DefaultLogLevel,
		Theme:      DefaultTheme,
	}
	theme := ""
	if cfg.TUI != nil {
		theme = cfg.TUI.Theme
	}

	layers := []struct {
		source                                   string
		url, token, timeout, retry, level, logTo string
		theme                                    string
	}{
		{"config file", cfg.APIBaseURL, cfg.APIToken, cfg.Timeout, cfg.ListRetry, cfg.LogLevel, cfg.LogFile, theme},
		{"environment", os.Getenv(EnvAPIURL), os.Getenv(EnvAPIToken), os.Getenv(EnvTimeout), "", os.Getenv(EnvLogLevel), os.Getenv(EnvLogFile), os.Getenv(EnvTUITheme)},
		{"flags", o.APIBaseURL, o.APIToken, o.Timeout, "", o.LogLevel, "", ""},
	}
	for _, l := range layers {
		if v := strings.TrimSpace(l.url); v != "" {
			s.APIBaseURL = v
		}
		if v := strings.TrimSpace(l.token); v != "" {
			s.APIToken = v
		}
		if v := strings.TrimSpace(l.timeout); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				return Settings{}, fmt.Errorf("%s: timeout: %w", l.source, err)
			}
			s.Timeout = d
		}
		if v := strings.TrimSpace(l.retry); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				return Settings{}, fmt.Errorf("%s: listRetry: %w", l.source, err)
			}
			s.ListRetry = d
		}
		if v := strings.TrimSpace(l.level); v != "" {
			s.LogLevel = strings.ToLower(v)
		}
		if v := strings.TrimSpace(l.logTo); v != "" {
			s.LogFile = v
		}
		if v := strings.TrimSpace(l.theme); v != "" {
			s.Theme = strings.ToLower(v)
		}
	}

	if err := checkURL(s.APIBaseURL); err != nil {
		return Settings{}, err
	}
	switch s.Theme {
	case "auto", "light", "dark":
	default:
		return Settings{}, fmt.Errorf("invalid tui theme %q (want auto, light or dark)", s.Theme)
	}
	return s, nil
}

func parseDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", v)
	}
	return d, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid api url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q: want http(s)://host/path", raw)
	}
	return nil
}

var setters = map[string]func(*Config, string) error{
	"apiBaseURL": func(c *Config, v string) error {
		if v != "" {
			if err := checkURL(v); err != nil {
				return err
			}
		}
		c.APIBaseURL = v
		return nil
	},
	"apiToken": func(c *Config, v string) error { c.APIToken = v; return nil },
	"timeout": func(c *Config, v string) error {
		if v != "" {
			if _, err := parseDuration(v); err != nil {
				return err
			}
		}
		c.Timeout = v
		return nil
	},
	"listRetry": func(c *Config, v string) error {
		if v != "" {
			if _, err := parseDuration(v); err != nil {
				return err
			}
		}
		c.ListRetry = v
		return nil
	},
	"logLevel": func(c *Config, v string) error { c.LogLevel = v; return nil },
	"logFile":  func(c *Config, v string) error { c.LogFile = v; return nil },
	"tui.theme": func(c *Config, v string) error {
		switch v {
		case "", "auto", "light", "dark":
		default:
			return fmt.Errorf("invalid tui theme %q", v)
		}
		if c.TUI == nil {
			c.TUI = &TUIConfig{}
		}
		c.TUI.Theme = v
		return nil
	},
}

// Keys lists the names accepted by Set.
func Keys() []string {
	out := make([]string, 0, len(setters))
	for k := range setters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set assigns one key. An empty value clears it.
func (c *Config) Set(key, value string) error {
	fn, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return fn(c, strings.TrimSpace(value))
}
