package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the client.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	UserID         string        `yaml:"user_id"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	StaleTime      time.Duration `yaml:"stale_time"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DBPath         string        `yaml:"db_path"`
	Debug          bool          `yaml:"debug"`
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		APIURL:         "http://localhost:8080",
		UserID:         "local-user",
		RetryAttempts:  3,
		RetryDelay:     time.Second,
		StaleTime:      30 * time.Second,
		RequestTimeout: 15 * time.Second,
		DBPath:         defaultDir("taskdeck.db"),
	}
}

// Load reads configuration: defaults, then the YAML file, then the
// environment (including a .env file in the working directory).
func Load() (Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit .env files; missing files are skipped
func LoadFiles(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()

	path := strings.TrimSpace(os.Getenv("TASKDECK_CONFIG"))
	explicit := path != ""
	if !explicit {
		path = defaultDir("config.yaml")
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return Config{}, err
	}

	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path; a missing file is only an error
// when it was named explicitly
func (c *Config) mergeFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := env("TASKDECK_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := env("TASKDECK_USER_ID"); v != "" {
		c.UserID = v
	}
	if v := env("TASKDECK_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := env("TASKDECK_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_RETRY_ATTEMPTS: %w", err)
		}
		c.RetryAttempts = n
	}
	if v := env("TASKDECK_RETRY_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_RETRY_DELAY_MS: %w", err)
		}
		c.RetryDelay = time.Duration(ms) * time.Millisecond
	}
	if v := env("TASKDECK_STALE_TIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_STALE_TIME: %w", err)
		}
		c.StaleTime = d
	}
	if v := env("TASKDECK_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v := env("TASKDECK_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKDECK_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

// Validate checks the settings are usable
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url %q must be an absolute http(s) url", c.APIURL)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("user id must not be empty")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must be 0 or greater, got %d", c.RetryAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be 0 or greater, got %s", c.RetryDelay)
	}
	if c.StaleTime <= 0 {
		return fmt.Errorf("stale time must be positive, got %s", c.StaleTime)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must be 0 or greater, got %s", c.RequestTimeout)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// defaultDir returns ~/.taskdeck/name, or name alone when there is no home
func defaultDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".taskdeck", name)
}
