// Package config holds the GradeBench configuration file handling.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/gradebench/gradebench/internal/utils"
)

var (
	home, _            = os.UserHomeDir()
	DefaultConfigPath  = filepath.Join(home, ".gradebench", "config.json")
	DefaultDataDir     = filepath.Join(home, ".gradebench")
	DefaultDaemonAddr  = "localhost:7938"
	DefaultDaemonURL   = "http://localhost:7938"
	DefaultLogFilePath = filepath.Join(home, ".gradebench", "logs", "gradebench.log")
)

type Config struct {
	DataDir       string `json:"data_dir"`
	CanvasBaseURL string `json:"canvas_base_url"`
	CanvasToken   string `json:"canvas_token"`
	DaemonAddr    string `json:"daemon_addr"`
	DaemonURL     string `json:"daemon_url"`
	AuthToken     string `json:"auth_token,omitempty"`

	Path string `json:"-"`
}

// Validate normalizes paths and fills defaults. Canvas credentials are
// checked at daemon start, not here, so the CLI works without them.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	dataDir, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	c.DataDir = dataDir

	if c.Path != "" {
		path, err := filepath.Abs(c.Path)
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		c.Path = path
	}

	if c.DaemonAddr == "" {
		c.DaemonAddr = DefaultDaemonAddr
	}
	if c.DaemonURL == "" {
		c.DaemonURL = DefaultDaemonURL
	}
	if err := validateHTTPURL(c.DaemonURL); err != nil {
		return fmt.Errorf("daemon url: %w", err)
	}

	if c.CanvasBaseURL != "" {
		if err := validateHTTPURL(c.CanvasBaseURL); err != nil {
			return fmt.Errorf("canvas url: %w", err)
		}
	}

	return nil
}

// DBPath returns the SQLite database location inside the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "gradebench.db")
}

func (c *Config) Save() error {
	if c.Path == "" {
		return fmt.Errorf("config path not set")
	}
	if err := utils.EnsureParent(c.Path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.Path, data, 0o600)
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
