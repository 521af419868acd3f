// Package config provides configuration management for facematch.
// It loads configuration from YAML files with sensible defaults and
// allows selected settings to be overridden from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all facematch configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Camera      CameraConfig      `yaml:"camera"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds web server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	SessionTTL     int    `yaml:"session_ttl"`      // minutes before an idle session expires
	MaxUploadBytes int64  `yaml:"max_upload_bytes"` // reference image upload limit
}

// RecognitionConfig holds face recognition settings.
type RecognitionConfig struct {
	ModelPath string  `yaml:"model_path"`
	Threshold float64 `yaml:"threshold"` // descriptor distance below which two faces match
}

// CameraConfig holds local webcam settings used by the capture command.
type CameraConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// StorageConfig holds comparison history storage settings.
type StorageConfig struct {
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
	HistoryLimit      int    `yaml:"history_limit"` // most recent results kept on disk
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			SessionTTL:     30,
			MaxUploadBytes: 10 << 20,
		},
		Recognition: RecognitionConfig{
			ModelPath: filepath.Join(homeDir, ".local/share/facematch/models"),
			Threshold: 0.5,
		},
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
		},
		Storage: StorageConfig{
			DataDir:           filepath.Join(homeDir, ".local/share/facematch"),
			EncryptionEnabled: false,
			HistoryLimit:      200,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from the specified file on top of the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	config.applyEnv()
	return config, nil
}

// LoadDefault tries to load configuration from default locations.
// Missing files are not an error, the defaults apply.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("/etc/facematch/facematch.yaml"); err == nil {
		return Load("/etc/facematch/facematch.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfig := filepath.Join(homeDir, ".config/facematch/facematch.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return Load(userConfig)
		}
	}

	config := DefaultConfig()
	config.applyEnv()
	return config, nil
}

// applyEnv overrides deployment knobs from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("FACEMATCH_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("FACEMATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("FACEMATCH_MODEL_PATH"); v != "" {
		c.Recognition.ModelPath = v
	}
	if v := os.Getenv("FACEMATCH_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("FACEMATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Recognition.ModelPath = ExpandPath(c.Recognition.ModelPath)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Camera.Device = ExpandPath(c.Camera.Device)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %d", c.Server.SessionTTL)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}

	if c.Recognition.Threshold <= 0 || c.Recognition.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", c.Recognition.Threshold)
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	if c.Storage.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.Storage.HistoryLimit)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// EnsureDirectories creates the storage and model directories.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(c.Recognition.ModelPath, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return nil
}

// HistoryPath returns the path of the comparison history file.
func (c *Config) HistoryPath() string {
	name := "history.json"
	if c.Storage.EncryptionEnabled {
		name = "history.enc"
	}
	return filepath.Join(c.Storage.DataDir, name)
}
