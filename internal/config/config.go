// Package config loads the retrodb CLI configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the CLI.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Build    BuildConfig    `yaml:"build"`
	Store    StoreConfig    `yaml:"store"`
	Transfer TransferConfig `yaml:"transfer"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// BuildConfig holds dataset build defaults.
type BuildConfig struct {
	DType       string `yaml:"dtype"`
	ChunkSize   int    `yaml:"chunk_size"`
	PadID       int64  `yaml:"pad_id"`
	RetrievalDB bool   `yaml:"retrieval_db"`
}

// StoreConfig selects the blob store corpora are published to.
type StoreConfig struct {
	Kind     string `yaml:"kind"` // local, s3 or minio
	Root     string `yaml:"root"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	// AccessKey and SecretKey are only used by minio; s3 uses the default
	// AWS credential chain.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Insecure  bool   `yaml:"insecure"`
}

// TransferConfig bounds publish and fetch.
type TransferConfig struct {
	Compression            string `yaml:"compression"`
	MaxConcurrentTransfers int64  `yaml:"max_concurrent_transfers"`
	IOLimitBytesPerSec     int64  `yaml:"io_limit_bytes_per_sec"`
	MemoryLimitBytes       int64  `yaml:"memory_limit_bytes"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Store.Root = expandPath(cfg.Store.Root, filepath.Dir(path))
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects values the CLI cannot act on.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case "local":
	case "s3", "minio":
		if c.Store.Bucket == "" {
			return fmt.Errorf("config: store kind %q needs a bucket", c.Store.Kind)
		}
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind == "minio" && c.Store.Endpoint == "" {
		return fmt.Errorf("config: store kind minio needs an endpoint")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Build.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive, got %d", c.Build.ChunkSize)
	}
	return nil
}

// expandPath makes a relative path absolute against configDir.
// A leading "~/" refers to the home directory.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
		return path
	}
	return filepath.Join(configDir, path)
}
