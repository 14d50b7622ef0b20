package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const configFileName = "segfetch"

const (
	StoreText  = "text"
	StoreBbolt = "bbolt"
)

var ErrInvalidStore = errors.New("invalid progress store")

// Config holds the configuration options for the application.
type Config struct {
	Http    *HttpConfig    `yaml:"http,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Network *NetworkConfig `yaml:"network,omitempty"`
}

// HttpConfig holds configuration options for HTTP downloads.
type HttpConfig struct {
	DownloadDir      string        `yaml:"dir,omitempty"`
	TempDir          string        `yaml:"tempDir,omitempty"`
	Chunks           int           `yaml:"chunks,omitempty"`
	BufferSize       int           `yaml:"bufferSize,omitempty"`
	ProgressInterval time.Duration `yaml:"progressInterval,omitempty"`
}

// StorageConfig selects where chunk progress and download snapshots live.
type StorageConfig struct {
	Store  string `yaml:"store,omitempty"`
	DBPath string `yaml:"dbPath,omitempty"`
}

// NetworkConfig controls the connectivity check done when a download fails.
type NetworkConfig struct {
	DisableCheck bool   `yaml:"disableNetworkCheck,omitempty"`
	Probe        string `yaml:"networkProbe,omitempty"`
}

// Path returns the location of the configuration file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, configFileName)
}

// GetConfig reads the configuration file and returns a Config struct.
// If the configuration file does not exist, it returns the default configuration.
func GetConfig() (*Config, error) {
	defaults := DefaultConfig()

	b, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, err
	}

	httpCfg := zeroOr(cfg.Http, defaults.Http)
	storageCfg := zeroOr(cfg.Storage, defaults.Storage)
	networkCfg := zeroOr(cfg.Network, defaults.Network)

	merged := &Config{
		Http: &HttpConfig{
			DownloadDir:      zeroOr(httpCfg.DownloadDir, defaults.Http.DownloadDir),
			TempDir:          zeroOr(httpCfg.TempDir, defaults.Http.TempDir),
			Chunks:           zeroOr(httpCfg.Chunks, defaults.Http.Chunks),
			BufferSize:       zeroOr(httpCfg.BufferSize, defaults.Http.BufferSize),
			ProgressInterval: zeroOr(httpCfg.ProgressInterval, defaults.Http.ProgressInterval),
		},
		Storage: &StorageConfig{
			Store:  zeroOr(storageCfg.Store, defaults.Storage.Store),
			DBPath: zeroOr(storageCfg.DBPath, defaults.Storage.DBPath),
		},
		Network: &NetworkConfig{
			DisableCheck: zeroOr(networkCfg.DisableCheck, defaults.Network.DisableCheck),
			Probe:        zeroOr(networkCfg.Probe, defaults.Network.Probe),
		},
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}

	return merged, nil
}

// Validate rejects values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Storage.Store {
	case StoreText, StoreBbolt:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidStore, c.Storage.Store, StoreText, StoreBbolt)
	}

	if c.Http.Chunks < 0 {
		return fmt.Errorf("chunks must not be negative, got %d", c.Http.Chunks)
	}

	return nil
}

func DefaultConfig() Config {
	return Config{
		Http: &HttpConfig{
			DownloadDir:      downloadDir,
			TempDir:          tempDir,
			Chunks:           chunks,
			BufferSize:       bufferSize,
			ProgressInterval: progressInterval,
		},
		Storage: &StorageConfig{
			Store:  store,
			DBPath: dbPath,
		},
		Network: &NetworkConfig{
			DisableCheck: disableNetworkCheck,
			Probe:        networkProbe,
		},
	}
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
