package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/danmuck/dstctl/internal/logging"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPath         = "dstctl.toml"
	DefaultBatchSize    = 256
	DefaultMaxBankBytes = 64 << 20
	DefaultStartOffset  = 8
)

// Config is the dstctl run configuration. Zero sizes and worker counts mean
// "use the default"; StartOffset is taken as given.
type Config struct {
	SchemaDir    string   `toml:"schema_dir"`
	Strict       bool     `toml:"strict"`
	Workers      int      `toml:"workers"`
	BatchSize    int      `toml:"batch_size"`
	MaxBytes     int64    `toml:"max_bytes"`
	MaxBankBytes int      `toml:"max_bank_bytes"`
	StartOffset  int      `toml:"start_offset"`
	MetricsAddr  string   `toml:"metrics_addr"`
	Banks        []string `toml:"banks"`
	Limit        int      `toml:"limit"`
	LogLevel     string   `toml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{StartOffset: DefaultStartOffset}
	ApplyDefaults(&cfg)
	return cfg
}

func ApplyDefaults(cfg *Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxBankBytes <= 0 {
		cfg.MaxBankBytes = DefaultMaxBankBytes
	}
}

// Load reads path over Default(), so keys absent from the file keep their
// default and present keys, including start_offset = 0, take effect.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields Default().
func LoadOptional(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func Validate(cfg Config) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("config workers must be positive, got %d", cfg.Workers)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("config batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.MaxBytes < 0 {
		return fmt.Errorf("config max_bytes must not be negative, got %d", cfg.MaxBytes)
	}
	if cfg.MaxBankBytes <= 0 {
		return fmt.Errorf("config max_bank_bytes must be positive, got %d", cfg.MaxBankBytes)
	}
	if cfg.StartOffset < 0 {
		return fmt.Errorf("config start_offset must not be negative, got %d", cfg.StartOffset)
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("config limit must not be negative, got %d", cfg.Limit)
	}
	if addr := strings.TrimSpace(cfg.MetricsAddr); addr != "" && !strings.Contains(addr, ":") {
		return fmt.Errorf("config metrics_addr must be host:port or :port, got %q", cfg.MetricsAddr)
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("config log_level unknown: %q", cfg.LogLevel)
		}
	}
	for i, name := range cfg.Banks {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("config banks[%d] is empty", i)
		}
	}
	return nil
}
