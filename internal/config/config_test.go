package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/danmuck/dstctl/internal/testutil/testlog"
)

func TestLoadAppliesDefaults(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "dstctl.toml")
	if err := os.WriteFile(path, []byte("schema_dir = \"layouts\"\nbanks = [\"hcbin\", \"prfc\"]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SchemaDir != "layouts" {
		t.Fatalf("expected schema_dir layouts, got %q", cfg.SchemaDir)
	}
	if cfg.Workers != runtime.GOMAXPROCS(0) {
		t.Fatalf("expected default workers, got %d", cfg.Workers)
	}
	if cfg.BatchSize != DefaultBatchSize || cfg.MaxBankBytes != DefaultMaxBankBytes || cfg.StartOffset != DefaultStartOffset {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Banks) != 2 || cfg.Banks[1] != "prfc" {
		t.Fatalf("unexpected banks %v", cfg.Banks)
	}
}

func TestLoadKeepsExplicitZeroStartOffset(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "dstctl.toml")
	if err := os.WriteFile(path, []byte("start_offset = 0\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StartOffset != 0 {
		t.Fatalf("expected start_offset 0, got %d", cfg.StartOffset)
	}
	if Default().StartOffset != DefaultStartOffset {
		t.Fatalf("expected default start_offset %d, got %d", DefaultStartOffset, Default().StartOffset)
	}
}

func TestTemplateLoads(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "dstctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Strict || cfg.Limit != 0 || cfg.SchemaDir != "schemas" {
		t.Fatalf("unexpected template config %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"negative limit":   "limit = -1\n",
		"bad metrics addr": "metrics_addr = \"localhost\"\n",
		"bad log level":    "log_level = \"loud\"\n",
		"empty bank name":  "banks = [\"\"]\n",
		"negative budget":  "max_bytes = -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dstctl.toml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	testlog.Start(t)

	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadParseError(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), "dstctl.toml")
	if err := os.WriteFile(path, []byte("workers = \"many\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "config parse failed") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
