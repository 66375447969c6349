package config

import (
	"fmt"
	"os"
)

func Template() string {
	return defaultTemplate
}

// WriteTemplate writes the annotated default configuration to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# dstctl configuration
# directory of *.yaml / *.yml / *.toml bank layouts
schema_dir = "schemas"

# fail on the first stream anomaly instead of resynchronising
strict = false

# decode workers; 0 means GOMAXPROCS
workers = 0
batch_size = 256

# stop after this many input bytes; 0 means unlimited
max_bytes = 0
max_bank_bytes = 67108864

# payload offset where schema layouts start (after bank id and version)
start_offset = 8

# serve /metrics, /health and /status while running, e.g. ":9464"
metrics_addr = ""

# bank names to keep; empty keeps every known bank
banks = []

# stop after this many events; 0 means unlimited
limit = 0

log_level = "info"
`
