package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/dstctl/internal/config"
	"github.com/danmuck/dstctl/internal/dispatch"
	"github.com/danmuck/dstctl/internal/logging"
	"github.com/danmuck/dstctl/internal/protocol"
	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/danmuck/dstctl/internal/protocol/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// globals holds persistent flags and the configuration resolved from them.
type globals struct {
	configPath  string
	schemaDir   string
	logLevel    string
	metricsAddr string
	strict      bool
	workers     int
	maxBytes    int64
	banks       []string
	limit       int
	startOffset int

	cfg config.Config
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "dstctl",
		Short:         "Decode DST physics tape files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			return g.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", config.DefaultPath, "path to dstctl.toml (missing file uses defaults)")
	flags.StringVar(&g.schemaDir, "schemas", "", "directory of bank layout definitions")
	flags.StringVar(&g.logLevel, "log-level", "", "trace|debug|info|warn|error|off")
	flags.StringVar(&g.metricsAddr, "metrics-addr", "", "serve /metrics, /health and /status on this address")
	flags.BoolVar(&g.strict, "strict", false, "fail on the first stream anomaly")
	flags.IntVar(&g.workers, "workers", 0, "decode workers")
	flags.Int64Var(&g.maxBytes, "max-bytes", 0, "stop reading after this many bytes per file")
	flags.StringSliceVar(&g.banks, "banks", nil, "bank names to keep (comma separated)")
	flags.IntVar(&g.limit, "limit", 0, "stop after this many events")
	flags.IntVar(&g.startOffset, "start-offset", config.DefaultStartOffset, "payload offset where schema layouts start")

	root.AddCommand(
		newDecodeCommand(g),
		newBanksCommand(g),
		newValidateCommand(g),
		newPackCommand(g),
		newDecodersCommand(g),
		newInitCommand(g),
	)
	return root
}

// resolve loads the config file and lets explicitly set flags override it.
func (g *globals) resolve(cmd *cobra.Command) error {
	cfg, err := config.LoadOptional(g.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("schemas") {
		cfg.SchemaDir = g.schemaDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = g.metricsAddr
	}
	if flags.Changed("strict") {
		cfg.Strict = g.strict
	}
	if flags.Changed("workers") {
		cfg.Workers = g.workers
	}
	if flags.Changed("max-bytes") {
		cfg.MaxBytes = g.maxBytes
	}
	if flags.Changed("banks") {
		cfg.Banks = g.banks
	}
	if flags.Changed("limit") {
		cfg.Limit = g.limit
	}
	if flags.Changed("start-offset") {
		cfg.StartOffset = g.startOffset
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		zerolog.SetGlobalLevel(lvl)
	}
	g.cfg = cfg
	log.Debug().
		Str("config", g.configPath).
		Str("schema_dir", cfg.SchemaDir).
		Int("workers", cfg.Workers).
		Bool("strict", cfg.Strict).
		Msg("configuration resolved")
	return nil
}

func (g *globals) demuxOptions() frame.Options {
	return frame.Options{
		Strict:       g.cfg.Strict,
		MaxBytes:     g.cfg.MaxBytes,
		MaxBankBytes: g.cfg.MaxBankBytes,
	}
}

// catalog loads the schema directory. A missing directory leaves the
// catalog empty so the built-in fit and marker decoders still run.
func (g *globals) catalog() (*schema.Catalog, error) {
	c := schema.NewCatalog()
	dir := strings.TrimSpace(g.cfg.SchemaDir)
	if dir == "" {
		return c, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("schema_dir", dir).Msg("schema directory not found; using built-in decoders only")
		return c, nil
	}
	if err := c.LoadDir(dir); err != nil {
		return nil, err
	}
	log.Info().Str("schema_dir", dir).Int("schemas", c.Len()).Msg("schemas loaded")
	return c, nil
}

func (g *globals) registry() (*dispatch.Registry, error) {
	c, err := g.catalog()
	if err != nil {
		return nil, err
	}
	return dispatch.New(c, protocol.WithOffset(g.cfg.StartOffset))
}

func requireFiles(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one input file is required")
	}
	return nil
}
