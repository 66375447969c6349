package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/dstctl/internal/dispatch"
	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/danmuck/dstctl/internal/protocol/schema"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// maxReportedFailures caps decode failures reported per file.
const maxReportedFailures = 20

func newValidateCommand(g *globals) *cobra.Command {
	var schemasOnly bool
	cmd := &cobra.Command{
		Use:   "validate [FILE...]",
		Short: "Check schema definitions and the framing and decoding of DST files",
		Long: "Load every definition in the schema directory, then read each file with\n" +
			"a strict demuxer and decode every known bank. All problems are reported\n" +
			"together; the command fails if any were found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			errs := validateSchemas(g.cfg.SchemaDir)
			if schemasOnly {
				return errs
			}
			reg, err := g.registry()
			if err != nil {
				return multierr.Append(errs, err)
			}
			opts := g.demuxOptions()
			opts.Strict = true
			for _, path := range args {
				errs = multierr.Append(errs, validateFile(cmd.Context(), reg, opts, path))
			}
			if errs == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %d file(s), %d decoder(s)\n", len(args), reg.Len())
			}
			return errs
		},
	}
	cmd.Flags().BoolVar(&schemasOnly, "schemas-only", false, "only validate the schema directory")
	return cmd
}

func validateSchemas(dir string) error {
	if dir == "" {
		return nil
	}
	failures, err := schema.NewCatalog().LoadDirAll(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("schema_dir", dir).Msg("schema directory not found")
			return nil
		}
		return err
	}
	return multierr.Combine(failures...)
}

func validateFile(ctx context.Context, reg *dispatch.Registry, opts frame.Options, path string) error {
	f, err := frame.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var errs error
	failed := 0
	d := frame.NewDemuxer(f, opts)
	for {
		b, err := d.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
		}
		if _, ok := reg.Resolve(b.ID); !ok {
			continue
		}
		if _, err := reg.Decode(b); err != nil {
			failed++
			if failed <= maxReportedFailures {
				errs = multierr.Append(errs, fmt.Errorf("%s: offset %d: %w", path, b.Offset, err))
			}
		}
	}
	if failed > maxReportedFailures {
		errs = multierr.Append(errs, fmt.Errorf("%s: %d more decode failures", path, failed-maxReportedFailures))
	}
	s := d.Stats()
	log.Info().Str("file", path).Int64("banks", s.Banks).Int("failed", failed).Msg("validated")
	return errs
}
