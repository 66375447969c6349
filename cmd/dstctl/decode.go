package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/danmuck/dstctl/internal/observability"
	"github.com/danmuck/dstctl/internal/pipeline"
	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/danmuck/dstctl/internal/sink"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDecodeCommand(g *globals) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode banks and write events as JSON lines",
		Long: "Decode every known bank of the given DST files (plain, .gz or .bz2),\n" +
			"group them into events and write one JSON object per event.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFiles(args); err != nil {
				return err
			}
			return runDecode(cmd.Context(), g, output, args)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output path; '-' is stdout, .gz compresses")
	return cmd
}

func runDecode(ctx context.Context, g *globals, output string, files []string) error {
	reg, err := g.registry()
	if err != nil {
		return err
	}
	sel, err := reg.Select(g.cfg.Banks)
	if err != nil {
		return err
	}

	runner := pipeline.New(reg, pipeline.Options{
		Workers:   g.cfg.Workers,
		BatchSize: g.cfg.BatchSize,
		Demux:     g.demuxOptions(),
		Select:    sel,
		Limit:     g.cfg.Limit,
	})
	out, err := sink.Create(output, runner.RunID())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	grp, ctx := errgroup.WithContext(ctx)
	if g.cfg.MetricsAddr != "" {
		router := observability.NewRouter(runner.RunID(), func() any { return runner.Stats() })
		grp.Go(func() error {
			return observability.Serve(ctx, g.cfg.MetricsAddr, router)
		})
	}

	grp.Go(func() error {
		defer cancel()
		for _, path := range files {
			if err := decodeFile(ctx, runner, out, path); err != nil {
				return err
			}
		}
		return nil
	})

	err = grp.Wait()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	runner.LogSummary()
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("decode interrupted")
	}
	return err
}

func decodeFile(ctx context.Context, runner *pipeline.Runner, out *sink.Writer, path string) error {
	f, err := frame.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	log.Info().Str("file", path).Str("run_id", runner.RunID()).Msg("decoding")
	if err := runner.Run(ctx, f, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
