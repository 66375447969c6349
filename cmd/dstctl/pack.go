package main

import (
	"fmt"
	"os"

	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type packArgs struct {
	output  string
	id      int32
	version int32
	raw     bool
}

func newPackCommand(g *globals) *cobra.Command {
	var a packArgs
	cmd := &cobra.Command{
		Use:   "pack -o OUT BANK...",
		Short: "Wrap bank payload files into a DST block stream",
		Long: "Each input file holds one bank payload starting with its id and version.\n" +
			"With --raw the files hold only the body and --id/--version supply the header.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFiles(args); err != nil {
				return err
			}
			if a.output == "" {
				return fmt.Errorf("--output is required")
			}
			return runPack(a, args)
		},
	}
	cmd.Flags().StringVarP(&a.output, "output", "o", "", "output DST file")
	cmd.Flags().BoolVar(&a.raw, "raw", false, "inputs are bank bodies without the id/version header")
	cmd.Flags().Int32Var(&a.id, "id", 0, "bank id for --raw inputs")
	cmd.Flags().Int32Var(&a.version, "version", 0, "bank version for --raw inputs")
	return cmd
}

func runPack(a packArgs, inputs []string) (err error) {
	f, err := os.Create(a.output)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := frame.NewWriter(f)
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("pack: %w", err)
		}
		if a.raw {
			data = frame.EncodeBank(a.id, a.version, data)
		}
		if err := w.WriteBank(data); err != nil {
			return fmt.Errorf("pack %s: %w", path, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("pack: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	log.Info().
		Str("output", a.output).
		Int64("banks", w.Banks()).
		Str("size", humanize.Bytes(uint64(info.Size()))).
		Msg("packed")
	return nil
}
