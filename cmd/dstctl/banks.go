package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/danmuck/dstctl/internal/dispatch"
	"github.com/danmuck/dstctl/internal/protocol/frame"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBanksCommand(g *globals) *cobra.Command {
	var maxRows int
	cmd := &cobra.Command{
		Use:   "banks FILE...",
		Short: "List the banks of DST files without decoding them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFiles(args); err != nil {
				return err
			}
			reg, err := g.registry()
			if err != nil {
				return err
			}
			for _, path := range args {
				if err := listBanks(cmd.Context(), cmd.OutOrStdout(), reg, g.demuxOptions(), maxRows, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "list at most this many banks per file; 0 lists all")
	return cmd
}

// listBanks prints one row per bank; maxRows caps the rows, 0 means all.
func listBanks(ctx context.Context, out io.Writer, reg *dispatch.Registry, opts frame.Options, maxRows int, path string) error {
	f, err := frame.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	d := frame.NewDemuxer(f, opts)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# %s\n", path)
	fmt.Fprintln(tw, "OFFSET\tID\tVERSION\tNAME\tSIZE")
	for n := 0; maxRows <= 0 || n < maxRows; n++ {
		b, err := d.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			tw.Flush()
			return fmt.Errorf("%s: %w", path, err)
		}
		name := "-"
		if dec, ok := reg.Resolve(b.ID); ok {
			name = dec.Metadata().Name
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%d\n", b.Offset, b.ID, b.Version, name, len(b.Payload))
	}
	s := d.Stats()
	fmt.Fprintf(tw, "# blocks=%d read=%s banks=%d dropped=%d warnings=%d\n",
		s.Blocks, humanize.Bytes(uint64(s.BytesRead)), s.Banks, s.DroppedBanks, s.Warnings)
	return tw.Flush()
}
