package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDecodersCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "decoders",
		Short: "List registered bank decoders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := g.registry()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKIND\tDESCRIPTION")
			for _, m := range reg.ListMetadata() {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Name, m.Kind, m.Description)
			}
			return tw.Flush()
		},
	}
}
