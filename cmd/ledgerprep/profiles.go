package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

func newProfilesCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "profiles [KEY]",
		Short: "List registered dataset profiles or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				p, ok := core.Get(args[0])
				if !ok {
					return fmt.Errorf("profile %q: %w", args[0], core.ErrProfileNotFound)
				}
				return g.printJSON(cmd.OutOrStdout(), p)
			}
			if asJSON {
				return g.printJSON(cmd.OutOrStdout(), core.All())
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tGROUP\tREQUIRED")
			for _, p := range core.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, p.Group, strings.Join(p.RequiredColumns(), ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print every profile as JSON")
	return cmd
}
