package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

// classifyReport is the output of the classify command.
type classifyReport struct {
	Rows      int                   `json:"rows"`
	Columns   core.Classification   `json:"columns"`
	Scan      core.ScanConfig       `json:"suggested_scan"`
	Reconcile core.ReconcileColumns `json:"suggested_reconcile"`
}

func newClassifyCmd(g *globalOptions) *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Infer column roles and suggest scan and reconcile settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := g.readTable(args[0])
			if err != nil {
				return err
			}
			c := core.NewClassifier(sample)
			return g.printJSON(cmd.OutOrStdout(), classifyReport{
				Rows:      len(t.Rows),
				Columns:   c.Classify(t),
				Scan:      c.SuggestScanConfig(t),
				Reconcile: c.SuggestReconcileColumns(t),
			})
		},
	}
	cmd.Flags().IntVar(&sample, "sample", core.DefaultClassifySample, "Non-empty values sampled per column")
	return cmd
}
