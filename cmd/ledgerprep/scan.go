package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

type scanOptions struct {
	profile      string
	keys         []string
	numeric      []string
	dates        []string
	noOutliers   bool
	noDuplicates bool
	noSuspicious bool
	z            float64
	emptyRatio   float64
	output       string
}

// scanReport is the printed summary of a scan.
type scanReport struct {
	Config      core.ScanConfig             `json:"config"`
	Counts      core.ScanCounts             `json:"counts"`
	FlaggedRows int                         `json:"flagged_rows"`
	MostlyEmpty []string                    `json:"mostly_empty"`
	Stats       map[string]core.ColumnStats `json:"stats"`
}

func newScanCmd(g *globalOptions) *cobra.Command {
	o := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan FILE",
		Short: "Flag missing values, type mismatches, outliers, duplicates and bad dates",
		Long: `scan runs the anomaly checks over FILE. Columns not named with --keys,
--numeric or --dates come from --profile or, failing that, from the classifier.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := g.readTable(args[0])
			if err != nil {
				return err
			}
			cfg, err := o.config(t)
			if err != nil {
				return err
			}

			res := core.Scan(t, cfg)
			g.logger(cmd).Info("scan complete", "file", args[0], "flagged_rows", len(res.Issues))

			if o.output != "" {
				if err := g.writeTable(cmd.OutOrStdout(), o.output, res.Export); err != nil {
					return err
				}
			}
			return g.printJSON(cmd.OutOrStdout(), scanReport{
				Config:      cfg,
				Counts:      res.Counts,
				FlaggedRows: len(res.Issues),
				MostlyEmpty: res.MostlyEmpty,
				Stats:       res.Stats,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.profile, "profile", "", "Take columns from a registered profile (see 'profiles')")
	f.StringSliceVar(&o.keys, "keys", nil, "Key columns for the duplicate check")
	f.StringSliceVar(&o.numeric, "numeric", nil, "Numeric columns")
	f.StringSliceVar(&o.dates, "dates", nil, "Date columns")
	f.BoolVar(&o.noOutliers, "no-outliers", false, "Skip the outlier check")
	f.BoolVar(&o.noDuplicates, "no-duplicates", false, "Skip the duplicate check")
	f.BoolVar(&o.noSuspicious, "no-suspicious", false, "Skip the suspicious-value check")
	f.Float64Var(&o.z, "z", core.DefaultZThreshold, "Outlier z-score threshold")
	f.Float64Var(&o.emptyRatio, "empty-ratio", core.DefaultMostlyEmptyRatio, "Report columns at least this empty")
	f.StringVarP(&o.output, "output", "o", "", "Write flagged rows to this file (.csv, .xlsx, .json)")
	return cmd
}

// config builds the scan configuration from flags over a profile or
// classifier suggestion.
func (o *scanOptions) config(t *core.Table) (core.ScanConfig, error) {
	var cfg core.ScanConfig
	switch {
	case o.profile != "":
		p, ok := core.Get(o.profile)
		if !ok {
			return cfg, fmt.Errorf("profile %q: %w", o.profile, core.ErrProfileNotFound)
		}
		cfg = p.ScanConfig()
	case len(o.keys)+len(o.numeric)+len(o.dates) == 0:
		cfg = core.NewClassifier(0).SuggestScanConfig(t)
	default:
		cfg = core.DefaultScanConfig()
	}

	if len(o.keys) > 0 {
		cfg.KeyColumns = o.keys
	}
	if len(o.numeric) > 0 {
		cfg.NumericColumns = o.numeric
	}
	if len(o.dates) > 0 {
		cfg.DateColumns = o.dates
	}
	cfg.CheckOutliers = !o.noOutliers
	cfg.CheckDuplicates = !o.noDuplicates
	cfg.CheckSuspicious = !o.noSuspicious
	cfg.ZThreshold = o.z
	cfg.MostlyEmptyRatio = o.emptyRatio

	for _, col := range append(append(append([]string{}, cfg.KeyColumns...), cfg.NumericColumns...), cfg.DateColumns...) {
		if !t.HasColumn(col) {
			return cfg, fmt.Errorf("column %q: %w", col, core.ErrUnknownColumn)
		}
	}
	return cfg, nil
}
