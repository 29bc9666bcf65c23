// Package main provides the command-line front end for ledgerprep: classify,
// scan, clean and reconcile ledger files without running the server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgerprep/internal/core"
	_ "github.com/JonMunkholm/ledgerprep/internal/core/profiles" // Register dataset profiles
	"github.com/JonMunkholm/ledgerprep/internal/ingest"
	"github.com/JonMunkholm/ledgerprep/internal/logging"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	logLevel string
	sheet    string
	raw      bool
	bom      bool
	pretty   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "ledgerprep",
		Short: "Clean, scan and reconcile accounting exports",
		Long: `ledgerprep loads CSV, XLSX or JSON ledger extracts, applies cleaning
recipes, flags anomalies and ties GL detail out against a trial balance.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.sheet, "sheet", "", "XLSX sheet to read (default: first sheet)")
	root.PersistentFlags().BoolVar(&g.raw, "raw", false, "Keep every cell as text")
	root.PersistentFlags().BoolVar(&g.bom, "bom", false, "Write a UTF-8 BOM before CSV output")
	root.PersistentFlags().BoolVar(&g.pretty, "pretty", true, "Pretty-print JSON output")

	root.AddCommand(
		newClassifyCmd(g),
		newScanCmd(g),
		newApplyCmd(g),
		newReconcileCmd(g),
		newProfilesCmd(g),
	)
	return root
}

func (g *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), g.logLevel, "text")
}

func (g *globalOptions) readTable(path string) (*core.Table, error) {
	t, err := ingest.ReadFile(path, ingest.Options{Sheet: g.sheet, Raw: g.raw})
	if err != nil {
		return nil, fmt.Errorf("%s: %s", filepath.Base(path), core.FormatUserError(err))
	}
	return t, nil
}

// writeTable writes t to path, or CSV to w when path is empty.
func (g *globalOptions) writeTable(w io.Writer, path string, t *core.Table) error {
	opts := ingest.Options{BOM: g.bom}
	if path == "" {
		return ingest.Write(w, t, ingest.FormatCSV, opts)
	}
	if err := ingest.WriteFile(path, t, opts); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (g *globalOptions) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if g.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
