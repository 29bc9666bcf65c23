package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

// errDoesNotTie is returned with --fail-on-variance when the files differ.
var errDoesNotTie = errors.New("GL does not tie to TB")

type reconcileOptions struct {
	glFile         string
	tbFile         string
	glRecipe       string
	tbRecipe       string
	glAccount      string
	glAmount       string
	glEntity       string
	tbAccount      string
	tbAmount       string
	tbEntity       string
	tolerance      string
	output         string
	failOnVariance bool
}

func newReconcileCmd(g *globalOptions) *cobra.Command {
	o := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "reconcile --gl FILE --tb FILE",
		Short: "Tie GL detail out against a trial balance",
		Long: `reconcile sums GL amounts per account (and entity, when both entity columns
are given) and compares them with the TB amounts. Columns left unset are
suggested from column names. Optional recipes clean each file first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tol, err := decimal.NewFromString(o.tolerance)
			if err != nil {
				return fmt.Errorf("tolerance %q: %w", o.tolerance, err)
			}

			logger := g.logger(cmd)
			var gl, tb *core.Table
			eg, _ := errgroup.WithContext(cmd.Context())
			eg.Go(func() error {
				var err error
				gl, err = g.prepare(o.glFile, o.glRecipe, logger)
				return err
			})
			eg.Go(func() error {
				var err error
				tb, err = g.prepare(o.tbFile, o.tbRecipe, logger)
				return err
			})
			if err := eg.Wait(); err != nil {
				return err
			}

			opts := o.options(gl, tb, tol)
			logger.Info("reconciling",
				"gl_account", opts.GLAccount, "gl_amount", opts.GLAmount, "gl_entity", opts.GLEntity,
				"tb_account", opts.TBAccount, "tb_amount", opts.TBAmount, "tb_entity", opts.TBEntity)

			res, err := core.Reconcile(gl, tb, opts)
			if err != nil {
				return errors.New(core.FormatUserError(err))
			}
			if o.output != "" {
				if err := g.writeTable(cmd.OutOrStdout(), o.output, res.ExportTable()); err != nil {
					return err
				}
			}
			if err := g.printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if o.failOnVariance && !res.Ties {
				return errDoesNotTie
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.glFile, "gl", "", "GL detail file")
	f.StringVar(&o.tbFile, "tb", "", "Trial balance file")
	f.StringVar(&o.glRecipe, "gl-recipe", "", "Recipe to clean the GL file first")
	f.StringVar(&o.tbRecipe, "tb-recipe", "", "Recipe to clean the TB file first")
	f.StringVar(&o.glAccount, "gl-account", "", "GL account column")
	f.StringVar(&o.glAmount, "gl-amount", "", "GL amount column")
	f.StringVar(&o.glEntity, "gl-entity", "", "GL entity column")
	f.StringVar(&o.tbAccount, "tb-account", "", "TB account column")
	f.StringVar(&o.tbAmount, "tb-amount", "", "TB amount column")
	f.StringVar(&o.tbEntity, "tb-entity", "", "TB entity column")
	f.StringVar(&o.tolerance, "tolerance", "0.01", "Largest variance that still ties")
	f.StringVarP(&o.output, "output", "o", "", "Write the variance report to this file")
	f.BoolVar(&o.failOnVariance, "fail-on-variance", false, "Exit non-zero when the files do not tie")
	_ = cmd.MarkFlagRequired("gl")
	_ = cmd.MarkFlagRequired("tb")
	return cmd
}

// prepare loads a file and applies an optional recipe.
func (g *globalOptions) prepare(path, recipe string, logger *slog.Logger) (*core.Table, error) {
	t, err := g.readTable(path)
	if err != nil || recipe == "" {
		return t, err
	}
	rec, err := readRecipe(recipe)
	if err != nil {
		return nil, err
	}
	res, err := runRecipe(t, rec, filepath.Base(path), logger)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		logger.Warn("step warning", "file", path, "step", w.Step, "op", w.Op, "message", w.Message)
	}
	return res.Table, nil
}

// options fills unset columns from classifier suggestions. Entity columns
// are only suggested when neither side names one.
func (o *reconcileOptions) options(gl, tb *core.Table, tol decimal.Decimal) core.ReconcileOptions {
	c := core.NewClassifier(0)
	glSug := c.SuggestReconcileColumns(gl)
	tbSug := c.SuggestReconcileColumns(tb)

	opts := core.ReconcileOptions{
		GLAccount: or(o.glAccount, glSug.Account),
		GLAmount:  or(o.glAmount, glSug.Amount),
		GLEntity:  o.glEntity,
		TBAccount: or(o.tbAccount, tbSug.Account),
		TBAmount:  or(o.tbAmount, tbSug.Amount),
		TBEntity:  o.tbEntity,
		Tolerance: tol,
	}
	if opts.GLEntity == "" && opts.TBEntity == "" && glSug.Entity != "" && tbSug.Entity != "" {
		opts.GLEntity, opts.TBEntity = glSug.Entity, tbSug.Entity
	}
	return opts
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
