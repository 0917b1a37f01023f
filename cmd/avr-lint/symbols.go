package main

import (
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/avr-lint/internal/report"
	"github.com/robert-at-pretension-io/avr-lint/internal/runner"
)

func newSymbolsCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "symbols <paths...>",
		Short: "List the includes, functions and variables declared in sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return usageError(err)
			}
			cfg, err := a.loadConfig(args[0])
			if err != nil {
				return usageError(err)
			}
			r, err := runner.New(cmd.Context(), cfg, runner.WithLogger(a.logger))
			if err != nil {
				return usageError(err)
			}
			tables, err := r.Symbols(cmd.Context(), args)
			if err != nil {
				return usageError(err)
			}
			if err := report.WriteSymbols(a.stdout, tables, f); err != nil {
				return usageError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format ("+report.FormatNames()+")")
	return cmd
}
