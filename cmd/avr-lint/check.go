package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/avr-lint/internal/report"
	"github.com/robert-at-pretension-io/avr-lint/internal/runner"
)

type checkOptions struct {
	format     string
	writeFixed string
	timings    string
	showFixed  bool
}

func newCheckCmd(a *app) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Analyse AVR C sources",
		Long: `Analyse .c, .h and .cpp files under the given files, directories or glob
patterns. With no path, or with "-", the source is read from standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format ("+report.FormatNames()+")")
	cmd.Flags().StringVar(&opts.writeFixed, "write-fixed", "", "write fixed sources into this directory")
	cmd.Flags().StringVar(&opts.timings, "timings", "", "write phase timings as JSON lines to this file")
	cmd.Flags().BoolVar(&opts.showFixed, "show-fixed", false, "print the fixed source in text output")

	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	ctx := cmd.Context()

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return usageError(err)
	}
	color, err := a.colorEnabled()
	if err != nil {
		return usageError(err)
	}

	fromStdin := len(args) == 0 || (len(args) == 1 && args[0] == "-")
	root := "."
	if !fromStdin {
		root = args[0]
	}
	cfg, err := a.loadConfig(root)
	if err != nil {
		return usageError(err)
	}

	timing, err := runner.OpenTimingRecorder(time.Now(), opts.timings)
	if err != nil {
		return usageError(fmt.Errorf("opening timings file: %w", err))
	}
	defer func() { _ = timing.Close() }()

	r, err := runner.New(ctx, cfg,
		runner.WithLogger(a.logger),
		runner.WithTiming(timing),
		runner.WithFixedDir(opts.writeFixed),
	)
	if err != nil {
		return usageError(err)
	}

	var res *runner.Result
	if fromStdin {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return usageError(fmt.Errorf("reading stdin: %w", err))
		}
		if strings.TrimSpace(string(data)) == "" {
			return usageError(errors.New("no source code on stdin"))
		}
		res, err = r.RunSource(ctx, runner.StdinName, string(data))
		if err != nil {
			return usageError(err)
		}
	} else {
		res, err = r.Run(ctx, args)
		if err != nil {
			return usageError(err)
		}
	}

	if err := report.Write(a.stdout, res, format, report.Options{Color: color, Fixed: opts.showFixed}); err != nil {
		return usageError(err)
	}

	for _, ev := range timing.Events() {
		if ev.Kind == "stage" {
			a.logger.Debug("stage timing", "stage", ev.Phase, "ms", ev.DurationMS)
		}
	}
	a.logger.Info("check finished",
		"files", len(res.Files),
		"errors", res.Summary.Errors,
		"warnings", res.Summary.Warnings,
		"passed", res.Passed)
	if !res.Passed {
		return &exitError{code: exitGateFailed}
	}
	return nil
}
