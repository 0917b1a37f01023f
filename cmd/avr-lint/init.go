package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/avr-lint/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	var asTOML, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an avr_lint.json configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := "avr_lint.json"
			if asTOML {
				configPath = "avr_lint.toml"
			}
			return a.runInit(configPath, force)
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "write avr_lint.toml instead")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file without asking")
	return cmd
}

func (a *app) runInit(configPath string, force bool) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(a.stdout, "Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		_, _ = fmt.Fscanln(a.stdin, &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(a.stdout, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return usageError(fmt.Errorf("creating config: %w", err))
	}

	fmt.Fprintf(a.stdout, "Created %s\n", configPath)
	fmt.Fprintln(a.stdout, "\nEdit this file to configure:")
	fmt.Fprintln(a.stdout, "  - Target MCU (atmega328p, atmega2560)")
	fmt.Fprintln(a.stdout, "  - Lint rule severities")
	fmt.Fprintln(a.stdout, "  - Delay and loop thresholds")
	fmt.Fprintln(a.stdout, "  - Gate error and warning limits")
	return nil
}
