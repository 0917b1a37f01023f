package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/avr-lint/internal/report"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

func newVersionCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the avr-lint version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := versionPayload{Tool: "avr-lint", Version: version, GoVersion: runtime.Version()}
			if asJSON {
				return report.WriteJSON(a.stdout, payload)
			}
			_, err := fmt.Fprintf(a.stdout, "%s %s (%s)\n", payload.Tool, payload.Version, payload.GoVersion)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version as JSON")
	return cmd
}
