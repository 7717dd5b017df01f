package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"pyimplib/internal/abidef"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered Python builds",
	RunE:  listExecution,
}

func init() {
	listCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

type listRow struct {
	Implementation string `json:"implementation"`
	Version        string `json:"version"`
	ABIFlags       string `json:"abiflags,omitempty"`
	Stem           string `json:"stem"`
	Exports        int    `json:"exports"`
}

func listExecution(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	rows := make([]listRow, 0, 16)
	for _, spec := range abidef.Registered() {
		artifact, err := abidef.Lookup(spec)
		if err != nil {
			return err
		}
		rows = append(rows, listRow{
			Implementation: string(spec.Implementation),
			Version:        spec.Version.String(),
			ABIFlags:       spec.ABIFlags,
			Stem:           artifact.Stem,
			Exports:        len(artifact.Exports),
		})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "pretty":
		renderListPretty(cmd.OutOrStdout(), rows)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func renderListPretty(out io.Writer, rows []listRow) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	stemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-10s %-8s %-9s %-16s %8s",
		"IMPL", "VERSION", "ABIFLAGS", "STEM", "EXPORTS")))
	for _, row := range rows {
		abiflags := row.ABIFlags
		if abiflags == "" {
			abiflags = "-"
		}
		fmt.Fprintf(out, "%-10s %-8s %-9s %s %8d\n",
			row.Implementation, row.Version, abiflags,
			stemStyle.Render(fmt.Sprintf("%-16s", row.Stem)), row.Exports)
	}
}
