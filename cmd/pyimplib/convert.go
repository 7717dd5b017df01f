package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"pyimplib/internal/deffile"
)

var convertCmd = &cobra.Command{
	Use:   "convert <stable_abi.toml>",
	Short: "Convert a CPython stable ABI manifest into the symbols format",
	Long: `Convert CPython's Misc/stable_abi.toml into the line-oriented
"function <name>" / "data <name>" symbols format embedded by this
tool. Manifest order is preserved.`,
	Args: cobra.ExactArgs(1),
	RunE: convertExecution,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

func convertExecution(cmd *cobra.Command, args []string) error {
	table, err := convertManifest(args[0])
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		_, err := cmd.OutOrStdout().Write(table)
		return err
	}
	if err := os.WriteFile(output, table, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	exports := deffile.ParseBytes(table)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d exports)\n", output, len(exports))
	return nil
}

// abiManifest matches the two manifest sections that name exported
// symbols; everything else in the file is ignored.
type abiManifest struct {
	Function map[string]toml.Primitive `toml:"function"`
	Data     map[string]toml.Primitive `toml:"data"`
}

func convertManifest(path string) ([]byte, error) {
	var manifest abiManifest
	meta, err := toml.DecodeFile(path, &manifest)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if len(manifest.Function) == 0 && len(manifest.Data) == 0 {
		return nil, fmt.Errorf("%s: no [function.*] or [data.*] entries", path)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "# Converted from %s\n", path)
	// meta.Keys() replays the manifest in file order; Go maps would
	// lose it.
	for _, key := range meta.Keys() {
		if len(key) != 2 {
			continue
		}
		switch key[0] {
		case "function", "data":
			fmt.Fprintf(&out, "%s %s\n", key[0], key[1])
		}
	}
	return out.Bytes(), nil
}
