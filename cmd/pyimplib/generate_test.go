package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestGenerateDefOnlyCommand(t *testing.T) {
	out := t.TempDir()
	setFlags(t, generateCmd, map[string]string{
		"arch":     "x86_64",
		"env":      "gnu",
		"out":      out,
		"def-only": "true",
	})

	var buf bytes.Buffer
	generateCmd.SetOut(&buf)
	if err := generateExecution(generateCmd, nil); err != nil {
		t.Fatalf("generate: %v", err)
	}

	defPath := filepath.Join(out, "python3.def")
	if !strings.Contains(buf.String(), defPath) {
		t.Errorf("output %q does not mention %s", buf.String(), defPath)
	}
	content, err := os.ReadFile(defPath)
	if err != nil {
		t.Fatalf("read def: %v", err)
	}
	if !strings.HasPrefix(string(content), "LIBRARY \"python3.dll\"\n") {
		t.Errorf("unexpected def header: %q", string(content)[:30])
	}
}

func TestVersionSpecFromFlagsRequiresPyPyVersion(t *testing.T) {
	setFlags(t, generateCmd, map[string]string{
		"implementation": "pypy",
		"python-version": "",
	})
	if _, err := versionSpecFromFlags(generateCmd); err == nil {
		t.Fatal("expected error for pypy without --python-version")
	}
}

func TestVersionSpecFromFlagsVersioned(t *testing.T) {
	setFlags(t, generateCmd, map[string]string{
		"implementation": "cpython",
		"python-version": "3.13",
		"abiflags":       "t",
	})
	spec, err := versionSpecFromFlags(generateCmd)
	if err != nil {
		t.Fatalf("versionSpecFromFlags: %v", err)
	}
	if spec.Version.Major != 3 || spec.Version.Minor != 13 || spec.ABIFlags != "t" {
		t.Errorf("spec = %+v, want 3.13t", spec)
	}
}

// setFlags applies flag values to a command and restores the
// previous values when the test ends; the cobra commands are package
// globals.
func setFlags(t *testing.T, cmd *cobra.Command, values map[string]string) {
	t.Helper()
	for name, value := range values {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Fatalf("unknown flag %q", name)
		}
		prev := flag.Value.String()
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set --%s=%s: %v", name, value, err)
		}
		t.Cleanup(func() {
			_ = cmd.Flags().Set(name, prev)
		})
	}
}
