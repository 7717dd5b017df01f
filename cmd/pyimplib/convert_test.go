package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertManifest(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "stable_abi.toml")
	data := `# Stable ABI manifest excerpt
[feature_macro.Py_LIMITED_API]
doc = "limited API marker"

[function.PyLong_FromLong]
added = '3.2'

[data.PyExc_ValueError]
added = '3.2'

[function.PyLong_AsLong]
added = '3.2'
abi_only = true

[const.Py_single_input]
added = '3.2'
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write stable_abi.toml: %v", err)
	}

	table, err := convertManifest(path)
	if err != nil {
		t.Fatalf("convertManifest: %v", err)
	}
	got := string(table)

	// Manifest order is preserved; non-symbol sections are dropped.
	wantOrder := []string{
		"function PyLong_FromLong\n",
		"data PyExc_ValueError\n",
		"function PyLong_AsLong\n",
	}
	last := -1
	for _, line := range wantOrder {
		idx := strings.Index(got, line)
		if idx < 0 {
			t.Fatalf("output missing %q:\n%s", line, got)
		}
		if idx < last {
			t.Fatalf("output out of manifest order at %q:\n%s", line, got)
		}
		last = idx
	}
	if strings.Contains(got, "Py_LIMITED_API") || strings.Contains(got, "Py_single_input") {
		t.Errorf("output contains non-symbol entries:\n%s", got)
	}
}

func TestConvertManifestRejectsEmpty(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "empty.toml")
	if err := os.WriteFile(path, []byte("[other]\nx = 1\n"), 0o600); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	if _, err := convertManifest(path); err == nil {
		t.Fatal("expected error for manifest without symbol entries")
	}
}
