//go:build windows

package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Visual Studio host/target directory names under VC\Tools\MSVC\<ver>\bin.
var vcToolDirs = map[string]string{
	"x86_64":  "x64",
	"x86":     "x86",
	"aarch64": "arm64",
}

// findLibExe locates the native Visual Studio lib.exe for the target
// architecture. It honors an already-configured VC environment first
// (VCToolsInstallDir, as set by vcvarsall), then asks vswhere for the
// latest installation.
func findLibExe(arch string) (string, bool) {
	dir, ok := vcToolDirs[arch]
	if !ok {
		return "", false
	}

	if root := os.Getenv("VCToolsInstallDir"); root != "" {
		candidate := filepath.Join(root, "bin", "Hostx64", dir, "lib.exe")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	installs, err := vswhereInstallations()
	if err != nil {
		return "", false
	}
	for _, install := range installs {
		toolsRoot := filepath.Join(install, "VC", "Tools", "MSVC")
		versions, err := os.ReadDir(toolsRoot)
		if err != nil {
			continue
		}
		// Newest toolset version sorts last.
		for i := len(versions) - 1; i >= 0; i-- {
			candidate := filepath.Join(toolsRoot, versions[i].Name(), "bin", "Hostx64", dir, "lib.exe")
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true
			}
		}
	}
	return "", false
}

func vswhereInstallations() ([]string, error) {
	program := filepath.Join(os.Getenv("ProgramFiles(x86)"),
		"Microsoft Visual Studio", "Installer", "vswhere.exe")
	out, err := exec.Command(program,
		"-products", "*",
		"-requires", "Microsoft.VisualStudio.Component.VC.Tools.x86.x64",
		"-property", "installationPath",
		"-sort",
	).Output()
	if err != nil {
		return nil, err
	}
	var installs []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			installs = append(installs, line)
		}
	}
	return installs, nil
}
