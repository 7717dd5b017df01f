// Package toolchain resolves an abstract compile target onto one of
// the external tool flavors able to turn a Module-Definition file
// into a Windows import library, and synthesizes the exact argument
// vector each flavor expects.
package toolchain

import (
	"fmt"
	"os"
)

// Target identifies a compile target by architecture and environment
// ABI, using the rustc/cargo vocabulary ("x86_64"/"gnu", "aarch64"/
// "msvc", ...).
type Target struct {
	Arch string
	Env  string
}

func (t Target) String() string {
	return t.Arch + "-" + t.Env
}

// Overrides carries the environment escape hatches consumed during
// resolution. Resolve itself never touches the process environment,
// so resolution stays a pure function of its inputs.
type Overrides struct {
	// ZigCommand, when non-empty, forces the Zig flavor regardless of
	// the target environment. It may be a multi-word command such as
	// "python -m ziglang".
	ZigCommand string

	// MinGWDlltool, when non-empty, replaces the canonical
	// architecture-specific MinGW-w64 dlltool program name.
	MinGWDlltool string
}

// Environment variables read by OverridesFromEnv.
const (
	EnvZigCommand   = "PYIMPLIB_ZIG_COMMAND"
	EnvMinGWDlltool = "PYIMPLIB_MINGW_DLLTOOL"
)

// OverridesFromEnv snapshots the override variables from the process
// environment. Callers are expected to do this once per invocation.
func OverridesFromEnv() Overrides {
	return Overrides{
		ZigCommand:   os.Getenv(EnvZigCommand),
		MinGWDlltool: os.Getenv(EnvMinGWDlltool),
	}
}

// UnsupportedTargetError reports an arch/env combination no flavor
// can serve.
type UnsupportedTargetError struct {
	Target Target
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("unsupported target arch %q or env ABI %q", e.Target.Arch, e.Target.Env)
}
