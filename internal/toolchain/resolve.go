package toolchain

import "strings"

// Canonical MinGW-w64 cross dlltool program names by architecture.
var mingwDlltools = map[string]string{
	"x86_64": "x86_64-w64-mingw32-dlltool",
	"x86":    "i686-w64-mingw32-dlltool",
}

// Generic dlltool program name for MSVC targets without a native
// Visual Studio toolchain on the host.
const llvmDlltool = "llvm-dlltool"

// Resolve selects the single tool flavor for a target. Priority, first
// match wins:
//
//  1. a Zig command override forces the Zig flavor for any target env
//  2. gnu targets use MinGW dlltool (override name, else static table)
//  3. msvc targets prefer a discovered native lib.exe, falling back
//     to llvm-dlltool
//
// Anything else is an UnsupportedTargetError.
func Resolve(target Target, overrides Overrides) (Flavor, error) {
	if words := strings.Fields(overrides.ZigCommand); len(words) > 0 {
		return Zig{
			Program: words[0],
			PreArgs: words[1:],
			Machine: LLVMMachine(target.Arch),
		}, nil
	}

	switch target.Env {
	case "gnu":
		if overrides.MinGWDlltool != "" {
			return Mingw{Program: overrides.MinGWDlltool}, nil
		}
		program, ok := mingwDlltools[target.Arch]
		if !ok {
			return nil, &UnsupportedTargetError{Target: target}
		}
		return Mingw{Program: program}, nil

	case "msvc":
		if program, ok := findLibExe(target.Arch); ok {
			return LibExe{Program: program, Machine: LibExeMachine(target.Arch)}, nil
		}
		return Llvm{Program: llvmDlltool, Machine: LLVMMachine(target.Arch)}, nil
	}

	return nil, &UnsupportedTargetError{Target: target}
}
