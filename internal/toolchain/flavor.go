package toolchain

import "fmt"

// Flavor is the closed set of external tool syntaxes. Exactly one
// flavor is resolved per generation; consumers dispatch on the
// concrete type and must stay exhaustive.
type Flavor interface {
	flavor()
}

// Mingw is the MinGW-w64 dlltool. The program name is itself
// architecture-specific, so the flavor carries no machine name.
type Mingw struct {
	Program string
}

// Llvm is llvm-dlltool, which takes an LLVM machine name.
type Llvm struct {
	Program string
	Machine string
}

// LibExe is the Visual Studio lib.exe archiver.
type LibExe struct {
	Program string
	Machine string
}

// Zig is "zig dlltool" (or any multi-word command ending in a
// zig-compatible entry point); it mirrors the Llvm syntax behind a
// literal dlltool subcommand.
type Zig struct {
	Program string
	PreArgs []string
	Machine string
}

func (Mingw) flavor()  {}
func (Llvm) flavor()   {}
func (LibExe) flavor() {}
func (Zig) flavor()    {}

// Name returns the short flavor label used in diagnostics and cache
// payloads.
func Name(f Flavor) string {
	switch f.(type) {
	case Mingw:
		return "mingw"
	case Llvm:
		return "llvm"
	case LibExe:
		return "libexe"
	case Zig:
		return "zig"
	}
	return fmt.Sprintf("%T", f)
}

// Import library file extensions by environment convention.
const (
	extGNU  = ".dll.a"
	extMSVC = ".lib"
)

// LibExt returns the import library file extension the flavor
// produces: ".dll.a" for MinGW, ".lib" for every MSVC-syntax flavor.
func LibExt(f Flavor) string {
	if _, ok := f.(Mingw); ok {
		return extGNU
	}
	return extMSVC
}

// Command builds the program name and argument vector invoking f on
// defPath to produce libPath. Every argument is a discrete token;
// nothing is ever passed through a shell, so paths with spaces are
// safe.
func Command(f Flavor, defPath, libPath string) (string, []string) {
	switch f := f.(type) {
	case Mingw:
		return f.Program, []string{"--input-def", defPath, "--output-lib", libPath}
	case Llvm:
		return f.Program, []string{"-m", f.Machine, "-d", defPath, "-l", libPath}
	case Zig:
		args := append([]string{}, f.PreArgs...)
		args = append(args, "dlltool", "-m", f.Machine, "-d", defPath, "-l", libPath)
		return f.Program, args
	case LibExe:
		return f.Program, []string{
			"/MACHINE:" + f.Machine,
			"/DEF:" + defPath,
			"/OUT:" + libPath,
		}
	}
	panic(fmt.Sprintf("unknown tool flavor %T", f))
}
