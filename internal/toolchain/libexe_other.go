//go:build !windows

package toolchain

// The native Visual Studio archiver only exists on Windows hosts;
// cross-compiling hosts always fall back to llvm-dlltool.
func findLibExe(string) (string, bool) {
	return "", false
}
