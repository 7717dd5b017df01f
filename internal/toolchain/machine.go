package toolchain

// The LLVM toolchain and lib.exe each use their own target machine
// vocabulary. Both tables pass unknown architectures through
// unchanged; the external tool then owns the rejection.

var llvmMachines = map[string]string{
	"x86_64":  "i386:x86-64",
	"x86":     "i386",
	"aarch64": "arm64",
}

var libExeMachines = map[string]string{
	"x86_64":  "X64",
	"x86":     "X86",
	"aarch64": "ARM64",
}

// LLVMMachine translates arch into the llvm-dlltool -m vocabulary.
// Zig's dlltool subcommand shares it.
func LLVMMachine(arch string) string {
	if machine, ok := llvmMachines[arch]; ok {
		return machine
	}
	return arch
}

// LibExeMachine translates arch into the lib.exe /MACHINE vocabulary.
func LibExeMachine(arch string) string {
	if machine, ok := libExeMachines[arch]; ok {
		return machine
	}
	return arch
}
