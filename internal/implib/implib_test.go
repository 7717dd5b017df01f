package implib

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pyimplib/internal/abidef"
	"pyimplib/internal/toolchain"
)

// fakeDlltool writes a shell script that mimics "zig dlltool": it
// copies the -d input to the -l output and exits 0.
func fakeDlltool(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts are POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "fake-zig")
	body := `#!/bin/sh
def=""
lib=""
while [ $# -gt 0 ]; do
	case "$1" in
	-d) def="$2"; shift 2 ;;
	-l) lib="$2"; shift 2 ;;
	*) shift ;;
	esac
done
[ -n "$def" ] && [ -n "$lib" ] || exit 2
cp "$def" "$lib"
`
	if err := os.WriteFile(script, []byte(body), 0o700); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return script
}

func failingTool(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts are POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "fake-fail")
	body := "#!/bin/sh\necho \"bad machine type\" >&2\nexit 7\n"
	if err := os.WriteFile(script, []byte(body), 0o700); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return script
}

type sliceSink struct {
	events []Event
}

func (s *sliceSink) OnEvent(evt Event) { s.events = append(s.events, evt) }

func TestGenerateDefOnly(t *testing.T) {
	out := t.TempDir()
	result, err := Generate(context.Background(), &Request{
		Target:  toolchain.Target{Arch: "x86_64", Env: "gnu"},
		Version: abidef.VersionSpec{Implementation: abidef.CPython},
		OutDir:  out,
		DefOnly: true,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if result.DefPath != filepath.Join(out, "python3.def") {
		t.Errorf("DefPath = %q, want python3.def under out dir", result.DefPath)
	}
	if result.LibPath != "" {
		t.Errorf("LibPath = %q, want empty in def-only mode", result.LibPath)
	}
	content, err := os.ReadFile(result.DefPath)
	if err != nil {
		t.Fatalf("read def: %v", err)
	}
	if !strings.HasPrefix(string(content), "LIBRARY \"python3.dll\"\nEXPORTS\n") {
		t.Errorf("def file header = %q", string(content)[:40])
	}
	if !strings.Contains(string(content), "\nPyExc_ValueError DATA\n") {
		t.Error("def file is missing the DATA annotation for PyExc_ValueError")
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	out := t.TempDir()
	sink := &sliceSink{}
	result, err := Generate(context.Background(), &Request{
		Target:    toolchain.Target{Arch: "aarch64", Env: "msvc"},
		Version:   abidef.VersionSpec{Implementation: abidef.CPython, Version: abidef.Version{Major: 3, Minor: 13}, ABIFlags: "t"},
		OutDir:    out,
		Overrides: toolchain.Overrides{ZigCommand: fakeDlltool(t)},
		Progress:  sink,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if filepath.Base(result.LibPath) != "python313t.lib" {
		t.Errorf("LibPath = %q, want stem python313t with .lib", result.LibPath)
	}
	if _, ok := result.Flavor.(toolchain.Zig); !ok {
		t.Errorf("flavor = %T, want Zig", result.Flavor)
	}
	if _, err := os.Stat(result.LibPath); err != nil {
		t.Errorf("library file missing: %v", err)
	}

	var sawToolDone bool
	for _, evt := range sink.events {
		if evt.Stage == StageTool && evt.Status == StatusDone {
			sawToolDone = true
			if evt.Stem != "python313t" {
				t.Errorf("tool event stem = %q, want python313t", evt.Stem)
			}
		}
		if evt.Status == StatusError {
			t.Errorf("unexpected error event: %+v", evt)
		}
	}
	if !sawToolDone {
		t.Error("no tool done event observed")
	}
}

func TestGenerateToolFailure(t *testing.T) {
	out := t.TempDir()
	_, err := Generate(context.Background(), &Request{
		Target:    toolchain.Target{Arch: "x86_64", Env: "gnu"},
		Version:   abidef.VersionSpec{Implementation: abidef.CPython},
		OutDir:    out,
		Overrides: toolchain.Overrides{ZigCommand: failingTool(t)},
	})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %v, want ToolError", err)
	}
	if toolErr.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", toolErr.ExitCode)
	}
	if !strings.Contains(toolErr.Stderr, "bad machine type") {
		t.Errorf("stderr = %q, want captured tool output", toolErr.Stderr)
	}
	if len(toolErr.Command) == 0 {
		t.Error("ToolError carries no command for diagnostics")
	}
	// The definition file written before the failure stays on disk.
	if _, statErr := os.Stat(filepath.Join(out, "python3.def")); statErr != nil {
		t.Errorf("definition file not left in place: %v", statErr)
	}
}

func TestGenerateLaunchFailure(t *testing.T) {
	out := t.TempDir()
	_, err := Generate(context.Background(), &Request{
		Target:    toolchain.Target{Arch: "x86_64", Env: "gnu"},
		Version:   abidef.VersionSpec{Implementation: abidef.CPython},
		OutDir:    out,
		Overrides: toolchain.Overrides{MinGWDlltool: filepath.Join(out, "no-such-dlltool")},
	})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %v, want ToolError", err)
	}
	if toolErr.ExitCode != -1 {
		t.Errorf("exit code = %d, want -1 for launch failure", toolErr.ExitCode)
	}
	if toolErr.Unwrap() == nil {
		t.Error("launch failure does not wrap the OS error")
	}
}

func TestGenerateUnsupportedVersion(t *testing.T) {
	_, err := Generate(context.Background(), &Request{
		Target:  toolchain.Target{Arch: "x86_64", Env: "gnu"},
		Version: abidef.VersionSpec{Implementation: abidef.CPython, Version: abidef.Version{Major: 3, Minor: 99}},
		OutDir:  t.TempDir(),
	})
	if !errors.Is(err, abidef.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestGenerateCacheRoundTrip(t *testing.T) {
	cache, err := OpenCacheDir(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("OpenCacheDir: %v", err)
	}
	tool := fakeDlltool(t)

	first, err := Generate(context.Background(), &Request{
		Target:    toolchain.Target{Arch: "x86_64", Env: "msvc"},
		Version:   abidef.VersionSpec{Implementation: abidef.CPython},
		OutDir:    t.TempDir(),
		Overrides: toolchain.Overrides{ZigCommand: tool},
		Cache:     cache,
	})
	if err != nil {
		t.Fatalf("first Generate error: %v", err)
	}
	if first.CacheHit {
		t.Error("first generation reported a cache hit")
	}

	second, err := Generate(context.Background(), &Request{
		Target:    toolchain.Target{Arch: "x86_64", Env: "msvc"},
		Version:   abidef.VersionSpec{Implementation: abidef.CPython},
		OutDir:    t.TempDir(),
		Overrides: toolchain.Overrides{ZigCommand: tool},
		Cache:     cache,
	})
	if err != nil {
		t.Fatalf("second Generate error: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second generation did not hit the cache")
	}
	firstLib, _ := os.ReadFile(first.LibPath)
	secondLib, _ := os.ReadFile(second.LibPath)
	if string(firstLib) != string(secondLib) {
		t.Error("cached library content differs from generated content")
	}
}

func TestCacheSchemaMismatchIsMiss(t *testing.T) {
	cache, err := OpenCacheDir(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("OpenCacheDir: %v", err)
	}
	key := libraryKey([]byte("def"), toolchain.Llvm{Program: "tool", Machine: "arm64"})
	if err := cache.Put(key, &LibraryPayload{Schema: librarySchemaVersion + 1, Library: []byte("x")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var payload LibraryPayload
	ok, err := cache.Get(key, &payload)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("stale schema version treated as a hit")
	}
}

func TestLibraryKeyDependsOnTool(t *testing.T) {
	def := []byte("LIBRARY \"python3.dll\"\nEXPORTS\n")
	a := libraryKey(def, toolchain.Llvm{Program: "llvm-dlltool", Machine: "arm64"})
	b := libraryKey(def, toolchain.Llvm{Program: "llvm-dlltool", Machine: "i386"})
	c := libraryKey(def, toolchain.Mingw{Program: "x86_64-w64-mingw32-dlltool"})
	d := libraryKey([]byte("LIBRARY \"python39.dll\"\nEXPORTS\n"), toolchain.Llvm{Program: "llvm-dlltool", Machine: "arm64"})
	if a == b || a == c || a == d {
		t.Error("library keys collide across distinct inputs")
	}
	if a != libraryKey(def, toolchain.Llvm{Program: "llvm-dlltool", Machine: "arm64"}) {
		t.Error("library key is not deterministic")
	}
}
