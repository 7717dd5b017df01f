// Package implib orchestrates import library generation: it writes
// the selected Module-Definition file, resolves a tool flavor for the
// compile target, and runs the external tool on the result.
package implib

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"pyimplib/internal/abidef"
	"pyimplib/internal/deffile"
	"pyimplib/internal/observ"
	"pyimplib/internal/toolchain"
)

// Request configures one import library generation. It is consumed
// by a single synchronous Generate call; concurrent requests into the
// same OutDir race on the output files and must be serialized by the
// caller.
type Request struct {
	Target  toolchain.Target
	Version abidef.VersionSpec
	OutDir  string

	// Overrides are snapshotted by the caller (normally from the
	// environment) before generation starts.
	Overrides toolchain.Overrides

	// DefOnly stops after writing the definition file.
	DefOnly bool

	// PrintCommands echoes the external tool invocation to stdout.
	PrintCommands bool

	// Cache, when non-nil, reuses previously generated libraries
	// keyed by definition content and tool identity.
	Cache *Cache

	Progress ProgressSink
	Timer    *observ.Timer
}

// Result reports the produced artifacts.
type Result struct {
	DefPath  string
	LibPath  string
	Flavor   toolchain.Flavor
	CacheHit bool
	Timings  Timings
}

// ToolError reports an external tool that could not be started or
// exited nonzero. ExitCode is -1 when the process never ran.
type ToolError struct {
	Command  []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	cmd := strings.Join(e.Command, " ")
	if e.ExitCode < 0 {
		return fmt.Sprintf("failed to launch %q: %v", cmd, e.Err)
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("%q exited with code %d: %s", cmd, e.ExitCode, msg)
	}
	return fmt.Sprintf("%q exited with code %d", cmd, e.ExitCode)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Generate produces the import library described by req. On failure,
// files written before the failing step (the definition file in
// particular) are left in place for inspection.
func Generate(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if req == nil {
		return result, fmt.Errorf("missing generation request")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.OutDir == "" {
		return result, fmt.Errorf("missing output directory")
	}

	selectStart := time.Now()
	phase := req.Timer.Begin("select")
	artifact, err := abidef.Lookup(req.Version)
	if err != nil {
		emitStage(req.Progress, "", StageSelect, StatusError, err, 0)
		return result, err
	}
	req.Timer.End(phase, artifact.Stem)
	result.Timings.Set(StageSelect, time.Since(selectStart))
	stem := artifact.Stem
	emitStage(req.Progress, stem, StageSelect, StatusDone, nil, result.Timings.Duration(StageSelect))

	writeStart := time.Now()
	phase = req.Timer.Begin("write-def")
	emitStage(req.Progress, stem, StageWriteDef, StatusWorking, nil, 0)
	if err := os.MkdirAll(req.OutDir, 0o750); err != nil {
		err = fmt.Errorf("failed to create output dir: %w", err)
		emitStage(req.Progress, stem, StageWriteDef, StatusError, err, 0)
		return result, err
	}
	defContent := deffile.Def(artifact.DLLName(), artifact.Exports)
	defPath := filepath.Join(req.OutDir, artifact.DefName())
	if err := os.WriteFile(defPath, defContent, 0o600); err != nil {
		err = fmt.Errorf("failed to write %s: %w", defPath, err)
		emitStage(req.Progress, stem, StageWriteDef, StatusError, err, 0)
		return result, err
	}
	result.DefPath = defPath
	req.Timer.End(phase, defPath)
	result.Timings.Set(StageWriteDef, time.Since(writeStart))

	if req.DefOnly {
		emitStage(req.Progress, stem, StageWriteDef, StatusDone, nil, result.Timings.Duration(StageWriteDef))
		return result, nil
	}

	resolveStart := time.Now()
	phase = req.Timer.Begin("resolve")
	emitStage(req.Progress, stem, StageResolve, StatusWorking, nil, 0)
	flavor, err := toolchain.Resolve(req.Target, req.Overrides)
	if err != nil {
		emitStage(req.Progress, stem, StageResolve, StatusError, err, 0)
		return result, err
	}
	result.Flavor = flavor
	result.LibPath = filepath.Join(req.OutDir, stem+toolchain.LibExt(flavor))
	req.Timer.End(phase, toolchain.Name(flavor))
	result.Timings.Set(StageResolve, time.Since(resolveStart))

	toolStart := time.Now()
	phase = req.Timer.Begin("tool")
	emitStage(req.Progress, stem, StageTool, StatusWorking, nil, 0)
	program, args := toolchain.Command(flavor, defPath, result.LibPath)
	err = runTool(ctx, req, defContent, program, args, result.LibPath, &result)
	if err != nil {
		emitStage(req.Progress, stem, StageTool, StatusError, err, 0)
		return result, err
	}
	req.Timer.End(phase, program)
	result.Timings.Set(StageTool, time.Since(toolStart))
	emitStage(req.Progress, stem, StageTool, StatusDone, nil, result.Timings.Duration(StageTool))

	return result, nil
}

func runTool(ctx context.Context, req *Request, defContent []byte, program string, args []string, libPath string, result *Result) error {
	cacheKey := libraryKey(defContent, result.Flavor)
	if req.Cache != nil {
		var payload LibraryPayload
		if ok, err := req.Cache.Get(cacheKey, &payload); err == nil && ok {
			if err := os.WriteFile(libPath, payload.Library, 0o600); err != nil {
				return fmt.Errorf("failed to write cached library %s: %w", libPath, err)
			}
			result.CacheHit = true
			return nil
		}
	}

	if req.PrintCommands {
		fmt.Fprintf(os.Stdout, "%s %s\n", program, strings.Join(args, " "))
	}

	command := append([]string{program}, args...)
	cmd := exec.CommandContext(ctx, program, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitCode := cmd.ProcessState; exitCode != nil {
			return &ToolError{
				Command:  command,
				ExitCode: exitCode.ExitCode(),
				Stderr:   stderr.String(),
				Err:      err,
			}
		}
		return &ToolError{Command: command, ExitCode: -1, Err: err}
	}

	if req.Cache != nil {
		library, err := os.ReadFile(libPath)
		if err == nil {
			// Cache writes are best-effort.
			_ = req.Cache.Put(cacheKey, &LibraryPayload{
				Schema:  librarySchemaVersion,
				Stem:    strings.TrimSuffix(filepath.Base(libPath), toolchain.LibExt(result.Flavor)),
				Flavor:  toolchain.Name(result.Flavor),
				Library: library,
			})
		}
	}
	return nil
}
