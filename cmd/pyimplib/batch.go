package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pyimplib/internal/abidef"
	"pyimplib/internal/implib"
	"pyimplib/internal/toolchain"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate import libraries for every supported version",
	Long: `Generate import libraries for all registered builds of a Python
implementation into one output directory, in parallel.`,
	RunE: batchExecution,
}

func init() {
	batchCmd.Flags().String("arch", "x86_64", "target architecture (x86_64|x86|aarch64)")
	batchCmd.Flags().String("env", "", "target environment ABI (gnu|msvc)")
	batchCmd.Flags().String("implementation", "cpython", "Python implementation (cpython|pypy)")
	batchCmd.Flags().StringP("out", "o", ".", "output directory")
	batchCmd.Flags().Bool("cache", false, "reuse previously generated libraries from the disk cache")
	batchCmd.Flags().Int("jobs", runtime.NumCPU(), "maximum concurrent generations")
	batchCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	_ = batchCmd.MarkFlagRequired("env")
}

func batchExecution(cmd *cobra.Command, args []string) error {
	arch, err := cmd.Flags().GetString("arch")
	if err != nil {
		return err
	}
	env, err := cmd.Flags().GetString("env")
	if err != nil {
		return err
	}
	implName, err := cmd.Flags().GetString("implementation")
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	impl, err := abidef.ParseImplementation(implName)
	if err != nil {
		return err
	}
	specs, stems, err := batchSpecs(impl)
	if err != nil {
		return err
	}

	var cache *implib.Cache
	if useCache {
		cache, err = implib.OpenCache("pyimplib")
		if err != nil {
			return fmt.Errorf("failed to open library cache: %w", err)
		}
	}

	run := func(ctx context.Context, sink implib.ProgressSink) error {
		return runBatch(ctx, batchConfig{
			target:    toolchain.Target{Arch: arch, Env: env},
			overrides: toolchain.OverridesFromEnv(),
			outDir:    outDir,
			cache:     cache,
			jobs:      jobs,
			specs:     specs,
		}, sink)
	}

	ctx := cmd.Context()
	if shouldUseTUI(uiModeValue) {
		title := fmt.Sprintf("generating %d import libraries (%s-%s)", len(specs), arch, env)
		return runBatchWithUI(ctx, title, stems, run)
	}

	sink := printSink{mu: &sync.Mutex{}, out: cmd.OutOrStdout()}
	if err := run(ctx, sink); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d import libraries in %s\n", len(specs), outDir)
	return nil
}

type batchConfig struct {
	target    toolchain.Target
	overrides toolchain.Overrides
	outDir    string
	cache     *implib.Cache
	jobs      int
	specs     []abidef.VersionSpec
}

func runBatch(ctx context.Context, cfg batchConfig, sink implib.ProgressSink) error {
	group, ctx := errgroup.WithContext(ctx)
	if cfg.jobs > 0 {
		group.SetLimit(cfg.jobs)
	}
	for _, spec := range cfg.specs {
		spec := spec
		group.Go(func() error {
			_, err := implib.Generate(ctx, &implib.Request{
				Target:    cfg.target,
				Version:   spec,
				OutDir:    cfg.outDir,
				Overrides: cfg.overrides,
				Cache:     cfg.cache,
				Progress:  sink,
			})
			if err != nil {
				return fmt.Errorf("%s: %w", spec, err)
			}
			return nil
		})
	}
	return group.Wait()
}

// batchSpecs lists the registered builds of one implementation,
// deduplicated by library stem (PyPy reuses libpypy3-c across
// versions; only the newest build per stem is generated).
func batchSpecs(impl abidef.Implementation) ([]abidef.VersionSpec, []string, error) {
	var specs []abidef.VersionSpec
	var stems []string
	seen := map[string]int{}
	for _, spec := range abidef.Registered() {
		if spec.Implementation != impl {
			continue
		}
		artifact, err := abidef.Lookup(spec)
		if err != nil {
			return nil, nil, err
		}
		if idx, dup := seen[artifact.Stem]; dup {
			// Registered() sorts by version, so the later spec wins.
			specs[idx] = spec
			continue
		}
		seen[artifact.Stem] = len(specs)
		specs = append(specs, spec)
		stems = append(stems, artifact.Stem)
	}
	if len(specs) == 0 {
		return nil, nil, fmt.Errorf("no registered builds for implementation %q", impl)
	}
	return specs, stems, nil
}

// printSink is the non-TUI progress reporter. Generations run in
// parallel, so writes are serialized.
type printSink struct {
	mu  *sync.Mutex
	out io.Writer
}

func (s printSink) OnEvent(evt implib.Event) {
	if evt.Stage != implib.StageTool || evt.Stem == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch evt.Status {
	case implib.StatusDone:
		fmt.Fprintf(s.out, "  %s: done\n", evt.Stem)
	case implib.StatusError:
		fmt.Fprintf(s.out, "  %s: error: %v\n", evt.Stem, evt.Err)
	}
}
