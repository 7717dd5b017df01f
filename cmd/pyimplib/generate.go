package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pyimplib/internal/abidef"
	"pyimplib/internal/implib"
	"pyimplib/internal/observ"
	"pyimplib/internal/toolchain"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one import library",
	Long: `Generate the import library for a single Python build and compile
target, e.g.:

  pyimplib generate --arch x86_64 --env gnu --out target/python3-dll
  pyimplib generate --arch aarch64 --env msvc --python-version 3.13 --abiflags t --out out`,
	RunE: generateExecution,
}

func init() {
	generateCmd.Flags().String("arch", "x86_64", "target architecture (x86_64|x86|aarch64)")
	generateCmd.Flags().String("env", "", "target environment ABI (gnu|msvc)")
	generateCmd.Flags().String("python-version", "", "Python major.minor version (empty selects the version-agnostic stable ABI)")
	generateCmd.Flags().String("abiflags", "", "Python ABI flags (\"t\" for free-threaded CPython)")
	generateCmd.Flags().String("implementation", "cpython", "Python implementation (cpython|pypy)")
	generateCmd.Flags().StringP("out", "o", ".", "output directory")
	generateCmd.Flags().Bool("def-only", false, "write the module definition file and stop")
	generateCmd.Flags().Bool("cache", false, "reuse previously generated libraries from the disk cache")
	generateCmd.Flags().Bool("print-commands", false, "echo the external tool invocation")
	generateCmd.Flags().Bool("timings", false, "show timing information")
	_ = generateCmd.MarkFlagRequired("env")
}

func generateExecution(cmd *cobra.Command, args []string) error {
	spec, err := versionSpecFromFlags(cmd)
	if err != nil {
		return err
	}
	arch, err := cmd.Flags().GetString("arch")
	if err != nil {
		return err
	}
	env, err := cmd.Flags().GetString("env")
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	defOnly, err := cmd.Flags().GetBool("def-only")
	if err != nil {
		return err
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}

	req := implib.Request{
		Target:        toolchain.Target{Arch: arch, Env: env},
		Version:       spec,
		OutDir:        outDir,
		Overrides:     toolchain.OverridesFromEnv(),
		DefOnly:       defOnly,
		PrintCommands: printCommands,
	}
	if useCache {
		cache, err := implib.OpenCache("pyimplib")
		if err != nil {
			return fmt.Errorf("failed to open library cache: %w", err)
		}
		req.Cache = cache
	}
	if showTimings {
		req.Timer = observ.NewTimer()
	}

	result, err := implib.Generate(cmd.Context(), &req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if defOnly {
		fmt.Fprintf(out, "wrote %s\n", result.DefPath)
	} else {
		suffix := ""
		if result.CacheHit {
			suffix = " (cached)"
		}
		fmt.Fprintf(out, "wrote %s%s\n", result.LibPath, suffix)
	}
	if showTimings {
		fmt.Fprint(out, req.Timer.Summary())
	}
	return nil
}

// versionSpecFromFlags assembles the ABI selection from the shared
// version flags.
func versionSpecFromFlags(cmd *cobra.Command) (abidef.VersionSpec, error) {
	implName, err := cmd.Flags().GetString("implementation")
	if err != nil {
		return abidef.VersionSpec{}, err
	}
	impl, err := abidef.ParseImplementation(implName)
	if err != nil {
		return abidef.VersionSpec{}, err
	}
	versionStr, err := cmd.Flags().GetString("python-version")
	if err != nil {
		return abidef.VersionSpec{}, err
	}
	abiflags, err := cmd.Flags().GetString("abiflags")
	if err != nil {
		return abidef.VersionSpec{}, err
	}

	spec := abidef.VersionSpec{Implementation: impl, ABIFlags: abiflags}
	if versionStr != "" {
		spec.Version, err = abidef.ParseVersion(versionStr)
		if err != nil {
			return abidef.VersionSpec{}, err
		}
	} else if impl != abidef.CPython {
		return abidef.VersionSpec{}, fmt.Errorf("--python-version is required for %s (only CPython has a version-agnostic stable ABI)", impl)
	}
	return spec, nil
}
