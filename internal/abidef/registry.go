package abidef

import (
	"embed"
	"fmt"
	"sort"

	"pyimplib/internal/deffile"
)

//go:embed symbols
var symbolsFS embed.FS

// entry binds one registered interpreter build to its embedded export
// table. Supporting a new Python release is one more row here plus
// the corpus file (see the convert command).
type entry struct {
	stem string
	file string
}

type registryKey struct {
	impl     Implementation
	version  Version
	abiflags string
}

var registry = map[registryKey]entry{
	// Version-agnostic Stable ABI (abi3 extension modules).
	{CPython, Version{}, ""}: {stem: "python3", file: "stable_abi.symbols"},

	// CPython full API, per minor release.
	{CPython, Version{3, 7}, ""}:  {stem: "python37", file: "python37.symbols"},
	{CPython, Version{3, 8}, ""}:  {stem: "python38", file: "python38.symbols"},
	{CPython, Version{3, 9}, ""}:  {stem: "python39", file: "python39.symbols"},
	{CPython, Version{3, 10}, ""}: {stem: "python310", file: "python310.symbols"},
	{CPython, Version{3, 11}, ""}: {stem: "python311", file: "python311.symbols"},
	{CPython, Version{3, 12}, ""}: {stem: "python312", file: "python312.symbols"},
	{CPython, Version{3, 13}, ""}: {stem: "python313", file: "python313.symbols"},

	// Free-threaded CPython.
	{CPython, Version{3, 13}, "t"}: {stem: "python313t", file: "python313t.symbols"},

	// PyPy. The DLL was renamed from libpypy3-c to libpypy3.X-c in
	// PyPy 3.10.
	{PyPy, Version{3, 8}, ""}:  {stem: "libpypy3-c", file: "pypy38.symbols"},
	{PyPy, Version{3, 9}, ""}:  {stem: "libpypy3-c", file: "pypy39.symbols"},
	{PyPy, Version{3, 10}, ""}: {stem: "libpypy3.10-c", file: "pypy310.symbols"},
}

// Lookup resolves a version spec to its export table artifact.
//
// A version with no registered builds at all reports
// ErrUnsupportedVersion; a registered version requested with an
// unknown ABI-flag combination reports ErrUnsupportedABIFlags.
func Lookup(spec VersionSpec) (Artifact, error) {
	key := registryKey{spec.Implementation, spec.Version, spec.ABIFlags}
	found, ok := registry[key]
	if !ok {
		if versionRegistered(spec.Implementation, spec.Version) {
			return Artifact{}, fmt.Errorf("%w: %q for %s %s", ErrUnsupportedABIFlags,
				spec.ABIFlags, spec.Implementation, spec.Version)
		}
		return Artifact{}, fmt.Errorf("%w: %s %s", ErrUnsupportedVersion,
			spec.Implementation, spec.Version)
	}

	data, err := symbolsFS.ReadFile("symbols/" + found.file)
	if err != nil {
		return Artifact{}, fmt.Errorf("embedded export table %s: %w", found.file, err)
	}
	return Artifact{Stem: found.stem, Exports: deffile.ParseBytes(data)}, nil
}

func versionRegistered(impl Implementation, version Version) bool {
	for key := range registry {
		if key.impl == impl && key.version == version {
			return true
		}
	}
	return false
}

// Registered lists every registered version spec in deterministic
// order: implementation, then version, then ABI flags.
func Registered() []VersionSpec {
	specs := make([]VersionSpec, 0, len(registry))
	for key := range registry {
		specs = append(specs, VersionSpec{
			Implementation: key.impl,
			Version:        key.version,
			ABIFlags:       key.abiflags,
		})
	}
	sort.Slice(specs, func(i, j int) bool {
		a, b := specs[i], specs[j]
		if a.Implementation != b.Implementation {
			return a.Implementation < b.Implementation
		}
		if a.Version != b.Version {
			if a.Version.Major != b.Version.Major {
				return a.Version.Major < b.Version.Major
			}
			return a.Version.Minor < b.Version.Minor
		}
		return a.ABIFlags < b.ABIFlags
	})
	return specs
}
