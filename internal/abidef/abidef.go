// Package abidef holds the embedded Python ABI export tables and
// selects the Module-Definition artifact matching a requested
// interpreter version.
package abidef

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"pyimplib/internal/deffile"
)

// Implementation names a Python interpreter implementation.
type Implementation string

const (
	// CPython is the reference interpreter (pythonXY.dll).
	CPython Implementation = "cpython"
	// PyPy exports its C API from libpypy3-c.dll / libpypy3.10-c.dll.
	PyPy Implementation = "pypy"
)

// ParseImplementation reads an implementation name as given on the
// command line.
func ParseImplementation(name string) (Implementation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "cpython":
		return CPython, nil
	case "pypy":
		return PyPy, nil
	}
	return "", fmt.Errorf("unknown Python implementation %q (expected cpython|pypy)", name)
}

// Version is a major.minor interpreter version. The zero value
// selects the version-agnostic Stable ABI (python3.dll).
type Version struct {
	Major uint8
	Minor uint8
}

// IsStableABI reports whether the version-agnostic Stable ABI library
// is selected.
func (v Version) IsStableABI() bool {
	return v == Version{}
}

func (v Version) String() string {
	if v.IsStableABI() {
		return "abi3"
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseVersion reads a "major.minor" version string.
func ParseVersion(s string) (Version, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("invalid Python version %q (expected major.minor)", s)
	}
	major, err := parsePart(majorStr)
	if err != nil {
		return Version{}, fmt.Errorf("invalid Python major version in %q: %w", s, err)
	}
	minor, err := parsePart(minorStr)
	if err != nil {
		return Version{}, fmt.Errorf("invalid Python minor version in %q: %w", s, err)
	}
	return Version{Major: major, Minor: minor}, nil
}

func parsePart(s string) (uint8, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return safecast.Conv[uint8](n)
}

// VersionSpec identifies one ABI-distinct interpreter build.
type VersionSpec struct {
	Implementation Implementation
	Version        Version
	// ABIFlags distinguishes binary-incompatible builds of the same
	// version ("t" for free-threaded CPython); empty for the default
	// build.
	ABIFlags string
}

func (s VersionSpec) String() string {
	return fmt.Sprintf("%s-%s%s", s.Implementation, s.Version, s.ABIFlags)
}

// Selection errors. Lookup wraps them with the offending spec.
var (
	ErrUnsupportedVersion  = errors.New("unsupported Python version")
	ErrUnsupportedABIFlags = errors.New("unsupported Python ABI flags")
)

// Artifact is a resolved export table plus the file stem the
// generated definition and import library files share.
type Artifact struct {
	Stem    string
	Exports []deffile.Export
}

// DLLName returns the runtime DLL name recorded in the LIBRARY
// statement of the definition file.
func (a Artifact) DLLName() string {
	return a.Stem + ".dll"
}

// DefName returns the definition file name for the artifact.
func (a Artifact) DefName() string {
	return a.Stem + ".def"
}
