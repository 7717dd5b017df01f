// Package deffile parses exported-symbol tables and writes
// Module-Definition (.def) files understood by Windows import
// library tools.
package deffile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Export is a single exported symbol of a dynamic library.
// Data marks a global-variable export, which needs a DATA
// annotation in the .def file.
type Export struct {
	Symbol string
	Data   bool
}

// Parse reads a symbol table in the same line format CPython's
// Misc/stable_abi manifest tooling emits: a line whose first field is
// "function" or "data" declares an export named by the second field.
// Any other line (headers, comments, blanks) is skipped. Input order
// is preserved.
func Parse(r io.Reader) ([]Export, error) {
	var exports []Export
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if export, ok := parseLine(scanner.Text()); ok {
			exports = append(exports, export)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symbol table: %w", err)
	}
	return exports, nil
}

// ParseBytes parses an in-memory symbol table. Unlike Parse it cannot
// fail: malformed lines are never an error, only non-records.
func ParseBytes(data []byte) []Export {
	// Rough record density of the upstream corpora, sizing hint only.
	exports := make([]Export, 0, len(data)/32)
	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line = data[:i+1]
			data = data[i+1:]
		} else {
			data = nil
		}
		if export, ok := parseLine(string(line)); ok {
			exports = append(exports, export)
		}
	}
	return exports
}

func parseLine(line string) (Export, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Export{}, false
	}
	switch fields[0] {
	case "function":
		return Export{Symbol: fields[1]}, true
	case "data":
		return Export{Symbol: fields[1], Data: true}, true
	}
	return Export{}, false
}

// WriteDef writes a Module-Definition document for a library named
// lib. Exports are emitted verbatim in slice order; downstream
// linkers may be order-sensitive.
func WriteDef(w io.Writer, lib string, exports []Export) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "LIBRARY %q\nEXPORTS\n", lib)
	for _, export := range exports {
		bw.WriteString(export.Symbol)
		if export.Data {
			bw.WriteString(" DATA")
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write module definition: %w", err)
	}
	return nil
}

// Def renders the Module-Definition document into memory.
func Def(lib string, exports []Export) []byte {
	var buf bytes.Buffer
	// bytes.Buffer never returns a write error.
	_ = WriteDef(&buf, lib, exports)
	return buf.Bytes()
}
