package sieve

import (
	"os"
	"strings"
	"time"
)

// BinarySuffix is appended to a script path to derive the path of its
// compiled binary.
const BinarySuffix = ".svbin"

// ScriptSuffix is the conventional file name suffix of Sieve scripts.
const ScriptSuffix = ".sieve"

// Script is one immutable piece of Sieve source together with a stable name
// and a location identifier. A script compiles to exactly one AST.
type Script struct {
	name     string
	location string
	source   []byte

	// set for scripts opened from a file, used for up-to-date checks
	modTime time.Time
	size    int64
}

// NewScript returns an in-memory script. name is used in diagnostics,
// location identifies where the script came from (it may equal name).
func NewScript(name, location string, source []byte) *Script {
	return &Script{name: name, location: location, source: source, size: int64(len(source))}
}

// OpenScriptFile reads a script from path. When name is empty it is derived
// from the file name, with a trailing ".sieve" removed.
func OpenScriptFile(path, name string) (*Script, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, wrapError(osErrorKind(err), err, "script %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(osErrorKind(err), err, "script %s", path)
	}
	if name == "" {
		name = path
		if i := strings.LastIndexByte(name, '/'); i >= 0 {
			name = name[i+1:]
		}
		name = strings.TrimSuffix(name, ScriptSuffix)
	}
	return &Script{
		name:     name,
		location: path,
		source:   data,
		modTime:  st.ModTime(),
		size:     st.Size(),
	}, nil
}

// Name returns the script name used in diagnostics.
func (s *Script) Name() string { return s.name }

// Location returns the location identifier (the file path for file scripts).
func (s *Script) Location() string { return s.location }

// Source returns the script source text.
func (s *Script) Source() []byte { return s.source }

// ModTime returns the script's modification time, or the zero time for
// in-memory scripts.
func (s *Script) ModTime() time.Time { return s.modTime }

// Size returns the source size in bytes.
func (s *Script) Size() int64 { return s.size }

// BinaryPath derives the on-disk path for this script's compiled binary:
// the ".sieve" suffix of the location is replaced by ".svbin" (or ".svbin"
// is appended when the location has no such suffix). In-memory scripts have
// no binary path and return "".
func (s *Script) BinaryPath() string {
	if s.modTime.IsZero() {
		return ""
	}
	return strings.TrimSuffix(s.location, ScriptSuffix) + BinarySuffix
}
