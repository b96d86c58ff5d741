package bitlib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// indexSchemaVersion is bumped when the Index format changes; a stale
// schema invalidates the sidecar.
const indexSchemaVersion uint16 = 1

// Index is a sidecar summary of the library call graph, computed from the
// serialized bodies without materializing any of them. Callees maps each
// defined function to the sorted set of distinct function names it calls.
type Index struct {
	Schema  uint16
	Hash    [32]byte
	Callees map[string][]string
}

var callSiteRE = regexp.MustCompile(`\bcall\b[^\n]*?@([-a-zA-Z$._][-a-zA-Z$._0-9]*)\(`)

// BuildIndex scans the library's serialized bodies and returns a fresh
// call-graph index.
func (l *Library) BuildIndex() *Index {
	idx := &Index{
		Schema:  indexSchemaVersion,
		Hash:    l.contentHash,
		Callees: make(map[string][]string, len(l.bodies)),
	}
	for name, body := range l.bodies {
		seen := make(map[string]bool)
		var callees []string
		for _, match := range callSiteRE.FindAllStringSubmatch(body, -1) {
			if callee := match[1]; !seen[callee] {
				seen[callee] = true
				callees = append(callees, callee)
			}
		}
		sort.Strings(callees)
		idx.Callees[name] = callees
	}
	return idx
}

// IndexPath returns the default sidecar location for a library file.
func IndexPath(libPath string) string {
	return libPath + ".idx"
}

// LoadIndex reads a sidecar index and validates it against the library
// content hash. A missing file or a stale index returns ok=false without
// an error.
func (l *Library) LoadIndex(path string) (*Index, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load index: %w", err)
	}
	defer f.Close()

	var idx Index
	if err := msgpack.NewDecoder(f).Decode(&idx); err != nil {
		return nil, false, fmt.Errorf("load index %s: %w", path, err)
	}
	if idx.Schema != indexSchemaVersion || idx.Hash != l.contentHash {
		return nil, false, nil
	}
	return &idx, true, nil
}

// SaveIndex writes the sidecar atomically (temp file + rename).
func SaveIndex(path string, idx *Index) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "tmp-idx-*")
	if err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(idx); err != nil {
		f.Close()
		return fmt.Errorf("save index %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("save index %s: %w", path, err)
	}
	return os.Rename(f.Name(), path)
}

// CalleeIndex returns the call-graph index for the library, reusing a
// valid sidecar at cachePath and rebuilding (and rewriting the sidecar)
// otherwise.
func (l *Library) CalleeIndex(cachePath string) (*Index, error) {
	if cachePath != "" {
		if idx, ok, err := l.LoadIndex(cachePath); err != nil {
			return nil, err
		} else if ok {
			return idx, nil
		}
	}
	idx := l.BuildIndex()
	if cachePath != "" {
		if err := SaveIndex(cachePath, idx); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
