package bitlib

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/llir/llvm/asm"
	"github.com/pierrec/lz4/v4"
)

// linkage keywords that are legal on a define but not on a declare; they
// are stripped from the skeleton declaration and restored at materialize
// time from the parsed body.
var defineOnlyLinkage = []string{
	"internal", "private", "linkonce_odr", "linkonce",
	"weak_odr", "weak", "common", "appending", "available_externally",
}

// Load reads a builtin library from a textual IR file. A ".lz4" suffix
// selects lz4 decompression. The returned library is parsed (every
// function visible as a declaration) but not materialized.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	if strings.HasSuffix(path, ".lz4") {
		data, err = io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("load library %s: lz4: %w", path, err)
		}
	}
	return Parse(path, string(data))
}

// Parse splits library text into a header (typedefs, globals, attribute
// groups, plain declarations) and one serialized body chunk per defined
// function, then parses the declaration-only skeleton module.
func Parse(path, text string) (*Library, error) {
	lib := &Library{
		path:         path,
		bodies:       make(map[string]string),
		decls:        make(map[string]string),
		materialized: make(map[string]bool),
		contentHash:  sha256.Sum256([]byte(text)),
	}

	var header strings.Builder
	var body strings.Builder
	bodyName := ""
	for _, line := range strings.SplitAfter(text, "\n") {
		if bodyName != "" {
			body.WriteString(line)
			if strings.TrimRight(line, "\r\n") == "}" {
				lib.bodies[bodyName] = body.String()
				body.Reset()
				bodyName = ""
			}
			continue
		}
		if strings.HasPrefix(line, "define ") || strings.HasPrefix(line, "define\t") {
			name, err := funcNameOf(line)
			if err != nil {
				return nil, fmt.Errorf("parse library %s: %w", path, err)
			}
			sig, err := declSigOf(line)
			if err != nil {
				return nil, fmt.Errorf("parse library %s: %w", path, err)
			}
			bodyName = name
			lib.decls[name] = sig
			body.WriteString(line)
			continue
		}
		header.WriteString(line)
	}
	if bodyName != "" {
		return nil, fmt.Errorf("parse library %s: unterminated body for %s", path, bodyName)
	}
	lib.header = header.String()

	skeleton := lib.header
	for name := range lib.bodies {
		skeleton += "declare " + lib.decls[name] + "\n"
	}
	m, err := asm.ParseString(path, skeleton)
	if err != nil {
		return nil, fmt.Errorf("parse library %s: %w", path, err)
	}
	lib.Module = m
	return lib, nil
}

// funcNameOf extracts the @name of the function defined on a define line.
func funcNameOf(line string) (string, error) {
	i := strings.Index(line, "@")
	if i < 0 {
		return "", fmt.Errorf("define line without function name: %q", strings.TrimSpace(line))
	}
	rest := line[i+1:]
	if strings.HasPrefix(rest, `"`) {
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			return "", fmt.Errorf("unterminated quoted function name: %q", strings.TrimSpace(line))
		}
		return rest[1 : 1+end], nil
	}
	end := strings.IndexAny(rest, "( \t")
	if end < 0 {
		return "", fmt.Errorf("malformed define line: %q", strings.TrimSpace(line))
	}
	return rest[:end], nil
}

// declSigOf turns a define line into the signature text of an equivalent
// declaration.
func declSigOf(line string) (string, error) {
	sig := strings.TrimSpace(strings.TrimRight(line, "\r\n"))
	sig = strings.TrimPrefix(sig, "define")
	sig = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sig), "{"))
	if sig == "" {
		return "", fmt.Errorf("empty define signature: %q", strings.TrimSpace(line))
	}
	for changed := true; changed; {
		changed = false
		for _, kw := range defineOnlyLinkage {
			if strings.HasPrefix(sig, kw+" ") {
				sig = strings.TrimSpace(strings.TrimPrefix(sig, kw+" "))
				changed = true
			}
		}
	}
	return sig, nil
}
