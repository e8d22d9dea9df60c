// Package linker rewrites the dynamic imports of generated chunks so that
// repeated loads of the same chunk resolve from an in-memory cache.
//
// Architecture:
//   - Build the set of specifiers that name chunks of the same build.
//   - Scan the chunk for import-like expressions.
//   - Replace the `import` keyword of qualifying calls with Helper and append
//     the Runtime that defines it.
package linker

import (
	"strings"

	"github.com/coldog/cdif/pkg/lexer"
	"github.com/coldog/cdif/pkg/resolve"
)

// Format is the module format of a chunk.
type Format int

const (
	FormatOther Format = iota
	FormatESM
)

func (f Format) String() string {
	if f == FormatESM {
		return "esm"
	}
	return "other"
}

// ParseFormat maps "esm", "es" and "module" to FormatESM and everything else
// to FormatOther.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "esm", "es", "module":
		return FormatESM
	}
	return FormatOther
}

// Meta is the build metadata of a chunk.
type Meta struct {
	// FileName is the slash separated path relative to the output root.
	FileName string
	// DynamicImports are the file names of chunks this chunk may load at
	// run time.
	DynamicImports []string
}

// Chunk is one generated output file.
type Chunk struct {
	Meta
	Code   string
	Format Format
}

// Specifiers returns every spelling of a dynamic import target that
// generated code may use: the file name itself and its path relative to the
// chunk.
func (c Chunk) Specifiers() map[string]struct{} {
	set := make(map[string]struct{}, 2*len(c.DynamicImports))
	for _, target := range c.DynamicImports {
		set[target] = struct{}{}
	}
	for _, target := range c.DynamicImports {
		set[resolve.Relative(c.FileName, target)] = struct{}{}
	}
	return set
}

// Options tune Rewrite. The zero value always appends Runtime to processed
// chunks.
type Options struct {
	// OmitUnusedRuntime leaves a chunk unchanged when none of its imports
	// qualify.
	OmitUnusedRuntime bool
}

// Rewrite replaces the call heads of qualifying dynamic imports in c and
// appends Runtime. The second result is false when the chunk needs no
// processing, in which case the returned code is empty.
//
// imports must be the occurrences of c.Code in source order, as produced by
// lexer.Scan.
func (o Options) Rewrite(c Chunk, imports []lexer.Import) (string, bool) {
	if c.Format != FormatESM && len(c.DynamicImports) == 0 {
		return "", false
	}

	accept := c.Specifiers()

	var sb strings.Builder
	sb.Grow(len(c.Code) + len(Runtime))

	last := 0
	rewritten := 0
	for _, imp := range imports {
		if imp.Dynamic <= -1 || !imp.Named || imp.Specifier == "" {
			continue
		}
		if _, ok := accept[imp.Specifier]; !ok {
			continue
		}
		if imp.Start < last || imp.Dynamic < imp.Start {
			continue
		}
		sb.WriteString(c.Code[last:imp.Start])
		sb.WriteString(Helper)
		last = imp.Dynamic
		rewritten++
	}

	if rewritten == 0 && o.OmitUnusedRuntime {
		return "", false
	}

	tail := c.Code[last:]
	if i := strings.LastIndex(tail, sourceMapMarker); i > -1 {
		sb.WriteString(tail[:i])
		sb.WriteString(Runtime)
		sb.WriteString(tail[i:])
	} else {
		sb.WriteString(tail)
		sb.WriteString(Runtime)
	}
	return sb.String(), true
}

// Transform scans c and rewrites it. If scanning fails part way the imports
// found before the failure are still rewritten and the scan error is
// returned next to the result so callers can report it.
func (o Options) Transform(c Chunk) (string, bool, error) {
	if c.Format != FormatESM && len(c.DynamicImports) == 0 {
		return "", false, nil
	}
	imports, err := lexer.Scan(c.Code)
	code, ok := o.Rewrite(c, imports)
	return code, ok, err
}

// Rewrite is Options{}.Rewrite.
func Rewrite(c Chunk, imports []lexer.Import) (string, bool) {
	return Options{}.Rewrite(c, imports)
}

// Transform is Options{}.Transform.
func Transform(c Chunk) (string, bool, error) {
	return Options{}.Transform(c)
}
