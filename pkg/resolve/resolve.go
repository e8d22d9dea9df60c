// Package resolve maps between chunk file names and the relative specifiers
// that generated code uses to load them. All paths are slash separated and
// relative to the output root.
package resolve

import (
	"path"
	"strings"
)

// Relative returns the specifier that reaches file b when resolved from the
// directory containing file a. The result always starts with "./" or "../".
//
//	a: chunks/foo/bar.js  b: chunks/bax.js      => ../bax.js
//	a: chunks/bax.js      b: chunks/foo/bar.js  => ./foo/bar.js
//	a: chunks/foo.js      b: chunks/bar.js      => ./bar.js
//
// Inputs are expected to be clean; "." and ".." segments are not normalized.
func Relative(a, b string) string {
	aParts := strings.Split(a, "/")
	bParts := strings.Split(b, "/")

	// Only directory segments take part in the common prefix. The last
	// segment of each path is a file name.
	i := 0
	for i < len(aParts)-1 && i < len(bParts)-1 && aParts[i] == bParts[i] {
		i++
	}

	prefix := "./"
	if up := len(aParts) - i - 1; up > 0 {
		prefix = strings.Repeat("../", up)
	}
	return prefix + strings.Join(bParts[i:], "/")
}

// Resolve joins a relative specifier onto the directory of file from. It is
// the inverse of Relative: Resolve(a, Relative(a, b)) == b for clean paths.
// Bare specifiers (no "./" or "../" prefix) are returned unchanged.
func Resolve(from, specifier string) string {
	if !IsRelative(specifier) {
		return specifier
	}
	return path.Join(path.Dir(from), specifier)
}

// IsRelative reports whether specifier is a "./" or "../" path.
func IsRelative(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
