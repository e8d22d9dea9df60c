package linker

// Helper is the identifier that replaces the `import` keyword at rewritten
// call sites.
const Helper = "_cdif_"

// Runtime defines Helper. It is appended once to every processed chunk.
//
// The cache lives on the function object (f.c) and maps a specifier to the
// pending load, then to the loaded module once it settles. A rejected load
// stays in the cache as the rejected promise.
const Runtime = `;function _cdif_(s,o,f=_cdif_){let c=f.c||(f.c={});return c[s]||(c[s]=import(s,o).then(m=>c[s]=m))}`

// sourceMapMarker starts the trailing source map reference line. Runtime is
// inserted before it so the reference stays the last line.
const sourceMapMarker = "\n//# source"
