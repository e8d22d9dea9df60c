// Package manifest reads the chunk metadata written by bundlers: which output
// files exist and which other outputs each one loads dynamically.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/coldog/cdif/pkg/linker"
)

var ErrFormat = errors.New("manifest: unknown format")

// Metafile is the subset of an esbuild metafile that describes outputs.
type Metafile struct {
	Outputs map[string]MetafileOutput `json:"outputs"`
}

type MetafileOutput struct {
	Imports    []MetafileImport `json:"imports"`
	EntryPoint string           `json:"entryPoint,omitempty"`
}

type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

// ViteChunk is one entry of a vite (rollup) manifest.json.
type ViteChunk struct {
	File           string   `json:"file"`
	Src            string   `json:"src,omitempty"`
	IsEntry        bool     `json:"isEntry,omitempty"`
	IsDynamicEntry bool     `json:"isDynamicEntry,omitempty"`
	Imports        []string `json:"imports,omitempty"`
	DynamicImports []string `json:"dynamicImports,omitempty"`
}

// IsScript reports whether name is a JavaScript output.
func IsScript(name string) bool {
	switch path.Ext(name) {
	case ".js", ".mjs", ".cjs":
		return true
	}
	return false
}

// FromMetafile returns one Meta per JavaScript output of an esbuild
// metafile. Paths in the metafile are relative to the build's working
// directory; outdir is the output directory relative to that same directory
// and all returned names are relative to outdir. Outputs outside outdir are
// skipped.
func FromMetafile(data []byte, outdir string) ([]linker.Meta, error) {
	var mf Metafile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse metafile: %w", err)
	}

	var metas []linker.Meta
	for name, out := range mf.Outputs {
		fileName, ok := within(outdir, name)
		if !ok || !IsScript(fileName) {
			continue
		}
		m := linker.Meta{FileName: fileName}
		for _, imp := range out.Imports {
			if imp.Kind != "dynamic-import" || imp.External {
				continue
			}
			if target, ok := within(outdir, imp.Path); ok {
				m.DynamicImports = append(m.DynamicImports, target)
			}
		}
		metas = append(metas, m)
	}
	sortMetas(metas)
	return metas, nil
}

// FromVite returns one Meta per JavaScript chunk of a vite manifest. File
// names in the manifest are already relative to the output directory.
func FromVite(data []byte) ([]linker.Meta, error) {
	var chunks map[string]ViteChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse vite manifest: %w", err)
	}

	seen := map[string]bool{}
	var metas []linker.Meta
	for _, c := range chunks {
		if !IsScript(c.File) || seen[c.File] {
			continue
		}
		seen[c.File] = true
		m := linker.Meta{FileName: path.Clean(c.File)}
		for _, key := range c.DynamicImports {
			target, ok := chunks[key]
			if !ok || target.File == "" {
				continue
			}
			m.DynamicImports = append(m.DynamicImports, path.Clean(target.File))
		}
		metas = append(metas, m)
	}
	sortMetas(metas)
	return metas, nil
}

// Parse detects whether data is an esbuild metafile or a vite manifest.
func Parse(data []byte, outdir string) ([]linker.Meta, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if _, ok := probe["outputs"]; ok {
		if _, ok := probe["inputs"]; ok {
			return FromMetafile(data, outdir)
		}
	}
	for _, raw := range probe {
		var c ViteChunk
		if err := json.Unmarshal(raw, &c); err != nil || c.File == "" {
			return nil, ErrFormat
		}
	}
	return FromVite(data)
}

// Load reads and parses the manifest at name.
func Load(name, outdir string) ([]linker.Meta, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, outdir)
}

// within returns name relative to dir, both slash separated.
func within(dir, name string) (string, bool) {
	dir = path.Clean(strings.TrimPrefix(dir, "./"))
	name = path.Clean(name)
	if dir == "." {
		return name, !strings.HasPrefix(name, "../") && name != ".."
	}
	rel := strings.TrimPrefix(name, dir+"/")
	return rel, rel != name
}

func sortMetas(metas []linker.Meta) {
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].FileName < metas[j].FileName
	})
}
