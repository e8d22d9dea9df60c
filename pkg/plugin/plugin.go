// Package plugin applies the cached dynamic import rewrite to esbuild builds.
//
// The plugin needs the metafile to know which outputs are chunks of the same
// build, so it turns Metafile on. It also turns Write off and writes the
// rewritten files itself when the build asked for them to be written.
package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/coldog/cdif/pkg/linker"
	"github.com/coldog/cdif/pkg/manifest"
)

const Name = "cache-dynamic-import"

type Options struct {
	linker.Options

	// CacheSize bounds the rewrite memo kept across rebuilds.
	CacheSize int
	Logger    *slog.Logger
}

type plugin struct {
	opts   Options
	cache  *linker.Cache
	logger *slog.Logger
}

// New returns the esbuild plugin.
func New(opts Options) api.Plugin {
	p := &plugin{opts: opts, logger: opts.Logger}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if opts.CacheSize > 0 {
		cache, err := linker.NewCache(opts.CacheSize)
		if err == nil {
			p.cache = cache
		}
	}
	return api.Plugin{Name: Name, Setup: p.setup}
}

type build struct {
	*plugin
	write  bool
	format linker.Format
	outdir string // absolute
	wd     string // absolute
}

func (p *plugin) setup(pb api.PluginBuild) {
	bo := pb.InitialOptions
	b := &build{
		plugin: p,
		write:  bo.Write,
		format: linker.FormatOther,
	}
	if bo.Format == api.FormatESM {
		b.format = linker.FormatESM
	}
	bo.Write = false
	bo.Metafile = true

	b.wd = bo.AbsWorkingDir
	if b.wd == "" {
		if wd, err := os.Getwd(); err == nil {
			b.wd = wd
		}
	}
	b.outdir = bo.Outdir
	if b.outdir == "" && bo.Outfile != "" {
		b.outdir = filepath.Dir(bo.Outfile)
	}
	if !filepath.IsAbs(b.outdir) {
		b.outdir = filepath.Join(b.wd, b.outdir)
	}

	pb.OnEnd(b.onEnd)
}

func (b *build) onEnd(result *api.BuildResult) (api.OnEndResult, error) {
	var res api.OnEndResult
	if len(result.Errors) > 0 {
		return res, nil
	}

	outdir, err := filepath.Rel(b.wd, b.outdir)
	if err != nil {
		return res, fmt.Errorf("%s: %w", Name, err)
	}
	metas, err := manifest.FromMetafile([]byte(result.Metafile), filepath.ToSlash(outdir))
	if err != nil {
		return res, fmt.Errorf("%s: %w", Name, err)
	}
	byName := make(map[string]linker.Meta, len(metas))
	for _, m := range metas {
		byName[m.FileName] = m
	}

	rewritten := 0
	for i := range result.OutputFiles {
		f := &result.OutputFiles[i]
		rel, err := filepath.Rel(b.outdir, f.Path)
		if err != nil {
			continue
		}
		meta, ok := byName[filepath.ToSlash(rel)]
		if !ok {
			continue
		}
		c := linker.Chunk{Meta: meta, Code: string(f.Contents), Format: b.format}
		code, changed, err := b.cache.Transform(b.opts.Options, c)
		if err != nil {
			res.Warnings = append(res.Warnings, api.Message{
				PluginName: Name,
				Text:       fmt.Sprintf("%s: %v", meta.FileName, err),
			})
		}
		if !changed {
			continue
		}
		f.Contents = []byte(code)
		rewritten++
	}
	b.logger.Debug("rewrote chunks", "plugin", Name, "chunks", rewritten, "outputs", len(result.OutputFiles))

	if b.write {
		for _, f := range result.OutputFiles {
			if err := linker.WriteFile(f.Path, string(f.Contents)); err != nil {
				return res, fmt.Errorf("%s: %w", Name, err)
			}
		}
	}
	return res, nil
}
