package linker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/coldog/cdif/pkg/graph"
)

// File is a chunk of a Bundle together with its rewrite result.
type File struct {
	Chunk
	Output  string
	Changed bool
}

// Bundle is the output directory of one build.
type Bundle struct {
	Root    string
	Format  Format
	Options Options
	Cache   *Cache
	Logger  *slog.Logger
	Files   []*File
}

func (b *Bundle) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// Load reads the code of every chunk described by metas from Root.
func (b *Bundle) Load(metas []Meta) error {
	b.Files = b.Files[:0]
	for _, m := range metas {
		data, err := os.ReadFile(filepath.Join(b.Root, filepath.FromSlash(m.FileName)))
		if err != nil {
			return fmt.Errorf("load chunk %s: %w", m.FileName, err)
		}
		b.Files = append(b.Files, &File{Chunk: Chunk{Meta: m, Code: string(data), Format: b.Format}})
	}
	return nil
}

// Rewrite transforms every loaded chunk, at most concurrency at a time.
// Chunks are independent of each other.
func (b *Bundle) Rewrite(ctx context.Context, concurrency int) error {
	g := &graph.Graph{
		Concurrency: concurrency,
		Nodes:       graph.Independent(len(b.Files)),
		Logger:      b.Logger,
		Process: func(ctx context.Context, id int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f := b.Files[id]
			code, changed, err := b.Cache.Transform(b.Options, f.Chunk)
			if err != nil {
				b.logger().Warn("rewrite: scan failed, no call sites rewritten", "chunk", f.FileName, "error", err)
			}
			f.Output, f.Changed = code, changed
			b.logger().Debug("rewrite: chunk done", "chunk", f.FileName, "changed", changed)
			return nil
		},
	}
	return g.Solve(ctx)
}

// Write writes every changed chunk back to Root.
func (b *Bundle) Write() error {
	for _, f := range b.Files {
		if !f.Changed {
			continue
		}
		b.logger().Info("writing", "chunk", f.FileName)
		if err := WriteFile(filepath.Join(b.Root, filepath.FromSlash(f.FileName)), f.Output); err != nil {
			return err
		}
	}
	return nil
}

// Changed returns the files whose code was rewritten.
func (b *Bundle) Changed() []*File {
	var files []*File
	for _, f := range b.Files {
		if f.Changed {
			files = append(files, f)
		}
	}
	return files
}
