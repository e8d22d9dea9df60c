package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/coldog/cdif/pkg/config"
	"github.com/coldog/cdif/pkg/linker"
	"github.com/coldog/cdif/pkg/manifest"
)

func newRewriteCmd(cfg *config.Config) *cobra.Command {
	var dryRun, diff bool
	cmd := &cobra.Command{
		Use:   "rewrite <manifest>",
		Short: "Rewrite the chunks of an existing build in place",
		Long: `Rewrite reads an esbuild metafile or a vite manifest.json, rewrites the
dynamic imports of every chunk listed in it and writes changed chunks back
to the output directory. Metafile paths are taken relative to the current
directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metas, err := manifest.Load(args[0], cfg.Outdir)
			if err != nil {
				return err
			}

			cache, err := linker.NewCache(cfg.CacheSize)
			if err != nil {
				return err
			}
			b := &linker.Bundle{
				Root:    cfg.Outdir,
				Format:  linker.ParseFormat(cfg.Format),
				Options: linker.Options{OmitUnusedRuntime: cfg.OmitUnused},
				Cache:   cache,
				Logger:  slog.Default(),
			}
			if err := b.Load(metas); err != nil {
				return err
			}
			if err := b.Rewrite(cmd.Context(), cfg.Concurrency); err != nil {
				return fmt.Errorf("rewrite: %w", err)
			}

			changed := b.Changed()
			if diff {
				for _, f := range changed {
					ins, del := linker.Changes(f.Code, f.Output)
					fmt.Fprintf(cmd.OutOrStdout(), "--- %s (+%d -%d)\n%s", f.FileName, ins, del, linker.Diff(f.Code, f.Output))
				}
			}
			if !dryRun {
				if err := b.Write(); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rewrote %d of %d chunks\n", len(changed), len(b.Files))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Outdir, "outdir", cfg.Outdir, "output directory holding the chunks")
	f.StringVar(&cfg.Format, "format", cfg.Format, "chunk format: esm or other")
	f.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "chunks rewritten in parallel")
	f.BoolVar(&cfg.OmitUnused, "omit-unused", cfg.OmitUnused, "leave chunks without rewritten call sites untouched")
	f.BoolVar(&dryRun, "dry-run", false, "do not write changed chunks")
	f.BoolVar(&diff, "diff", false, "print a patch for every changed chunk")
	return cmd
}
