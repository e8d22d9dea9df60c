package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"

	"github.com/coldog/cdif/pkg/config"
	"github.com/coldog/cdif/pkg/linker"
	"github.com/coldog/cdif/pkg/plugin"
)

var errBuild = errors.New("build failed")

func esbuildFormat(s string) (api.Format, error) {
	switch s {
	case "esm", "es", "module":
		return api.FormatESM, nil
	case "iife":
		return api.FormatIIFE, nil
	case "cjs":
		return api.FormatCommonJS, nil
	}
	return api.FormatDefault, fmt.Errorf("unknown format %q", s)
}

func newBuildCmd(cfg *config.Config) *cobra.Command {
	var minify, sourcemap bool
	var metafile string
	cmd := &cobra.Command{
		Use:   "build <entry>...",
		Short: "Bundle entry points with esbuild and cache their dynamic imports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := esbuildFormat(cfg.Format)
			if err != nil {
				return err
			}
			opts := api.BuildOptions{
				EntryPoints:       args,
				Bundle:            true,
				Splitting:         format == api.FormatESM,
				Format:            format,
				Outdir:            cfg.Outdir,
				Write:             true,
				MinifyWhitespace:  minify,
				MinifyIdentifiers: minify,
				MinifySyntax:      minify,
				LogLevel:          api.LogLevelSilent,
				Plugins: []api.Plugin{plugin.New(plugin.Options{
					Options:   linker.Options{OmitUnusedRuntime: cfg.OmitUnused},
					CacheSize: cfg.CacheSize,
					Logger:    slog.Default(),
				})},
			}
			if sourcemap {
				opts.Sourcemap = api.SourceMapLinked
			}

			result := api.Build(opts)
			for _, msg := range result.Warnings {
				slog.Warn(msg.Text, "plugin", msg.PluginName)
			}
			for _, msg := range result.Errors {
				attrs := []any{"plugin", msg.PluginName}
				if msg.Location != nil {
					attrs = append(attrs, "file", msg.Location.File, "line", msg.Location.Line)
				}
				slog.Error(msg.Text, attrs...)
			}
			if len(result.Errors) > 0 {
				return errBuild
			}

			if metafile != "" {
				if err := os.WriteFile(metafile, []byte(result.Metafile), 0644); err != nil {
					return fmt.Errorf("write metafile: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %d files into %s\n", len(result.OutputFiles), cfg.Outdir)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Outdir, "outdir", cfg.Outdir, "output directory")
	f.StringVar(&cfg.Format, "format", cfg.Format, "output format: esm, iife or cjs")
	f.BoolVar(&cfg.OmitUnused, "omit-unused", cfg.OmitUnused, "leave chunks without rewritten call sites untouched")
	f.BoolVar(&minify, "minify", false, "minify output")
	f.BoolVar(&sourcemap, "sourcemap", false, "emit linked source maps")
	f.StringVar(&metafile, "metafile", "", "write the esbuild metafile to this path")
	return cmd
}
