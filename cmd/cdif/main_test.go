package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldog/cdif/pkg/config"
	"github.com/coldog/cdif/pkg/linker"
)

func testConfig() config.Config {
	return config.Config{
		Outdir:      "dist",
		Format:      "esm",
		Concurrency: 2,
		CacheSize:   16,
		LogLevel:    "error",
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(testConfig())
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, code := range files {
		require.NoError(t, linker.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), code))
	}
}

func TestRelative(t *testing.T) {
	out, err := run(t, "relative", "chunks/foo/bar.js", "chunks/bax.js")
	require.NoError(t, err)
	assert.Equal(t, "../bax.js\n", out)

	_, err = run(t, "relative", "a.js")
	assert.Error(t, err)
}

const viteManifest = `{
  "src/main.js": {"file": "main.js", "isEntry": true, "dynamicImports": ["src/page.js"]},
  "src/page.js": {"file": "page.js", "isDynamicEntry": true}
}`

const mainChunk = `const p = import("./page.js");
`

func viteProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"dist/main.js":             mainChunk,
		"dist/page.js":             "export const x = 1;\n",
		"dist/.vite/manifest.json": viteManifest,
	})
	t.Chdir(dir)
	return dir
}

func TestRewrite(t *testing.T) {
	dir := viteProject(t)

	out, err := run(t, "rewrite", "dist/.vite/manifest.json", "--omit-unused")
	require.NoError(t, err)
	assert.Equal(t, "rewrote 1 of 2 chunks\n", out)

	data, err := os.ReadFile(filepath.Join(dir, "dist", "main.js"))
	require.NoError(t, err)
	assert.Equal(t, `const p = _cdif_("./page.js");
`+linker.Runtime, string(data))

	data, err = os.ReadFile(filepath.Join(dir, "dist", "page.js"))
	require.NoError(t, err)
	assert.Equal(t, "export const x = 1;\n", string(data))
}

func TestRewriteDryRunDiff(t *testing.T) {
	dir := viteProject(t)

	out, err := run(t, "rewrite", "dist/.vite/manifest.json", "--dry-run", "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "--- main.js (+")
	assert.Contains(t, out, "--- page.js (+")
	assert.True(t, strings.HasSuffix(out, "rewrote 2 of 2 chunks\n"))

	data, err := os.ReadFile(filepath.Join(dir, "dist", "main.js"))
	require.NoError(t, err)
	assert.Equal(t, mainChunk, string(data))
}

func TestRewriteMissingManifest(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "rewrite", "nope.json")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"src/main.js": `export const open = () => import("./page.js");
`,
		"src/page.js": `export const page = "page";
`,
	})
	t.Chdir(dir)

	out, err := run(t, "build", "src/main.js", "--metafile", "meta.json")
	require.NoError(t, err)
	assert.Contains(t, out, "into dist")

	data, err := os.ReadFile(filepath.Join(dir, "dist", "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `_cdif_("./page`)
	assert.Contains(t, string(data), linker.Runtime)
	assert.NotContains(t, string(data), `import("./page`)

	_, err = os.Stat(filepath.Join(dir, "meta.json"))
	assert.NoError(t, err)
}

func TestBuildErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := run(t, "build", "missing.js")
	assert.ErrorIs(t, err, errBuild)

	_, err = run(t, "build", "missing.js", "--format", "amd")
	assert.Error(t, err)
}
