package linker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, code := range files {
		require.NoError(t, WriteFile(filepath.Join(root, filepath.FromSlash(name)), code))
	}
}

func TestBundle(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.js":            `const a = () => import("./chunks/a.js");`,
		"chunks/a.js":        `export const b = () => import("./nested/b.js");` + "\n//# sourceMappingURL=a.js.map",
		"chunks/nested/b.js": `export const back = () => import("../a.js");`,
		"plain.js":           `export default 1;`,
	})

	b := &Bundle{Root: root, Format: FormatESM, Options: Options{OmitUnusedRuntime: true}}
	require.NoError(t, b.Load([]Meta{
		{FileName: "main.js", DynamicImports: []string{"chunks/a.js"}},
		{FileName: "chunks/a.js", DynamicImports: []string{"chunks/nested/b.js"}},
		{FileName: "chunks/nested/b.js", DynamicImports: []string{"chunks/a.js"}},
		{FileName: "plain.js"},
	}))
	require.Len(t, b.Files, 4)

	require.NoError(t, b.Rewrite(context.Background(), 2))
	assert.Len(t, b.Changed(), 3)
	require.NoError(t, b.Write())

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, `const a = () => _cdif_("./chunks/a.js");`+Runtime, read("main.js"))
	assert.Equal(t, `export const b = () => _cdif_("./nested/b.js");`+Runtime+"\n//# sourceMappingURL=a.js.map", read("chunks/a.js"))
	assert.Equal(t, `export const back = () => _cdif_("../a.js");`+Runtime, read("chunks/nested/b.js"))
	assert.Equal(t, `export default 1;`, read("plain.js"))
}

func TestBundleLoadMissing(t *testing.T) {
	b := &Bundle{Root: t.TempDir(), Format: FormatESM}
	err := b.Load([]Meta{{FileName: "missing.js"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.js")
}

func TestBundleCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": `import("./b.js")`})

	b := &Bundle{Root: root, Format: FormatESM}
	require.NoError(t, b.Load([]Meta{{FileName: "a.js", DynamicImports: []string{"b.js"}}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Rewrite(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBundleWithCache(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": `import("./b.js")`})
	cache, err := NewCache(8)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		b := &Bundle{Root: root, Format: FormatESM, Cache: cache}
		require.NoError(t, b.Load([]Meta{{FileName: "a.js", DynamicImports: []string{"b.js"}}}))
		require.NoError(t, b.Rewrite(context.Background(), 1))
		require.Len(t, b.Changed(), 1)
		assert.True(t, strings.HasPrefix(b.Files[0].Output, `_cdif_("./b.js")`))
	}
	assert.Equal(t, 1, cache.Len())
}

func TestCache(t *testing.T) {
	cache, err := NewCache(2)
	require.NoError(t, err)

	c := esm("a.js", `import("./b.js")`, "b.js")
	out1, changed1, err := cache.Transform(Options{}, c)
	require.NoError(t, err)
	out2, changed2, err := cache.Transform(Options{}, c)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
	assert.Equal(t, changed1, changed2)
	assert.Equal(t, 1, cache.Len())

	// Different options, targets or code are different entries.
	_, _, _ = cache.Transform(Options{OmitUnusedRuntime: true}, c)
	assert.Equal(t, 2, cache.Len())
	c.DynamicImports = nil
	out3, _, err := cache.Transform(Options{}, c)
	require.NoError(t, err)
	assert.Equal(t, `import("./b.js")`+Runtime, out3)
	assert.Equal(t, 2, cache.Len())

	var nilCache *Cache
	out4, _, err := nilCache.Transform(Options{}, c)
	require.NoError(t, err)
	assert.Equal(t, out3, out4)
	assert.Zero(t, nilCache.Len())
}

func TestDiff(t *testing.T) {
	before := `const a = () => import("./b.js");`
	after, _, err := Transform(esm("a.js", before, "b.js"))
	require.NoError(t, err)

	patch := Diff(before, after)
	assert.NotEmpty(t, patch)
	assert.True(t, strings.HasPrefix(patch, "@@ "))
	assert.Empty(t, Diff(before, before))

	inserted, deleted := Changes(before, after)
	assert.Equal(t, len(after)-len(before), inserted-deleted)
	assert.LessOrEqual(t, deleted, len("import"))
}
