package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"assetserve/internal/asset"
	"assetserve/internal/engine"
	"assetserve/internal/engine/enginetest"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func setup(t *testing.T, files map[string]string) (*FileSystem, *engine.Engine) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)

	fsys, err := New(dir)
	require.NoError(t, err)

	e := engine.New()
	t.Cleanup(e.Close)
	return fsys, e
}

func content(t *testing.T, e *engine.Engine, a asset.Asset) *asset.Content {
	t.Helper()
	return enginetest.Value(t, e, a.Content)
}

func TestNew(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file)
	require.Error(t, err)
}

func TestEntryPaths(t *testing.T) {
	fsys, _ := setup(t, nil)

	require.Equal(t, fsys.Root(), fsys.Entry("").Path())
	require.Equal(t, fsys.Root(), fsys.Entry(".").Path())
	require.Equal(t, fsys.Root()+"/docs/index.html", fsys.Entry("docs/index.html").Path())
	require.Equal(t, "docs/index.html", fsys.Entry("/docs/../docs/index.html").Rel())
	require.Same(t, fsys.Entry("a.js"), fsys.Entry("./a.js"))
}

func TestContent(t *testing.T) {
	fsys, e := setup(t, map[string]string{
		"index.html": "<h1>hi</h1>",
		"empty.txt":  "",
		"docs/a.md":  "# a",
	})

	got := content(t, e, fsys.Entry("index.html"))
	require.NotNil(t, got)
	require.Equal(t, "<h1>hi</h1>", string(got.Bytes))

	got = content(t, e, fsys.Entry("empty.txt"))
	require.NotNil(t, got)
	require.Empty(t, got.Bytes)

	require.Nil(t, content(t, e, fsys.Entry("docs")))
	require.Nil(t, content(t, e, fsys.Entry("missing.txt")))
}

func TestReferences(t *testing.T) {
	fsys, e := setup(t, map[string]string{
		"index.html":  `<link href="style.css" rel="stylesheet"><script src="/app.js"></script><a href="https://example.com">x</a>`,
		"style.css":   `body { background: url(img/bg.png) }`,
		"app.js":      `import "./lib/util.js"; import React from "react";`,
		"img/bg.png":  "png",
		"lib/util.js": "",
		".hidden":     "secret",
	})

	refs := enginetest.Value(t, e, fsys.Entry("index.html").References)
	require.Equal(t, []asset.Asset{fsys.Entry("style.css"), fsys.Entry("app.js")}, refs)

	refs = enginetest.Value(t, e, fsys.Entry("style.css").References)
	require.Equal(t, []asset.Asset{fsys.Entry("img/bg.png")}, refs)

	refs = enginetest.Value(t, e, fsys.Entry("app.js").References)
	require.Equal(t, []asset.Asset{fsys.Entry("lib/util.js")}, refs)

	refs = enginetest.Value(t, e, fsys.Entry("img/bg.png").References)
	require.Empty(t, refs)

	// directory listings skip dot files and come back in name order
	refs = enginetest.Value(t, e, fsys.Entry("").References)
	require.Equal(t, []asset.Asset{
		fsys.Entry("app.js"),
		fsys.Entry("img"),
		fsys.Entry("index.html"),
		fsys.Entry("lib"),
		fsys.Entry("style.css"),
	}, refs)

	refs = enginetest.Value(t, e, fsys.Entry("nope").References)
	require.Empty(t, refs)
}

func TestChangedInvalidates(t *testing.T) {
	fsys, e := setup(t, map[string]string{
		"index.html": "v1",
	})
	index := fsys.Entry("index.html")

	require.Equal(t, "v1", string(content(t, e, index).Bytes))
	listing := enginetest.Value(t, e, fsys.Entry("").References)
	require.Len(t, listing, 1)

	// without a change notification the memoized value is kept
	writeFiles(t, fsys.Dir(), map[string]string{"index.html": "v2"})
	require.Equal(t, "v1", string(content(t, e, index).Bytes))

	rel, ok := fsys.Changed(e, filepath.Join(fsys.Dir(), "index.html"))
	require.True(t, ok)
	require.Equal(t, "index.html", rel)
	require.Equal(t, "v2", string(content(t, e, index).Bytes))

	// a new file shows up in its parent listing
	writeFiles(t, fsys.Dir(), map[string]string{"app.js": ""})
	_, ok = fsys.Changed(e, filepath.Join(fsys.Dir(), "app.js"))
	require.True(t, ok)
	listing = enginetest.Value(t, e, fsys.Entry("").References)
	require.Len(t, listing, 2)

	// removal
	require.NoError(t, os.Remove(filepath.Join(fsys.Dir(), "index.html")))
	fsys.Changed(e, filepath.Join(fsys.Dir(), "index.html"))
	require.Nil(t, content(t, e, index))
}

func TestChangedOutsideRoot(t *testing.T) {
	fsys, e := setup(t, nil)

	_, ok := fsys.Changed(e, filepath.Join(filepath.Dir(fsys.Dir()), "other.txt"))
	require.False(t, ok)

	rel, ok := fsys.Changed(e, fsys.Dir())
	require.True(t, ok)
	require.Equal(t, "", rel)
}
