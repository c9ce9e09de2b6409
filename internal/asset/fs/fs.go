// Package fs serves assets straight from a directory on disk.
//
// Every file or directory below the root is an asset. Files reference the
// local files their HTML, CSS or JavaScript mentions; directories reference
// their entries. Disk reads are memoized in the engine under one key per
// path, so a change notification only has to invalidate that key (and the
// parent listing) for every dependent computation to be redone.
package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"assetserve/internal/asset"
	"assetserve/internal/asset/html"
	"assetserve/internal/engine"
)

const keyPrefix = "fs:"

// FileSystem interns the assets found under one directory
type FileSystem struct {
	dir  string // OS path
	root string // slash-separated form of dir

	mu     sync.Mutex
	assets map[string]*File
}

// New opens dir as an asset source
func New(dir string) (*FileSystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}
	return &FileSystem{
		dir:    abs,
		root:   filepath.ToSlash(abs),
		assets: make(map[string]*File),
	}, nil
}

// Dir returns the OS path of the root directory
func (fs *FileSystem) Dir() string {
	return fs.dir
}

// Root returns the slash-separated root path that asset paths are
// relative to
func (fs *FileSystem) Root() string {
	return fs.root
}

// Entry returns the asset for a root-relative name; "" or "." is the root
// directory itself
func (fs *FileSystem) Entry(name string) *File {
	name = path.Clean("/" + filepath.ToSlash(name))
	return fs.intern(strings.TrimPrefix(name, "/"))
}

func (fs *FileSystem) intern(rel string) *File {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, ok := fs.assets[rel]
	if !ok {
		f = &File{fs: fs, rel: rel}
		fs.assets[rel] = f
	}
	return f
}

// Changed invalidates what the engine knows about an OS path and its
// parent listing. It returns the root-relative path, or false when osPath
// lies outside the root.
func (fs *FileSystem) Changed(e *engine.Engine, osPath string) (string, bool) {
	rel, err := filepath.Rel(fs.dir, osPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		rel = ""
	}

	e.Invalidate(fs.key(rel))
	e.Invalidate(fs.key(parent(rel)))
	return rel, true
}

func (fs *FileSystem) key(rel string) string {
	return keyPrefix + strings.TrimSuffix(fs.root, "/") + "/" + rel
}

func parent(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

// File is a file or directory below the root
type File struct {
	fs  *FileSystem
	rel string
}

var _ asset.Asset = (*File)(nil)

// Path implements asset.Asset
func (f *File) Path() string {
	if f.rel == "" {
		return f.fs.root
	}
	return strings.TrimSuffix(f.fs.root, "/") + "/" + f.rel
}

// Rel returns the path relative to the root
func (f *File) Rel() string {
	return f.rel
}

// Content implements asset.Asset
func (f *File) Content(c *engine.Context) (*asset.Content, error) {
	st, err := f.stat(c)
	if err != nil {
		return nil, err
	}
	if !st.exists || st.dir {
		return nil, nil
	}
	return &asset.Content{Bytes: st.data}, nil
}

// References implements asset.Asset
func (f *File) References(c *engine.Context) ([]asset.Asset, error) {
	return engine.Get(c, keyPrefix+"refs:"+f.Path(), f.references)
}

func (f *File) references(c *engine.Context) ([]asset.Asset, error) {
	st, err := f.stat(c)
	if err != nil {
		return nil, err
	}
	if !st.exists {
		return nil, nil
	}

	var refs []asset.Asset
	if st.dir {
		for _, name := range st.names {
			refs = append(refs, f.fs.intern(path.Join(f.rel, name)))
		}
		return refs, nil
	}

	specs, err := html.Extract(html.KindOf(f.rel), st.data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", asset.ErrContentUnavailable, f.rel, err)
	}
	for _, spec := range specs {
		if rel, ok := html.Resolve(f.rel, spec); ok {
			refs = append(refs, f.fs.intern(rel))
		}
	}
	return refs, nil
}

// state is what one disk read learned about a path
type state struct {
	exists bool
	dir    bool
	data   []byte
	names  []string
}

func (f *File) stat(c *engine.Context) (*state, error) {
	return engine.Get(c, f.fs.key(f.rel), f.load)
}

func (f *File) load(*engine.Context) (*state, error) {
	osPath := filepath.Join(f.fs.dir, filepath.FromSlash(f.rel))

	info, err := os.Stat(osPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return &state{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", asset.ErrContentUnavailable, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(osPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", asset.ErrContentUnavailable, err)
		}
		st := &state{exists: true, dir: true}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			st.names = append(st.names, entry.Name())
		}
		return st, nil
	}

	data, err := os.ReadFile(osPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", asset.ErrContentUnavailable, err)
	}
	return &state{exists: true, data: data}, nil
}
