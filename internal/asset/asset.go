// Package asset defines the view of the build graph the dev server reads.
//
// Assets are owned by their source; the server never creates or mutates
// them. Two handles refer to the same asset iff they are equal as
// interface values, which sources guarantee by interning.
package asset

import (
	"errors"
	"strings"

	"assetserve/internal/engine"
)

// ErrContentUnavailable is returned when an asset's content or references
// cannot be read, e.g. because of an I/O failure on its source file
var ErrContentUnavailable = errors.New("content unavailable")

// Content is the byte payload of an asset
type Content struct {
	Bytes []byte
}

// Asset is a node of the build graph
type Asset interface {
	// Path is the canonical, slash-separated identifier of the asset
	Path() string
	// Content returns the payload, or nil when the asset has none
	// (a directory, or a referenced file that does not exist)
	Content(c *engine.Context) (*Content, error)
	// References returns the assets this one directly depends on, in a
	// stable order. It may include assets already seen elsewhere.
	References(c *engine.Context) ([]Asset, error)
}

// PathTo returns p relative to root when p lies inside root.
// Both are slash-separated; root "" contains every path.
func PathTo(root, p string) (string, bool) {
	root = strings.TrimSuffix(root, "/")
	switch {
	case root == "":
		return strings.TrimPrefix(p, "/"), true
	case p == root:
		return "", true
	case strings.HasPrefix(p, root+"/"):
		return p[len(root)+1:], true
	default:
		return "", false
	}
}

// TransitiveClosure returns every asset reachable from root, root first,
// in breadth-first order and without duplicates
func TransitiveClosure(c *engine.Context, root Asset) ([]Asset, error) {
	seen := map[Asset]struct{}{root: {}}
	out := []Asset{root}

	for i := 0; i < len(out); i++ {
		refs, err := out[i].References(c)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out, nil
}
