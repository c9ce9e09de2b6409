// Package resolve maps a normalized request path to the asset serving it.
//
// The search is breadth-first from the root asset and stops at the first
// asset whose path, taken relative to the served root, equals the request
// path. Assets are visited at most once, so reference cycles and shared
// dependencies are safe, and nothing beyond the first match is read.
package resolve

import (
	"assetserve/internal/asset"
	"assetserve/internal/engine"
)

// Result is either NotFound (the zero value) or Found(Asset)
type Result struct {
	Asset asset.Asset
}

// NotFound is the result for a path no reachable asset serves
var NotFound = Result{}

// Found wraps a matching asset
func Found(a asset.Asset) Result {
	return Result{Asset: a}
}

// Found reports whether an asset matched
func (r Result) Found() bool {
	return r.Asset != nil
}

// Find looks for the asset reachable from root whose path relative to
// rootPath equals path. path must already be normalized: no leading slash
// and the default document appended to directory requests. Assets outside
// rootPath never match and are not searched further.
//
// A missing asset is a NotFound result, not an error; errors only come
// from reading references out of the graph.
func Find(c *engine.Context, rootPath string, root asset.Asset, path string) (Result, error) {
	if root == nil {
		return NotFound, nil
	}
	rel, inside := asset.PathTo(rootPath, root.Path())
	if !inside {
		return NotFound, nil
	}
	if rel == path {
		return Found(root), nil
	}

	visited := map[asset.Asset]struct{}{root: {}}
	queue := []asset.Asset{root}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		refs, err := next.References(c)
		if err != nil {
			return NotFound, err
		}
		for _, ref := range refs {
			if _, seen := visited[ref]; seen {
				continue
			}
			visited[ref] = struct{}{}

			rel, inside := asset.PathTo(rootPath, ref.Path())
			if !inside {
				continue
			}
			if rel == path {
				return Found(ref), nil
			}
			queue = append(queue, ref)
		}
	}
	return NotFound, nil
}
