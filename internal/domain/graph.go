package domain

import (
	"path"
	"strings"
)

// Graph is the derived view of the asset graph
type Graph struct {
	Root  string      `json:"root"`
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// GraphNode represents one asset
type GraphNode struct {
	ID    string `json:"id"`    // path relative to the served root
	Label string `json:"label"` // base name
	Group string `json:"group"` // "html", "css", "js", "dir" or "file"
	Size  int    `json:"size"`
}

// GraphEdge is a reference from one asset to another
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// NewGraph creates an empty graph
func NewGraph(root string) *Graph {
	return &Graph{
		Root:  root,
		Nodes: make([]GraphNode, 0),
		Edges: make([]GraphEdge, 0),
	}
}

// AddNode appends an asset. hasContent is false for directories and
// missing files.
func (g *Graph) AddNode(id string, hasContent bool, size int) {
	g.Nodes = append(g.Nodes, GraphNode{
		ID:    id,
		Label: label(id),
		Group: group(id, hasContent),
		Size:  size,
	})
}

// AddEdge appends a reference
func (g *Graph) AddEdge(from, to string) {
	g.Edges = append(g.Edges, GraphEdge{From: from, To: to})
}

// Node finds a node by ID
func (g *Graph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

func label(id string) string {
	if id == "" {
		return "/"
	}
	return path.Base(id)
}

func group(id string, hasContent bool) string {
	if !hasContent {
		return "dir"
	}
	switch strings.ToLower(path.Ext(id)) {
	case ".html", ".htm":
		return "html"
	case ".css":
		return "css"
	case ".js", ".mjs", ".cjs", ".jsx":
		return "js"
	default:
		return "file"
	}
}
