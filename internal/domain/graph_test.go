package domain

import (
	"net/http"
	"testing"
)

func TestNewGraph(t *testing.T) {
	t.Run("creates empty graph with initialized collections", func(t *testing.T) {
		graph := NewGraph("/srv")

		if graph.Root != "/srv" {
			t.Errorf("expected root /srv, got %s", graph.Root)
		}
		if graph.Nodes == nil || len(graph.Nodes) != 0 {
			t.Errorf("expected empty initialized Nodes, got %v", graph.Nodes)
		}
		if graph.Edges == nil || len(graph.Edges) != 0 {
			t.Errorf("expected empty initialized Edges, got %v", graph.Edges)
		}
	})
}

func TestGraphAddNode(t *testing.T) {
	tests := []struct {
		id         string
		hasContent bool
		wantLabel  string
		wantGroup  string
	}{
		{"index.html", true, "index.html", "html"},
		{"css/site.CSS", true, "site.CSS", "css"},
		{"js/app.mjs", true, "app.mjs", "js"},
		{"img/logo.png", true, "logo.png", "file"},
		{"docs", false, "docs", "dir"},
		{"", false, "/", "dir"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			graph := NewGraph("/srv")
			graph.AddNode(tt.id, tt.hasContent, 3)

			node, ok := graph.Node(tt.id)
			if !ok {
				t.Fatalf("expected node %q", tt.id)
			}
			if node.Label != tt.wantLabel {
				t.Errorf("expected label %q, got %q", tt.wantLabel, node.Label)
			}
			if node.Group != tt.wantGroup {
				t.Errorf("expected group %q, got %q", tt.wantGroup, node.Group)
			}
			if node.Size != 3 {
				t.Errorf("expected size 3, got %d", node.Size)
			}
		})
	}
}

func TestGraphAddEdge(t *testing.T) {
	graph := NewGraph("/srv")
	graph.AddNode("index.html", true, 0)
	graph.AddNode("app.js", true, 0)
	graph.AddEdge("index.html", "app.js")

	if len(graph.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(graph.Edges))
	}
	if e := graph.Edges[0]; e.From != "index.html" || e.To != "app.js" {
		t.Errorf("unexpected edge %+v", e)
	}
	if _, ok := graph.Node("missing.js"); ok {
		t.Error("expected missing node lookup to fail")
	}
}

func TestResponses(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		r := OK([]byte("hi"), "text/plain")
		if r.Status != http.StatusOK || string(r.Body) != "hi" || !r.IsSuccess() {
			t.Errorf("unexpected response %+v", r)
		}
	})

	t.Run("errors carry empty bodies", func(t *testing.T) {
		for _, r := range []Response{NotFound(), InternalError(), MethodNotAllowed()} {
			if len(r.Body) != 0 {
				t.Errorf("expected empty body for %d", r.Status)
			}
			if r.IsSuccess() {
				t.Errorf("expected %d not to be a success", r.Status)
			}
		}
	})
}
