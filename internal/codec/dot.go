package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"assetserve/internal/domain"
)

// DOTCodec writes Graphviz digraphs
type DOTCodec struct{}

// NewDOTCodec creates a new DOT codec
func NewDOTCodec() *DOTCodec {
	return &DOTCodec{}
}

func (c *DOTCodec) Format() string {
	return "dot"
}

func (c *DOTCodec) ContentType() string {
	return "text/vnd.graphviz"
}

var groupShapes = map[string]string{
	"html": "box",
	"css":  "note",
	"js":   "component",
	"dir":  "folder",
}

// Export writes the graph as a DOT digraph
func (c *DOTCodec) Export(graph *domain.Graph, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph assets {\n")
	fmt.Fprintf(bw, "  label=%s;\n", strconv.Quote(graph.Root))
	for _, n := range graph.Nodes {
		shape, ok := groupShapes[n.Group]
		if !ok {
			shape = "ellipse"
		}
		fmt.Fprintf(bw, "  %s [label=%s, shape=%s];\n", strconv.Quote(n.ID), strconv.Quote(n.Label), shape)
	}
	for _, e := range graph.Edges {
		fmt.Fprintf(bw, "  %s -> %s;\n", strconv.Quote(e.From), strconv.Quote(e.To))
	}
	fmt.Fprintf(bw, "}\n")
	return bw.Flush()
}
