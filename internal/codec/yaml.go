package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"assetserve/internal/domain"
)

// YAMLCodec handles YAML export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlGraph groups each asset with the assets it references
type yamlGraph struct {
	Root   string      `yaml:"root"`
	Assets []yamlAsset `yaml:"assets"`
}

type yamlAsset struct {
	Path       string   `yaml:"path"`
	Group      string   `yaml:"group"`
	Size       int      `yaml:"size"`
	References []string `yaml:"references,omitempty"`
}

// Export writes the graph as YAML, one entry per asset in traversal order
func (c *YAMLCodec) Export(graph *domain.Graph, w io.Writer) error {
	refs := make(map[string][]string)
	for _, e := range graph.Edges {
		refs[e.From] = append(refs[e.From], e.To)
	}

	yg := yamlGraph{Root: graph.Root, Assets: make([]yamlAsset, 0, len(graph.Nodes))}
	for _, n := range graph.Nodes {
		yg.Assets = append(yg.Assets, yamlAsset{
			Path:       n.ID,
			Group:      n.Group,
			Size:       n.Size,
			References: refs[n.ID],
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&yg); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
