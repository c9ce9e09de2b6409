// Package codec renders the asset graph in the formats the admin endpoint
// and the graph command offer.
package codec

import (
	"fmt"
	"io"
	"sort"

	"assetserve/internal/domain"
)

// Exporter writes a graph in one format
type Exporter interface {
	Export(graph *domain.Graph, w io.Writer) error
	Format() string
	ContentType() string
}

var exporters = map[string]Exporter{}

func register(e Exporter) {
	exporters[e.Format()] = e
}

func init() {
	register(NewJSONCodec())
	register(NewYAMLCodec())
	register(NewDOTCodec())
}

// ForFormat returns the exporter for format, "" meaning json
func ForFormat(format string) (Exporter, error) {
	if format == "" {
		format = "json"
	}
	e, ok := exporters[format]
	if !ok {
		return nil, fmt.Errorf("unknown graph format %q", format)
	}
	return e, nil
}

// Formats lists the supported formats
func Formats() []string {
	formats := make([]string, 0, len(exporters))
	for f := range exporters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}
