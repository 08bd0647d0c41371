package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// TextfileExporter collects OTel metrics into a private Prometheus registry
// and writes them to a file in the text exposition format. Batch runs use it
// with the node_exporter textfile collector instead of serving /metrics.
type TextfileExporter struct {
	path     string
	registry *prometheus.Registry
	reader   *promexporter.Exporter
}

// NewTextfileExporter creates an exporter writing to path. Each call uses an
// independent registry so repeated runs in one process do not collide.
func NewTextfileExporter(path string) (*TextfileExporter, error) {
	registry := prometheus.NewRegistry()

	reader, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &TextfileExporter{path: path, registry: registry, reader: reader}, nil
}

// Reader returns the metric reader to attach to a MeterProvider.
func (te *TextfileExporter) Reader() sdkmetric.Reader { return te.reader }

// Path returns the output file path.
func (te *TextfileExporter) Path() string { return te.path }

// Flush writes the current metric values to the file atomically.
func (te *TextfileExporter) Flush() error {
	err := prometheus.WriteToTextfile(te.path, te.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", te.path, err)
	}

	return nil
}
