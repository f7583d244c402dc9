package telemetry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Sample is one collected data point.
type Sample struct {
	Name       string  `json:"name"`
	Attributes string  `json:"attributes,omitempty"`
	Value      float64 `json:"value"`
}

// Collector is an in-process meter provider whose metrics are read on
// demand, used by the CLI to print a metrics summary.
type Collector struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	metrics  *VisibilityMetrics
}

// NewCollector creates a Collector with its VisibilityMetrics.
func NewCollector() (*Collector, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewVisibilityMetrics(provider)
	if err != nil {
		_ = provider.Shutdown(context.Background())

		return nil, fmt.Errorf("creating visibility metrics: %w", err)
	}

	return &Collector{reader: reader, provider: provider, metrics: m}, nil
}

// Metrics returns the instruments recording into c.
func (c *Collector) Metrics() *VisibilityMetrics {
	return c.metrics
}

// Samples collects the current values. Counters yield their sum and
// histograms their count, sorted by name and attributes.
func (c *Collector) Samples(ctx context.Context) ([]Sample, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}

	var samples []Sample

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					samples = append(samples, Sample{Name: m.Name, Attributes: formatAttrs(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					samples = append(samples, Sample{Name: m.Name, Attributes: formatAttrs(dp.Attributes), Value: float64(dp.Count)})
				}
			}
		}
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}

		return samples[i].Attributes < samples[j].Attributes
	})

	return samples, nil
}

// Shutdown releases the meter provider.
func (c *Collector) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func formatAttrs(set attribute.Set) string {
	parts := make([]string, 0, set.Len())

	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}

	return strings.Join(parts, ",")
}
