package gdapi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

// sampleValue returns the counter, gauge or histogram count of the series of
// name whose labels include want.
func sampleValue(t *testing.T, registry *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}

			matched := true

			for key, value := range want {
				if labels[key] != value {
					matched = false
				}
			}

			if !matched {
				continue
			}

			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				return float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	return 0
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	collector := gdapi.NewMetricsCollectorWithRegistry(registry)

	collector.RecordSchemaLoad(gdapi.SchemaSourceNetwork, 4)
	collector.RecordSchemaLoad(gdapi.SchemaSourceCache, 3)
	collector.RecordSchemaLoad(gdapi.SchemaSourceCache, -1)
	collector.RecordClassified("resource")
	collector.RecordClassified("resource")
	collector.RecordSignal(404)
	collector.RecordSignal("schema")
	collector.RecordSignal(nil)

	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_schema_loads_total", map[string]string{"source": "network"}), 0)
	assert.InDelta(t, 2, sampleValue(t, registry, "gdapi_schema_loads_total", map[string]string{"source": "cache"}), 0)
	assert.InDelta(t, 3, sampleValue(t, registry, "gdapi_schema_types", nil), 0)
	assert.InDelta(t, 2, sampleValue(t, registry, "gdapi_classified_values_total", map[string]string{"class": "resource"}), 0)
	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_signaled_conditions_total", map[string]string{"status": "404"}), 0)
	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_signaled_conditions_total", map[string]string{"status": "schema"}), 0)
	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_signaled_conditions_total", map[string]string{"status": "unknown"}), 0)
}

func TestMetricsCollector_Nil(t *testing.T) {
	t.Parallel()

	var collector *gdapi.MetricsCollector

	assert.NotPanics(t, func() {
		collector.RecordSchemaLoad(gdapi.SchemaSourceFile, 1)
		collector.RecordClassified("resource")
		collector.RecordSignal(500)
	})
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	collector := gdapi.NewMetricsCollectorWithRegistry(registry)

	chain := gdapi.NewInterceptorChain()
	chain.AddRequestInterceptor(gdapi.MetricsRequestInterceptor(collector))
	chain.AddResponseInterceptor(gdapi.MetricsResponseInterceptor(collector))

	ctx := context.Background()

	req := &gdapi.InterceptedRequest{Method: "GET", URL: "https://api.example.com/v1/widgets"}
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
	assert.Contains(t, req.Metadata, "start_time")
	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_requests_in_flight", map[string]string{"method": "GET"}), 0)

	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &gdapi.InterceptedResponse{StatusCode: 200}))
	assert.InDelta(t, 0, sampleValue(t, registry, "gdapi_requests_in_flight", map[string]string{"method": "GET"}), 0)
	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_requests_total", map[string]string{"method": "GET", "status_code": "200"}), 0)
	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_request_duration_seconds", map[string]string{"method": "GET"}), 0)

	failed := &gdapi.InterceptedRequest{Method: "POST"}
	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, failed))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, failed, &gdapi.InterceptedResponse{Error: errors.New("connection refused")}))
	assert.InDelta(t, 1, sampleValue(t, registry, "gdapi_transport_errors_total", map[string]string{"method": "POST"}), 0)
	assert.InDelta(t, 0, sampleValue(t, registry, "gdapi_requests_total", map[string]string{"method": "POST"}), 0)
}
