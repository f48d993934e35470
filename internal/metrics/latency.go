package metrics

import (
	"github.com/ashikshafi08/memorybench-sub000/internal/types"
)

// telemetryValues extracts one telemetry field across all rows, skipping rows
// without telemetry.
func telemetryValues(results []types.EvalResult, field string) []float64 {
	var values []float64
	for _, r := range results {
		tel := types.MetaMap(r.Metadata, "telemetry")
		if tel == nil {
			continue
		}
		if v, ok := types.MetaFloat(tel, field); ok {
			values = append(values, v)
		}
	}
	return values
}

func avgSearchLatencyCalc() *Calculator {
	return &Calculator{
		Name:        "avg_search_latency_ms",
		Description: "Mean provider search latency",
		Compute: func(in ComputeInput) types.MetricResult {
			return types.MetricResult{
				Name:  "avg_search_latency_ms",
				Value: mean(telemetryValues(in.Results, "searchLatencyMs")),
			}
		},
	}
}

func avgTotalLatencyCalc() *Calculator {
	return &Calculator{
		Name:        "avg_total_latency_ms",
		Description: "Mean end-to-end per-item latency",
		Compute: func(in ComputeInput) types.MetricResult {
			return types.MetricResult{
				Name:  "avg_total_latency_ms",
				Value: mean(telemetryValues(in.Results, "totalLatencyMs")),
			}
		},
	}
}

func p95LatencyCalc() *Calculator {
	return &Calculator{
		Name:        "p95_latency_ms",
		Description: "95th percentile of end-to-end per-item latency",
		Compute: func(in ComputeInput) types.MetricResult {
			return types.MetricResult{
				Name:  "p95_latency_ms",
				Value: percentile(telemetryValues(in.Results, "totalLatencyMs"), 95),
			}
		},
	}
}
