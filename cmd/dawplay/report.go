// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"log/slog"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// report logs the totals the engine recorded during the run.
func report(ctx context.Context, reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.WithoutCancel(ctx), &rm); err != nil {
		slog.Warn("collecting metrics failed", "err", err)
		return
	}

	for _, attrs := range summarize(rm) {
		slog.Info("engine totals", attrs...)
	}
}

// summarize flattens counters to their totals and histograms to count and
// mean, one attribute list per instrument.
func summarize(rm metricdata.ResourceMetrics) [][]any {
	var out [][]any
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				out = append(out, []any{"metric", m.Name, "total", total})
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				attrs := []any{"metric", m.Name, "count", count}
				if count > 0 {
					attrs = append(attrs, "mean", seconds(sum/float64(count)))
				}
				out = append(out, attrs)
			}
		}
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
