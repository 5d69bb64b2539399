// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func TestMetrics_RecordBlock(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	ctx := context.Background()

	// 480 frames at 48 kHz last 10ms
	m.RecordBlock(ctx, 2*time.Millisecond, 480, 48000)
	m.RecordBlock(ctx, 12*time.Millisecond, 480, 48000)

	rm := collect(t, reader)
	if got := counterValue(t, rm, "dawcore.engine.blocks"); got != 2 {
		t.Errorf("blocks = %d, want 2", got)
	}
	if got := counterValue(t, rm, "dawcore.engine.block_overruns"); got != 1 {
		t.Errorf("block overruns = %d, want 1", got)
	}

	h := findMetric(rm, "dawcore.engine.block_duration")
	if h == nil {
		t.Fatal("block duration histogram not found")
	}
	hist, ok := h.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("block duration is %T, want Histogram[float64]", h.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Fatalf("block duration points = %+v, want one point of two", hist.DataPoints)
	}
}

func TestMetrics_RecordFault(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFault(ctx, false, "a")
	m.RecordFault(ctx, false, "b")
	m.RecordFault(ctx, true, "a")
	m.RecordPluginLoad(ctx, 3*time.Millisecond, "dawcore.gain")

	rm := collect(t, reader)
	if got := counterValue(t, rm, "dawcore.plugin.errors"); got != 2 {
		t.Errorf("plugin errors = %d, want 2", got)
	}
	if got := counterValue(t, rm, "dawcore.plugin.overruns"); got != 1 {
		t.Errorf("plugin overruns = %d, want 1", got)
	}
	if findMetric(rm, "dawcore.plugin.load_duration") == nil {
		t.Error("plugin load histogram not found")
	}
}
