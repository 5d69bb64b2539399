// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ik5/dawcore/engine"
)

func TestSummarize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	m, err := engine.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	m.RecordBlock(ctx, time.Millisecond, 480, 48000)
	m.RecordBlock(ctx, 3*time.Millisecond, 480, 48000)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}

	got := map[string][]any{}
	for _, attrs := range summarize(rm) {
		got[attrs[1].(string)] = attrs
	}

	blocks, ok := got["dawcore.engine.blocks"]
	if !ok {
		t.Fatalf("no blocks total in %v", got)
	}
	if blocks[3] != int64(2) {
		t.Errorf("blocks total = %v, want 2", blocks[3])
	}

	dur, ok := got["dawcore.engine.block_duration"]
	if !ok || len(dur) != 6 {
		t.Fatalf("block duration summary = %v", dur)
	}
	mean, _ := dur[5].(time.Duration)
	if dur[3] != uint64(2) || mean < 2*time.Millisecond-time.Microsecond || mean > 2*time.Millisecond+time.Microsecond {
		t.Errorf("block duration = count %v mean %v, want 2 and 2ms", dur[3], dur[5])
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if l := newLogger("warn"); l.Enabled(ctx, -4) || !l.Enabled(ctx, 4) {
		t.Error("warn logger should drop info and keep warnings")
	}
	if l := newLogger(""); !l.Enabled(ctx, 0) {
		t.Error("default logger should keep info")
	}
}
