// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"log/slog"
	"math"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ik5/dawcore/asset"
	"github.com/ik5/dawcore/graph"
	"github.com/ik5/dawcore/internal/plugintest"
	"github.com/ik5/dawcore/plugin"
	"github.com/ik5/dawcore/plugin/builtin"
	"github.com/ik5/dawcore/timeline"
)

// At 60 BPM and 256 frames per second one tick is one frame.
const (
	rate    = 256
	block   = 64
	hostMax = 256
)

var unitMeter = timeline.Meter{BPM: 60, Numerator: 4}

type rig struct {
	c      *Controller
	e      *Engine
	reader *sdkmetric.ManualReader
	errs   []error
}

func newRig(t *testing.T, tune func(*Config), mocks ...*plugintest.Mock) *rig {
	t.Helper()

	host := plugin.NewHost(rate, hostMax)
	builtin.Register(host)
	for _, m := range mocks {
		host.Register(m.ID, m.Factory())
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	met, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	cfg := DefaultConfig()
	cfg.BlockSize = block
	cfg.PluginBudget = 0
	cfg.MeterInterval = 1
	if tune != nil {
		tune(&cfg)
	}

	r := &rig{reader: reader}
	r.c, err = New(host, cfg,
		WithLogger(slog.New(slog.DiscardHandler)),
		WithMetrics(met),
		WithErrorHandler(FuncErrorHandler(func(err error) { r.errs = append(r.errs, err) })),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.e = r.c.Engine()
	t.Cleanup(func() { _ = r.c.Close() })

	if err := r.c.SetMeter(t.Context(), unitMeter); err != nil {
		t.Fatal(err)
	}
	return r
}

// process runs one device block and drains the reports.
func (r *rig) process(t *testing.T, frames int) []float32 {
	t.Helper()
	out := make([]float32, frames*2)
	r.e.Process(out)
	r.c.Poll(t.Context())
	return out
}

// constantAudio is a loaded stereo asset of frames frames at v.
func constantAudio(name string, frames int, v float32) *asset.Audio {
	data := make([]float32, frames*2)
	for i := range data {
		data[i] = v
	}
	return &asset.Audio{Name: name, Hash: asset.Hash([]byte(name)), SampleRate: rate, Data: data}
}

// rampAudio holds frame/1024 in both channels.
func rampAudio(name string, frames int) *asset.Audio {
	data := make([]float32, frames*2)
	for i := range frames {
		data[i*2] = float32(i) / 1024
		data[i*2+1] = float32(i) / 1024
	}
	return &asset.Audio{Name: name, Hash: asset.Hash([]byte(name)), SampleRate: rate, Data: data}
}

// addAudioClip puts a on a new master track at [start, end) from clipStart.
func (r *rig) addAudioClip(t *testing.T, a *asset.Audio, start, end, clipStart timeline.MusicalTime) {
	t.Helper()
	ctx := t.Context()

	idx, err := r.c.AddAudio(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	track, err := r.c.AddTrack(ctx, graph.Master)
	if err != nil {
		t.Fatal(err)
	}
	pos, err := timeline.NewClipPosition(start, end, clipStart)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.c.InsertClip(ctx, track, timeline.NewAudioClip(idx, pos)); err != nil {
		t.Fatal(err)
	}
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue sums every data point of an int64 counter.
func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}
