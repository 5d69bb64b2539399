// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope of every dawcore instrument.
const meterName = "github.com/ik5/dawcore"

// Metrics holds the OpenTelemetry instruments of a session. They are
// recorded by Controller.Run from drained reports, never on the audio
// thread.
type Metrics struct {
	// Blocks counts played blocks.
	Blocks metric.Int64Counter

	// BlockOverruns counts blocks whose processing took longer than the
	// audio they produced.
	BlockOverruns metric.Int64Counter

	// PluginErrors counts failed plugin calls. Use with attribute:
	//   attribute.String("instance", ...)
	PluginErrors metric.Int64Counter

	// PluginOverruns counts plugin calls over their time budget. Use with
	// attribute:
	//   attribute.String("instance", ...)
	PluginOverruns metric.Int64Counter

	// ReportsDropped counts reports lost to a full report ring.
	ReportsDropped metric.Int64Counter

	// BlockDuration tracks the time spent in Engine.Process per block.
	BlockDuration metric.Float64Histogram

	// PluginLoadDuration tracks plugin load and state restore time.
	PluginLoadDuration metric.Float64Histogram
}

// blockBuckets covers block processing times in seconds, from well under
// a millisecond up to a long 4096 frame block.
var blockBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

var loadBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates the instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Blocks, err = m.Int64Counter("dawcore.engine.blocks",
		metric.WithDescription("Number of blocks played."),
	); err != nil {
		return nil, err
	}
	if met.BlockOverruns, err = m.Int64Counter("dawcore.engine.block_overruns",
		metric.WithDescription("Number of blocks that took longer to process than to play."),
	); err != nil {
		return nil, err
	}
	if met.PluginErrors, err = m.Int64Counter("dawcore.plugin.errors",
		metric.WithDescription("Number of failed plugin process calls."),
	); err != nil {
		return nil, err
	}
	if met.PluginOverruns, err = m.Int64Counter("dawcore.plugin.overruns",
		metric.WithDescription("Number of plugin process calls over budget."),
	); err != nil {
		return nil, err
	}
	if met.ReportsDropped, err = m.Int64Counter("dawcore.engine.reports_dropped",
		metric.WithDescription("Number of audio thread reports lost to a full ring."),
	); err != nil {
		return nil, err
	}
	if met.BlockDuration, err = m.Float64Histogram("dawcore.engine.block_duration",
		metric.WithDescription("Time spent processing one block."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(blockBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PluginLoadDuration, err = m.Float64Histogram("dawcore.plugin.load_duration",
		metric.WithDescription("Time spent loading a plugin and restoring its state."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(loadBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns instruments from the global meter provider. It
// panics if they cannot be created.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("engine: creating default metrics: " + err.Error())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordBlock records one played block of frames at sampleRate.
func (m *Metrics) RecordBlock(ctx context.Context, took time.Duration, frames, sampleRate int) {
	m.Blocks.Add(ctx, 1)
	m.BlockDuration.Record(ctx, took.Seconds())
	if sampleRate > 0 && took > time.Duration(frames)*time.Second/time.Duration(sampleRate) {
		m.BlockOverruns.Add(ctx, 1)
	}
}

// RecordFault counts a plugin fault.
func (m *Metrics) RecordFault(ctx context.Context, overrun bool, instance string) {
	attrs := metric.WithAttributes(attribute.String("instance", instance))
	if overrun {
		m.PluginOverruns.Add(ctx, 1, attrs)
		return
	}
	m.PluginErrors.Add(ctx, 1, attrs)
}

// RecordPluginLoad records the time one plugin took to load.
func (m *Metrics) RecordPluginLoad(ctx context.Context, took time.Duration, id string) {
	m.PluginLoadDuration.Record(ctx, took.Seconds(), metric.WithAttributes(attribute.String("plugin", id)))
}
