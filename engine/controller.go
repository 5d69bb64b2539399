// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ik5/dawcore/asset"
	"github.com/ik5/dawcore/graph"
	"github.com/ik5/dawcore/plugin"
	"github.com/ik5/dawcore/timeline"
)

// sendRetry is how long a push into a full command ring waits before
// trying again.
const sendRetry = time.Millisecond

var ErrConfig = errors.New("invalid engine configuration")

// Config sizes a controller and its engine.
type Config struct {
	// BlockSize is the block length buffers are compiled for. Longer
	// device blocks are split until the controller grows its buffers, up
	// to the host MaxFrames.
	BlockSize int
	// RingCapacity is the command ring size.
	RingCapacity int
	// ReportCapacity is the report ring size.
	ReportCapacity int
	// PluginBudget is the share of a block one plugin call may take before
	// it is reported.
	PluginBudget float64
	// MeterInterval is the number of blocks between peak reports.
	MeterInterval int
	// LoadConcurrency bounds parallel asset decoding in Load.
	LoadConcurrency int
}

// DefaultConfig returns the defaults used by cmd/dawplay.
func DefaultConfig() Config {
	return Config{
		BlockSize:       512,
		RingCapacity:    256,
		ReportCapacity:  1024,
		PluginBudget:    0.5,
		MeterInterval:   DefaultMeterInterval,
		LoadConcurrency: 4,
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics sets the instruments Run records into. The default is
// DefaultMetrics().
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithErrorHandler sets where plugin faults, device loss and load
// warnings go. The default logs them.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Controller) { c.handler = h }
}

// WithPollInterval sets how often Run drains reports.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.poll = d }
}

type staleGraph struct {
	graph *graph.Graph
	// seq of the command that replaced the graph
	seq uint64
}

// Controller is the control side of a session. It owns the graph, the
// timeline and the assets, and publishes them to its Engine as programs.
// Its methods are safe for concurrent use; Run must have a single caller.
type Controller struct {
	mu       sync.Mutex
	id       string
	host     *plugin.Host
	cfg      Config
	engine   *Engine
	graph    *graph.Graph
	timeline *timeline.Timeline
	assets   *asset.Table

	seq         uint64
	graphSeq    uint64
	applied     uint64
	blockFrames int
	stale       []staleGraph

	logger  *slog.Logger
	metrics *Metrics
	handler ErrorHandler
	poll    time.Duration

	position atomic.Int64
	state    atomic.Uint32
	dropped  uint64

	peakMu sync.Mutex
	peaks  [][2]float32
}

// New creates a controller for plugins hosted by host. The sample rate
// and largest block come from the host.
func New(host *plugin.Host, cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.validate(host.MaxFrames()); err != nil {
		return nil, err
	}

	c := &Controller{
		id:          uuid.NewString(),
		host:        host,
		cfg:         cfg,
		engine:      newEngine(cfg.RingCapacity, cfg.ReportCapacity, cfg.MeterInterval),
		blockFrames: cfg.BlockSize,
		logger:      slog.Default(),
		poll:        10 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = DefaultMetrics()
	}
	c.logger = c.logger.With("session", c.id)
	if c.handler == nil {
		logger := c.logger
		c.handler = NewLoggingErrorHandler(nil, func(err error) {
			logger.Warn("engine error", "err", err)
		})
	}
	c.reset()

	return c, nil
}

func (cfg Config) validate(hostMax int) error {
	var errs []error
	if cfg.BlockSize < 1 || cfg.BlockSize > hostMax {
		errs = append(errs, fmt.Errorf("%w: block size %d outside [1, %d]", ErrConfig, cfg.BlockSize, hostMax))
	}
	if cfg.RingCapacity < 2 {
		errs = append(errs, fmt.Errorf("%w: ring capacity %d", ErrConfig, cfg.RingCapacity))
	}
	if cfg.ReportCapacity < 2 {
		errs = append(errs, fmt.Errorf("%w: report capacity %d", ErrConfig, cfg.ReportCapacity))
	}
	if !(cfg.PluginBudget >= 0) {
		errs = append(errs, fmt.Errorf("%w: plugin budget %v", ErrConfig, cfg.PluginBudget))
	}
	return errors.Join(errs...)
}

// reset installs an empty project. The caller holds mu or owns c.
func (c *Controller) reset() {
	c.graph = graph.New(c.host, graph.WithLogger(c.logger))
	c.assets = asset.NewTable()
	c.timeline = timeline.New(c.assets, c.host.SampleRate())
	c.graphSeq = c.seq + 1
}

// ID identifies the session in logs.
func (c *Controller) ID() string { return c.id }

// Engine returns the audio side. Its Process method belongs to the device
// callback.
func (c *Controller) Engine() *Engine { return c.engine }

// SampleRate is the engine rate.
func (c *Controller) SampleRate() int { return c.host.SampleRate() }

// Position is the playhead in frames as last reported by the engine.
func (c *Controller) Position() int64 { return c.position.Load() }

// State is the transport state as last reported by the engine. It reads
// Seeking between a Seek and the block that applies it.
func (c *Controller) State() State { return State(c.state.Load()) }

// Peak returns the last reported peaks of a channel.
func (c *Controller) Peak(ch graph.Index) (left, right float32) {
	c.peakMu.Lock()
	defer c.peakMu.Unlock()
	if int(ch) < 0 || int(ch) >= len(c.peaks) {
		return 0, 0
	}
	return c.peaks[ch][0], c.peaks[ch][1]
}

// send pushes a command, retrying while the ring is full until ctx is
// done. The caller holds mu.
func (c *Controller) send(ctx context.Context, cmd command) error {
	if c.engine.commands.Push(cmd) {
		return nil
	}

	t := time.NewTimer(sendRetry)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrTransportFull, ctx.Err())
		case <-t.C:
		}
		if c.engine.commands.Push(cmd) {
			return nil
		}
		t.Reset(sendRetry)
	}
}

// publish compiles the current project and sends it. The caller holds mu.
func (c *Controller) publish(ctx context.Context) error {
	c.seq++
	plan := c.graph.Compile(c.blockFrames, c.cfg.PluginBudget)
	p := newProgram(c.seq, plan, c.timeline, c.assets)
	return c.send(ctx, command{kind: cmdProgram, program: p})
}

// edit runs fn under the lock and publishes the result when it succeeds.
// When publishing fails the edit stays in place and goes out with the
// next program.
func (c *Controller) edit(ctx context.Context, fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	return c.publish(ctx)
}

// Play starts the transport from the current position.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(ctx, command{kind: cmdPlay})
}

// Stop halts the transport at the end of the current block and resets
// plugins. The position is kept.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(ctx, command{kind: cmdStop})
}

// Seek moves the playhead to frame at the next block boundary. Plugins are
// reset and notes already sounding at frame are retriggered.
func (c *Controller) Seek(ctx context.Context, frame int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// the engine may report the resolved state before send returns
	prev := c.state.Swap(uint32(Seeking))
	if err := c.send(ctx, command{kind: cmdSeek, frame: max(frame, 0)}); err != nil {
		c.state.CompareAndSwap(uint32(Seeking), prev)
		return err
	}
	return nil
}

// SeekTime seeks to a musical position under the current meter.
func (c *Controller) SeekTime(ctx context.Context, t timeline.MusicalTime) error {
	c.mu.Lock()
	frame := c.timeline.Meter().Frames(t, c.host.SampleRate())
	c.mu.Unlock()
	return c.Seek(ctx, frame)
}

// Clear stops the transport, unloads the program and starts an empty
// project. Plugins of the old project are closed once the engine has let
// go of them.
func (c *Controller) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	if err := c.send(ctx, command{kind: cmdClear, seq: c.seq}); err != nil {
		c.seq--
		return err
	}
	c.stale = append(c.stale, staleGraph{graph: c.graph, seq: c.seq})
	c.reset()
	return nil
}

// DeviceLost stops the transport after the output device went away and
// reports a DeviceError.
func (c *Controller) DeviceLost(err error) {
	c.mu.Lock()
	// the callback may be gone; the stop applies when it returns
	if !c.engine.commands.Push(command{kind: cmdStop}) {
		c.engine.halt.Store(true)
	}
	c.mu.Unlock()

	c.state.Store(uint32(Stopped))
	c.handler.HandleError(&DeviceError{Err: err})
}

// AddChannel appends a mixer channel.
func (c *Controller) AddChannel(ctx context.Context, cfg graph.Config) (graph.Index, error) {
	var idx graph.Index
	err := c.edit(ctx, func() (err error) {
		idx, err = c.graph.AddChannel(cfg)
		return err
	})
	return idx, err
}

// Connect routes from into to. A connection closing a cycle is rejected
// with a *graph.CycleError and nothing changes.
func (c *Controller) Connect(ctx context.Context, from, to graph.Index) error {
	return c.edit(ctx, func() error { return c.graph.Connect(from, to) })
}

// Disconnect removes a route.
func (c *Controller) Disconnect(ctx context.Context, from, to graph.Index) error {
	return c.edit(ctx, func() error { return c.graph.Disconnect(from, to) })
}

// SetPlugin loads a plugin into a chain slot. A plugin that cannot be
// loaded leaves the slot empty; the error is a warning (see IsWarning) and
// the change is still published.
func (c *Controller) SetPlugin(ctx context.Context, ch graph.Index, slot int, id, state []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	err := c.graph.SetPlugin(ch, slot, id, state)
	c.metrics.RecordPluginLoad(ctx, time.Since(start), string(id))
	if err != nil && !IsWarning(err) {
		return err
	}
	return errors.Join(err, c.publish(ctx))
}

// RemovePlugin drops a chain slot.
func (c *Controller) RemovePlugin(ctx context.Context, ch graph.Index, slot int) error {
	return c.edit(ctx, func() error { return c.graph.RemovePlugin(ch, slot) })
}

// SetVolume changes a channel gain without recompiling.
func (c *Controller) SetVolume(ctx context.Context, ch graph.Index, gain float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.graph.SetVolume(ch, gain); err != nil {
		return err
	}
	return c.send(ctx, command{kind: cmdVolume, channel: int(ch), value: float64(gain)})
}

// SetPan changes a channel pan without recompiling.
func (c *Controller) SetPan(ctx context.Context, ch graph.Index, pan float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.graph.SetPan(ch, pan); err != nil {
		return err
	}
	return c.send(ctx, command{kind: cmdPan, channel: int(ch), value: float64(pan)})
}

// SetPluginEnabled bypasses or re-enables a slot.
func (c *Controller) SetPluginEnabled(ctx context.Context, ch graph.Index, slot int, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.graph.SetPluginEnabled(ch, slot, enabled); err != nil {
		return err
	}
	return c.send(ctx, command{kind: cmdEnabled, channel: int(ch), slot: slot, enabled: enabled})
}

// SetPluginMix sets a slot dry/wet balance.
func (c *Controller) SetPluginMix(ctx context.Context, ch graph.Index, slot int, mix float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.graph.SetPluginMix(ch, slot, mix); err != nil {
		return err
	}
	return c.send(ctx, command{kind: cmdMix, channel: int(ch), slot: slot, value: float64(mix)})
}

// SetParam changes a plugin parameter. The value is clamped to the
// parameter range and applied on the audio thread.
func (c *Controller) SetParam(ctx context.Context, ch graph.Index, slot int, id uint32, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.graph.CheckParam(ch, slot, id, v)
	if err != nil {
		return err
	}
	return c.send(ctx, command{kind: cmdParam, channel: int(ch), slot: slot, param: id, value: v})
}

// Param reads a plugin parameter.
func (c *Controller) Param(ch graph.Index, slot int, id uint32) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots, err := c.graph.Slots(ch)
	if err != nil {
		return 0, err
	}
	if slot < 0 || slot >= len(slots) {
		return 0, fmt.Errorf("%w: %d on channel %d", graph.ErrUnknownSlot, slot, ch)
	}
	if !slots[slot].Loaded() {
		return 0, fmt.Errorf("%w: %d on channel %d", graph.ErrEmptySlot, slot, ch)
	}
	return slots[slot].Handle.Param(id)
}

// AddAudio appends an audio asset and returns its index.
func (c *Controller) AddAudio(ctx context.Context, a *asset.Audio) (int, error) {
	var idx int
	err := c.edit(ctx, func() error {
		idx = c.assets.AddAudio(a)
		return nil
	})
	return idx, err
}

// AddMidi appends a MIDI asset and returns its index.
func (c *Controller) AddMidi(ctx context.Context, m *asset.Midi) (int, error) {
	var idx int
	err := c.edit(ctx, func() error {
		idx = c.assets.AddMidi(m)
		return nil
	})
	return idx, err
}

// AddTrack appends a track feeding ch.
func (c *Controller) AddTrack(ctx context.Context, ch graph.Index) (int, error) {
	var idx int
	err := c.edit(ctx, func() error {
		if int(ch) < 0 || int(ch) >= c.graph.ChannelCount() {
			return fmt.Errorf("%w: %d", graph.ErrUnknownChannel, ch)
		}
		idx = c.timeline.AddTrack(int(ch))
		return nil
	})
	return idx, err
}

// SetTrackChannel reroutes a track.
func (c *Controller) SetTrackChannel(ctx context.Context, track int, ch graph.Index) error {
	return c.edit(ctx, func() error {
		if int(ch) < 0 || int(ch) >= c.graph.ChannelCount() {
			return fmt.Errorf("%w: %d", graph.ErrUnknownChannel, ch)
		}
		return c.timeline.SetTrackChannel(track, int(ch))
	})
}

// InsertClip places a clip on a track.
func (c *Controller) InsertClip(ctx context.Context, track int, clip timeline.Clip) (timeline.ClipHandle, error) {
	var h timeline.ClipHandle
	err := c.edit(ctx, func() (err error) {
		h, err = c.timeline.InsertClip(track, clip)
		return err
	})
	return h, err
}

// MoveClip moves a clip to start at globalStart.
func (c *Controller) MoveClip(ctx context.Context, h timeline.ClipHandle, globalStart timeline.MusicalTime) error {
	return c.edit(ctx, func() error { return c.timeline.MoveClip(h, globalStart) })
}

// TrimClip changes a clip source offset and region.
func (c *Controller) TrimClip(ctx context.Context, h timeline.ClipHandle, clipStart, globalStart, globalEnd timeline.MusicalTime) error {
	return c.edit(ctx, func() error { return c.timeline.TrimClip(h, clipStart, globalStart, globalEnd) })
}

// RemoveClip deletes a clip.
func (c *Controller) RemoveClip(ctx context.Context, h timeline.ClipHandle) error {
	return c.edit(ctx, func() error { return c.timeline.RemoveClip(h) })
}

// SetMeter changes tempo and time signature. Clips keep their musical
// positions; the playhead keeps its frame.
func (c *Controller) SetMeter(ctx context.Context, m timeline.Meter) error {
	return c.edit(ctx, func() error { return c.timeline.SetMeter(m) })
}

// Meter returns the current meter.
func (c *Controller) Meter() timeline.Meter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.Meter()
}

// End returns the frame where the last clip ends.
func (c *Controller) End() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.Meter().Frames(c.timeline.End(), c.host.SampleRate())
}

// RenderRegion renders one track over a region on the control thread,
// for previews and tests. It does not touch the engine.
func (c *Controller) RenderRegion(track int, blockStart int64, frames int) (timeline.Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if track < 0 || track >= c.timeline.TrackCount() {
		return timeline.Region{}, fmt.Errorf("%w: %d", ErrNoTrack, track)
	}
	return c.timeline.RenderRegion(track, blockStart, frames)
}

// Close releases every plugin of the current and replaced projects. The
// engine must no longer be processing.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := []error{c.graph.Close()}
	for _, s := range c.stale {
		errs = append(errs, s.graph.Close())
	}
	c.stale = nil
	return errors.Join(errs...)
}
