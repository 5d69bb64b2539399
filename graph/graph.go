// SPDX-License-Identifier: EPL-2.0

package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/ik5/dawcore/plugin"
)

// Index identifies a channel. Indices are stable for the life of the
// graph.
type Index int

// Master is the channel created by New. It is the one routed to the
// device.
const Master Index = 0

// Config describes a new channel.
type Config struct {
	Name   string
	Volume float32
	Pan    float32
}

// DefaultConfig is a unity gain, centered channel.
func DefaultConfig(name string) Config {
	return Config{Name: name, Volume: 1}
}

// Slot is one position of a plugin chain. A slot whose plugin failed to
// load keeps its ID and state so the project saves them back unchanged.
type Slot struct {
	ID []byte
	// State is the blob the slot was restored from. For a loaded plugin
	// the live state comes from Handle.SaveState.
	State   []byte
	Handle  *plugin.Handle
	Enabled bool
	Mix     float32
}

// Loaded reports whether the slot has a live plugin.
func (s *Slot) Loaded() bool { return s.Handle != nil }

type channel struct {
	name   string
	volume float32
	pan    float32
	conns  []Index
	slots  []*Slot
}

type retiredHandle struct {
	handle *plugin.Handle
	// version is the graph version the handle was removed at; plans from
	// later versions no longer reference it
	version uint64
}

// Graph is the control side mixer: channels, their plugin chains and the
// connections between them. It is not safe for concurrent use. The audio
// thread runs a Plan compiled from it.
type Graph struct {
	host     *plugin.Host
	logger   *slog.Logger
	channels []*channel

	order      []Index
	orderValid bool

	version uint64
	retired []retiredHandle
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the graph logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) { g.logger = logger }
}

// New returns a graph holding only the master channel. Plugins are loaded
// through host.
func New(host *plugin.Host, opts ...Option) *Graph {
	g := &Graph{host: host, logger: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	g.channels = append(g.channels, &channel{name: "master", volume: 1})
	return g
}

// Host returns the plugin host.
func (g *Graph) Host() *plugin.Host { return g.host }

// Version increases on every edit.
func (g *Graph) Version() uint64 { return g.version }

func (g *Graph) bump() { g.version++ }

// ChannelCount returns the number of channels, master included.
func (g *Graph) ChannelCount() int { return len(g.channels) }

// AddChannel appends a channel. It starts unconnected.
func (g *Graph) AddChannel(cfg Config) (Index, error) {
	if err := checkVolume(cfg.Volume); err != nil {
		return 0, err
	}
	if err := checkPan(cfg.Pan); err != nil {
		return 0, err
	}

	g.channels = append(g.channels, &channel{name: cfg.Name, volume: cfg.Volume, pan: cfg.Pan})
	g.orderValid = false
	g.bump()

	return Index(len(g.channels) - 1), nil
}

func (g *Graph) channel(i Index) (*channel, error) {
	if i < 0 || int(i) >= len(g.channels) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChannel, i)
	}
	return g.channels[i], nil
}

// Name returns the channel name.
func (g *Graph) Name(i Index) (string, error) {
	c, err := g.channel(i)
	if err != nil {
		return "", err
	}
	return c.name, nil
}

// Connect routes the output of from into to. A connection closing a loop,
// including a channel feeding itself, fails with *CycleError. Connecting
// twice is a no-op.
func (g *Graph) Connect(from, to Index) error {
	src, err := g.channel(from)
	if err != nil {
		return err
	}
	if _, err := g.channel(to); err != nil {
		return err
	}

	if slices.Contains(src.conns, to) {
		return nil
	}
	if from == to || g.reaches(to, from) {
		return &CycleError{From: from, To: to}
	}

	src.conns = append(src.conns, to)
	g.orderValid = false
	g.bump()

	return nil
}

// reaches reports whether target is reachable from start.
func (g *Graph) reaches(start, target Index) bool {
	seen := make([]bool, len(g.channels))
	stack := []Index{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.channels[n].conns...)
	}
	return false
}

// Disconnect removes the route from from to to.
func (g *Graph) Disconnect(from, to Index) error {
	src, err := g.channel(from)
	if err != nil {
		return err
	}
	i := slices.Index(src.conns, to)
	if i < 0 {
		return fmt.Errorf("%w: %d to %d", ErrNotConnected, from, to)
	}

	src.conns = slices.Delete(src.conns, i, i+1)
	g.orderValid = false
	g.bump()

	return nil
}

// Connections returns the outgoing routes of a channel in the order they
// were made.
func (g *Graph) Connections(i Index) ([]Index, error) {
	c, err := g.channel(i)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.conns), nil
}

// Order returns the channels so that every channel comes after all of its
// inputs. Among channels ready at the same time the lowest index goes
// first, so the order only depends on the topology. It is cached until
// the next topology edit.
func (g *Graph) Order() []Index {
	if g.orderValid {
		return slices.Clone(g.order)
	}

	indeg := make([]int, len(g.channels))
	for _, c := range g.channels {
		for _, to := range c.conns {
			indeg[to]++
		}
	}

	var ready []Index
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, Index(i))
		}
	}

	order := make([]Index, 0, len(g.channels))
	for len(ready) > 0 {
		// ready is kept sorted, take the lowest
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, to := range g.channels[n].conns {
			indeg[to]--
			if indeg[to] == 0 {
				pos, _ := slices.BinarySearch(ready, to)
				ready = slices.Insert(ready, pos, to)
			}
		}
	}

	g.order = order
	g.orderValid = true

	return slices.Clone(order)
}

// SetVolume sets a channel gain. Gain must be finite and non-negative.
func (g *Graph) SetVolume(i Index, gain float32) error {
	c, err := g.channel(i)
	if err != nil {
		return err
	}
	if err := checkVolume(gain); err != nil {
		return err
	}
	c.volume = gain
	g.bump()
	return nil
}

// Volume returns a channel gain.
func (g *Graph) Volume(i Index) (float32, error) {
	c, err := g.channel(i)
	if err != nil {
		return 0, err
	}
	return c.volume, nil
}

// SetPan sets a channel pan in [-1, 1].
func (g *Graph) SetPan(i Index, pan float32) error {
	c, err := g.channel(i)
	if err != nil {
		return err
	}
	if err := checkPan(pan); err != nil {
		return err
	}
	c.pan = pan
	g.bump()
	return nil
}

// Pan returns a channel pan.
func (g *Graph) Pan(i Index) (float32, error) {
	c, err := g.channel(i)
	if err != nil {
		return 0, err
	}
	return c.pan, nil
}

func checkVolume(v float32) error {
	if v < 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, v)
	}
	return nil
}

func checkPan(p float32) error {
	if !(p >= -1 && p <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidPan, p)
	}
	return nil
}

// SetPlugin loads the plugin id into a chain slot, replacing the plugin
// there or appending when slot equals the chain length. A non-nil state is
// restored into the new instance.
//
// When the plugin cannot be loaded the slot is still taken, empty but
// holding id and state, and the *plugin.LoadError is returned. When only
// the state is rejected the plugin stays in place at its defaults and the
// *plugin.StateError is returned.
func (g *Graph) SetPlugin(i Index, slot int, id, state []byte) error {
	c, err := g.channel(i)
	if err != nil {
		return err
	}
	if slot < 0 || slot > len(c.slots) {
		return fmt.Errorf("%w: %d on channel %d", ErrUnknownSlot, slot, i)
	}

	s := &Slot{
		ID:      slices.Clone(id),
		State:   slices.Clone(state),
		Enabled: true,
		Mix:     1,
	}

	h, loadErr := g.host.Load(id)
	var stateErr error
	if loadErr == nil {
		s.Handle = h
		if state != nil {
			stateErr = h.RestoreState(state)
		}
	} else {
		g.logger.Warn("plugin slot left empty", "channel", i, "slot", slot, "err", loadErr)
	}

	if slot == len(c.slots) {
		c.slots = append(c.slots, s)
	} else {
		g.retire(c.slots[slot])
		c.slots[slot] = s
	}
	g.bump()

	return errors.Join(loadErr, stateErr)
}

// RemovePlugin drops a slot. Later slots move down by one.
func (g *Graph) RemovePlugin(i Index, slot int) error {
	c, err := g.channel(i)
	if err != nil {
		return err
	}
	if slot < 0 || slot >= len(c.slots) {
		return fmt.Errorf("%w: %d on channel %d", ErrUnknownSlot, slot, i)
	}

	g.retire(c.slots[slot])
	c.slots = slices.Delete(c.slots, slot, slot+1)
	g.bump()

	return nil
}

// Slots returns the plugin chain of a channel. The slots are shared;
// callers must not modify them.
func (g *Graph) Slots(i Index) ([]*Slot, error) {
	c, err := g.channel(i)
	if err != nil {
		return nil, err
	}
	return slices.Clone(c.slots), nil
}

func (g *Graph) slot(i Index, slot int) (*Slot, error) {
	c, err := g.channel(i)
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= len(c.slots) {
		return nil, fmt.Errorf("%w: %d on channel %d", ErrUnknownSlot, slot, i)
	}
	return c.slots[slot], nil
}

// SetPluginEnabled bypasses or re-enables a slot.
func (g *Graph) SetPluginEnabled(i Index, slot int, enabled bool) error {
	s, err := g.slot(i, slot)
	if err != nil {
		return err
	}
	s.Enabled = enabled
	g.bump()
	return nil
}

// SetPluginMix sets the dry/wet balance of a slot, 0 dry and 1 wet.
func (g *Graph) SetPluginMix(i Index, slot int, mix float32) error {
	s, err := g.slot(i, slot)
	if err != nil {
		return err
	}
	if !(mix >= 0 && mix <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidMix, mix)
	}
	s.Mix = mix
	g.bump()
	return nil
}

// CheckParam validates a parameter change for a slot and returns the value
// clamped to its range. The value reaches the plugin through
// Plan.SetParam on the audio thread.
func (g *Graph) CheckParam(i Index, slot int, id uint32, v float64) (float64, error) {
	s, err := g.slot(i, slot)
	if err != nil {
		return 0, err
	}
	if !s.Loaded() {
		return 0, fmt.Errorf("%w: %d on channel %d", ErrEmptySlot, slot, i)
	}
	p, ok := s.Handle.Lookup(id)
	if !ok {
		return 0, fmt.Errorf("%w: %d", plugin.ErrUnknownParam, id)
	}
	return p.Clamp(v), nil
}

// PluginState returns what a slot persists: the live plugin state when
// loaded, the retained blob otherwise.
func (g *Graph) PluginState(i Index, slot int) ([]byte, error) {
	s, err := g.slot(i, slot)
	if err != nil {
		return nil, err
	}
	if !s.Loaded() {
		return s.State, nil
	}
	return s.Handle.SaveState()
}

func (g *Graph) retire(s *Slot) {
	if s.Loaded() {
		g.retired = append(g.retired, retiredHandle{handle: s.Handle, version: g.version})
	}
}

// Collect closes plugins removed before the plan of version applied went
// live. The audio thread no longer references them.
func (g *Graph) Collect(applied uint64) {
	kept := g.retired[:0]
	for _, r := range g.retired {
		if r.version >= applied {
			kept = append(kept, r)
			continue
		}
		if err := r.handle.Close(); err != nil {
			g.logger.Warn("closing plugin", "instance", r.handle.Instance(), "err", err)
		}
	}
	clear(g.retired[len(kept):])
	g.retired = kept
}

// Close releases every plugin, live and retired. The graph must no longer
// be running.
func (g *Graph) Close() error {
	var errs []error
	for _, c := range g.channels {
		for _, s := range c.slots {
			if s.Loaded() {
				errs = append(errs, s.Handle.Close())
			}
		}
	}
	for _, r := range g.retired {
		errs = append(errs, r.handle.Close())
	}
	g.retired = nil
	return errors.Join(errs...)
}
