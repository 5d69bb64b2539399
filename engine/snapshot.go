// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ik5/dawcore/asset"
	"github.com/ik5/dawcore/graph"
	"github.com/ik5/dawcore/project"
	"github.com/ik5/dawcore/timeline"
)

// Snapshot captures the project. Live plugins are asked for their state,
// which they answer while processing.
func (c *Controller) Snapshot() (*project.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &project.Project{Meter: c.timeline.Meter()}

	for i := range c.assets.AudioCount() {
		a, _ := c.assets.AudioAt(i)
		p.Audios = append(p.Audios, project.Audio{Name: a.Name, Hash: a.Hash})
	}
	for i := range c.assets.MidiCount() {
		m, _ := c.assets.MidiAt(i)
		p.Midis = append(p.Midis, slices.Clone(m.Notes))
	}

	for i := range c.timeline.TrackCount() {
		ch, _ := c.timeline.TrackChannel(i)
		clips, _ := c.timeline.Clips(i)
		p.Tracks = append(p.Tracks, project.Track{Clips: clips, Channel: ch})
	}

	var errs []error
	for i := range c.graph.ChannelCount() {
		idx := graph.Index(i)
		conns, _ := c.graph.Connections(idx)
		slots, _ := c.graph.Slots(idx)
		vol, _ := c.graph.Volume(idx)
		pan, _ := c.graph.Pan(idx)

		ch := project.Channel{Volume: vol, Pan: pan}
		for _, to := range conns {
			ch.Connections = append(ch.Connections, int(to))
		}
		for si, s := range slots {
			state, err := c.graph.PluginState(idx, si)
			if err != nil {
				errs = append(errs, err)
				state = s.State
			}
			ch.Plugins = append(ch.Plugins, project.Plugin{
				ID:      slices.Clone(s.ID),
				State:   state,
				Mix:     s.Mix,
				Enabled: s.Enabled,
			})
		}
		p.Channels = append(p.Channels, ch)
	}

	return p, errors.Join(errs...)
}

// Load replaces the session with p, resolving audio assets through r.
//
// A snapshot that does not validate or whose routing has a cycle is
// rejected and the session is left as it was. Plugins or assets that
// cannot be loaded, and plugin state that cannot be restored, leave the
// slot or asset absent and are reported to the ErrorHandler; the project
// still loads and the returned error satisfies IsWarning.
func (c *Controller) Load(ctx context.Context, p *project.Project, r asset.Resolver) error {
	if err := p.Validate(); err != nil {
		return err
	}

	g, warnings, err := c.buildGraph(ctx, p)
	if err != nil {
		return err
	}

	refs := make([]asset.Ref, len(p.Audios))
	for i, a := range p.Audios {
		refs[i] = asset.Ref{Name: a.Name, Hash: a.Hash}
	}
	audios, err := asset.ResolveAll(ctx, r, refs, c.cfg.LoadConcurrency)
	if ctxErr := ctx.Err(); ctxErr != nil {
		_ = g.Close()
		return ctxErr
	}
	if err != nil {
		warnings = append(warnings, err)
	}

	assets := asset.NewTable()
	for _, a := range audios {
		assets.AddAudio(a)
	}
	for i, notes := range p.Midis {
		m, err := asset.NewMidi(slices.Clone(notes))
		if err != nil {
			_ = g.Close()
			return fmt.Errorf("%w: midi %d: %w", project.ErrCorrupt, i, err)
		}
		assets.AddMidi(m)
	}

	tl := timeline.New(assets, c.host.SampleRate())
	if err := tl.SetMeter(p.Meter); err != nil {
		_ = g.Close()
		return fmt.Errorf("%w: %w", project.ErrCorrupt, err)
	}
	for ti, t := range p.Tracks {
		track := tl.AddTrack(t.Channel)
		for ci, clip := range t.Clips {
			if _, err := tl.InsertClip(track, clip); err != nil {
				_ = g.Close()
				return fmt.Errorf("%w: track %d clip %d: %w", project.ErrCorrupt, ti, ci, err)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.graph
	c.graph, c.assets, c.timeline = g, assets, tl
	c.graphSeq = c.seq + 1
	err = c.publish(ctx)
	c.stale = append(c.stale, staleGraph{graph: old, seq: c.seq})
	if err != nil {
		return err
	}

	for _, w := range warnings {
		c.handler.HandleError(w)
	}
	return errors.Join(warnings...)
}

// buildGraph creates the mixer of p. Load and state failures come back as
// warnings; anything else aborts.
func (c *Controller) buildGraph(ctx context.Context, p *project.Project) (*graph.Graph, []error, error) {
	g := graph.New(c.host, graph.WithLogger(c.logger))
	fail := func(err error) (*graph.Graph, []error, error) {
		_ = g.Close()
		return nil, nil, err
	}

	for i := 1; i < len(p.Channels); i++ {
		if _, err := g.AddChannel(graph.DefaultConfig(fmt.Sprintf("channel %d", i))); err != nil {
			return fail(err)
		}
	}

	var warnings []error
	for i, ch := range p.Channels {
		idx := graph.Index(i)
		if err := g.SetVolume(idx, ch.Volume); err != nil {
			return fail(fmt.Errorf("%w: channel %d: %w", project.ErrCorrupt, i, err))
		}
		if err := g.SetPan(idx, ch.Pan); err != nil {
			return fail(fmt.Errorf("%w: channel %d: %w", project.ErrCorrupt, i, err))
		}
		for _, to := range ch.Connections {
			if err := g.Connect(idx, graph.Index(to)); err != nil {
				return fail(err)
			}
		}
		for si, pl := range ch.Plugins {
			start := time.Now()
			err := g.SetPlugin(idx, si, pl.ID, pl.State)
			c.metrics.RecordPluginLoad(ctx, time.Since(start), string(pl.ID))
			if err != nil {
				if !IsWarning(err) {
					return fail(err)
				}
				warnings = append(warnings, err)
			}
			if err := g.SetPluginEnabled(idx, si, pl.Enabled); err != nil {
				return fail(err)
			}
			if err := g.SetPluginMix(idx, si, pl.Mix); err != nil {
				return fail(fmt.Errorf("%w: channel %d slot %d: %w", project.ErrCorrupt, i, si, err))
			}
		}
	}

	return g, warnings, nil
}
