// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"time"

	"github.com/ik5/dawcore/graph"
)

// Run drains engine reports until ctx is done. It keeps the playhead,
// state and meter mirrors current, records metrics, hands plugin faults to
// the ErrorHandler, closes plugins the engine no longer uses and grows
// buffers when the device asks for longer blocks.
func (c *Controller) Run(ctx context.Context) error {
	t := time.NewTicker(c.poll)
	defer t.Stop()

	for {
		c.Poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Poll handles every pending report and returns how many there were. It
// is what Run calls on each tick; tests and offline rendering call it
// directly.
func (c *Controller) Poll(ctx context.Context) int {
	n := 0
	for {
		r, ok := c.engine.reports.Pop()
		if !ok {
			return n
		}
		n++
		c.handle(ctx, &r)
	}
}

func (c *Controller) handle(ctx context.Context, r *Report) {
	if r.Dropped > c.dropped {
		lost := r.Dropped - c.dropped
		c.dropped = r.Dropped
		c.metrics.ReportsDropped.Add(ctx, int64(lost))
		c.logger.Warn("engine reports dropped", "count", lost)
	}

	switch r.Kind {
	case ReportPosition:
		c.position.Store(r.Position)
		c.metrics.RecordBlock(ctx, r.Took, r.Frames, c.host.SampleRate())
		c.catchUp(r)
	case ReportState:
		c.position.Store(r.Position)
		c.state.Store(uint32(r.State))
		c.logger.Debug("transport", "state", r.State, "position", r.Position)
		c.catchUp(r)
	case ReportApplied:
		c.mu.Lock()
		c.collect(r.Seq, r.Version)
		c.mu.Unlock()
	case ReportFault:
		c.metrics.RecordFault(ctx, r.Fault.Kind == graph.FaultOverrun, r.Fault.Instance)
		c.handler.HandleError(&FaultError{Fault: r.Fault})
	case ReportMeter:
		c.peakMu.Lock()
		for len(c.peaks) <= r.Channel {
			c.peaks = append(c.peaks, [2]float32{})
		}
		c.peaks[r.Channel] = [2]float32{r.PeakL, r.PeakR}
		c.peakMu.Unlock()
	case ReportBlockTooLarge:
		c.grow(ctx, r.Frames)
	}
}

// catchUp collects for a program whose applied report was dropped.
func (c *Controller) catchUp(r *Report) {
	if r.Seq <= c.applied {
		return
	}
	c.logger.Debug("collecting after a dropped applied report", "seq", r.Seq)
	c.mu.Lock()
	c.collect(r.Seq, r.Version)
	c.mu.Unlock()
}

// collect closes plugins the engine can no longer reach once the program
// or clear numbered seq is live.
func (c *Controller) collect(seq, version uint64) {
	c.applied = max(c.applied, seq)

	kept := c.stale[:0]
	for _, s := range c.stale {
		if s.seq > seq {
			kept = append(kept, s)
			continue
		}
		if err := s.graph.Close(); err != nil {
			c.logger.Warn("closing replaced graph", "err", err)
		}
	}
	clear(c.stale[len(kept):])
	c.stale = kept

	if seq >= c.graphSeq && version > 0 {
		c.graph.Collect(version)
	}
}

// grow recompiles for blocks of frames, bounded by the host.
func (c *Controller) grow(ctx context.Context, frames int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := c.host.MaxFrames()
	if frames > limit {
		c.logger.Warn("device block exceeds plugin maximum, splitting", "frames", frames, "max", limit)
	}
	want := min(frames, limit)
	if want <= c.blockFrames {
		return
	}
	c.logger.Info("growing block buffers", "from", c.blockFrames, "to", want)
	c.blockFrames = want
	if err := c.publish(ctx); err != nil {
		c.handler.HandleError(err)
	}
}
