// SPDX-License-Identifier: EPL-2.0

package dawcore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ik5/dawcore/formats/wav"
)

// Bounce renders frames frames starting at from into a stereo WAV of the
// given bit depth (16, 24 or 32). It plays the project through the engine
// exactly as a device would, so plugin state and note chasing match live
// playback. The session must not be attached; the transport is stopped
// when Bounce returns and the position is left at the end of the range.
func (s *Session) Bounce(ctx context.Context, w io.WriteSeeker, from, frames int64, bitDepth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output != nil {
		return ErrAttached
	}
	if from < 0 || frames < 0 {
		return fmt.Errorf("%w: %d frames from %d", ErrInvalidRange, frames, from)
	}

	enc, err := wav.NewWriter(w, s.ctrl.SampleRate(), 2, bitDepth)
	if err != nil {
		return fmt.Errorf("bounce: %w", err)
	}

	start := time.Now()
	if err := s.render(ctx, enc, from, frames); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("bounce: %w", err)
	}

	s.logger.Info("bounce finished",
		"from", from,
		"frames", frames,
		"bit_depth", bitDepth,
		"duration", time.Since(start),
	)
	return nil
}

func (s *Session) render(ctx context.Context, enc *wav.Writer, from, frames int64) error {
	c := s.ctrl
	e := c.Engine()
	buf := make([]float32, s.block*2)

	// stop also on cancellation; the engine applies it on the next call
	defer func() {
		stopCtx := context.WithoutCancel(ctx)
		if err := c.Stop(stopCtx); err == nil {
			e.Process(buf[:0])
		}
		c.Poll(stopCtx)
	}()

	if err := c.Seek(ctx, from); err != nil {
		return err
	}
	if err := c.Play(ctx); err != nil {
		return err
	}

	for done := int64(0); done < frames; {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := int(min(frames-done, int64(s.block)))
		out := buf[:n*2]
		e.Process(out)
		c.Poll(ctx)

		if err := enc.Write(out); err != nil {
			return fmt.Errorf("bounce: %w", err)
		}
		done += int64(n)
	}

	return nil
}
