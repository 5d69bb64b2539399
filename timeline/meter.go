// SPDX-License-Identifier: EPL-2.0

package timeline

import "fmt"

// TicksPerBeat is the musical time resolution.
const TicksPerBeat = 256

// MusicalTime is a position or length in ticks.
type MusicalTime uint32

// Beats builds a time from whole beats.
func Beats(n uint32) MusicalTime { return MusicalTime(n * TicksPerBeat) }

// Beat returns the whole beat index.
func (t MusicalTime) Beat() uint32 { return uint32(t) / TicksPerBeat }

// Tick returns the tick inside the current beat.
func (t MusicalTime) Tick() uint32 { return uint32(t) % TicksPerBeat }

func (t MusicalTime) String() string {
	return fmt.Sprintf("%d:%03d", t.Beat(), t.Tick())
}

const (
	DefaultBPM       = 140
	DefaultNumerator = 4

	maxBPM       = 999
	maxNumerator = 255
)

// Meter is the tempo and time signature. The control side owns it; the
// audio side reads a copy per block.
type Meter struct {
	BPM       uint32
	Numerator uint32
}

// DefaultMeter returns 140 BPM in 4.
func DefaultMeter() Meter {
	return Meter{BPM: DefaultBPM, Numerator: DefaultNumerator}
}

// Validate reports an out of range tempo or numerator.
func (m Meter) Validate() error {
	if m.BPM < 1 || m.BPM > maxBPM {
		return fmt.Errorf("%w: bpm %d outside [1, %d]", ErrInvalidMeter, m.BPM, maxBPM)
	}
	if m.Numerator < 1 || m.Numerator > maxNumerator {
		return fmt.Errorf("%w: numerator %d outside [1, %d]", ErrInvalidMeter, m.Numerator, maxNumerator)
	}

	return nil
}

// Frames converts a musical time to a frame count at sampleRate, rounding
// down. The same input always maps to the same frame, which keeps block
// boundaries stable.
func (m Meter) Frames(t MusicalTime, sampleRate int) int64 {
	if m.BPM == 0 {
		return 0
	}

	return int64(uint64(t) * uint64(sampleRate) * 60 / (uint64(m.BPM) * TicksPerBeat))
}

// Time converts a frame position at sampleRate to musical time, rounding
// down.
func (m Meter) Time(frames int64, sampleRate int) MusicalTime {
	if frames <= 0 || sampleRate <= 0 {
		return 0
	}

	return MusicalTime(uint64(frames) * uint64(m.BPM) * TicksPerBeat / (uint64(sampleRate) * 60))
}

// BarLength returns the length of one bar.
func (m Meter) BarLength() MusicalTime {
	return MusicalTime(m.Numerator * TicksPerBeat)
}
