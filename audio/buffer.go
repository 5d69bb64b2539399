// SPDX-License-Identifier: EPL-2.0

package audio

import "io"

// Buffer is an in-memory Source over interleaved samples.
type Buffer struct {
	data       []float32
	sampleRate int
	channels   int
	pos        int
}

// NewBuffer wraps data, which must hold whole frames of channels samples.
func NewBuffer(data []float32, sampleRate, channels int) *Buffer {
	return &Buffer{data: data, sampleRate: sampleRate, channels: channels}
}

func (b *Buffer) SampleRate() int { return b.sampleRate }
func (b *Buffer) Channels() int   { return b.channels }
func (b *Buffer) BufSize() int    { return len(b.data) }
func (b *Buffer) Close() error    { return nil }

// Frames returns the total length in frames.
func (b *Buffer) Frames() int { return len(b.data) / b.channels }

// Rewind restarts reading from the first frame.
func (b *Buffer) Rewind() { b.pos = 0 }

func (b *Buffer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%b.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}

	n := copy(dst, b.data[b.pos:])
	b.pos += n

	if b.pos >= len(b.data) {
		return n, io.EOF
	}

	return n, nil
}
