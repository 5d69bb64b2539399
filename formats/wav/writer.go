// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/dawcore/utils"
)

// Writer encodes interleaved float32 frames into an integer PCM WAV file
// through go-audio/wav. The target must be seekable so the header sizes
// can be patched on Close.
type Writer struct {
	enc      *gowav.Encoder
	buf      *goaudio.IntBuffer
	bitDepth int
	channels int
	frames   int
	closed   bool
}

// NewWriter starts a WAV stream at sampleRate with the given channel count
// and bit depth (16, 24 or 32).
func NewWriter(w io.WriteSeeker, sampleRate, channels, bitDepth int) (*Writer, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	if channels < 1 {
		return nil, ErrUnsupportedWavLayout
	}

	format := &goaudio.Format{NumChannels: channels, SampleRate: sampleRate}

	return &Writer{
		enc:      gowav.NewEncoder(w, sampleRate, bitDepth, channels, formatPCM),
		buf:      &goaudio.IntBuffer{Format: format, SourceBitDepth: bitDepth},
		bitDepth: bitDepth,
		channels: channels,
	}, nil
}

// Write appends interleaved samples. len(samples) must hold whole frames.
func (w *Writer) Write(samples []float32) error {
	if w.closed {
		return ErrWriterClosed
	}
	if len(samples)%w.channels != 0 {
		return ErrUnsupportedWavLayout
	}

	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, x := range samples {
		w.buf.Data[i] = utils.Float32ToPCM(x, w.bitDepth)
	}

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("encoding wav frames: %w", err)
	}
	w.frames += len(samples) / w.channels

	return nil
}

// Frames returns how many frames were written so far.
func (w *Writer) Frames() int { return w.frames }

// Close finalizes the headers. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}

	return nil
}

// WritePCM16 writes a canonical 44-byte header followed by interleaved
// 16-bit samples. Unlike Writer it only needs an io.Writer, which suits
// pipes and fixtures.
func WritePCM16(w io.Writer, sampleRate, channels int, samples []int16) error {
	if channels < 1 {
		return ErrUnsupportedWavLayout
	}

	const bitsPerSample = 16
	blockAlign := uint16(channels * bitsPerSample / 8)
	dataSize := uint32(len(samples) * 2)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate)*uint32(blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	const chunk = 8192
	buf := make([]byte, min(len(samples), chunk)*2)
	for i := 0; i < len(samples); i += chunk {
		part := samples[i:min(i+chunk, len(samples))]
		out := buf[:len(part)*2]
		for j, s := range part {
			binary.LittleEndian.PutUint16(out[j*2:], uint16(s))
		}
		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("writing wav data: %w", err)
		}
	}

	return nil
}
