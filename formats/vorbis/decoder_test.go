// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ik5/dawcore/audio"
)

type mockOggReader struct {
	channels int
	data     []float32
	offset   int
	err      error
}

func (m *mockOggReader) SampleRate() int { return 48000 }
func (m *mockOggReader) Channels() int   { return m.channels }
func (m *mockOggReader) Length() int64   { return int64(len(m.data) / m.channels) }

func (m *mockOggReader) Read(p []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.data) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.offset:])
	m.offset += n

	return n, nil
}

func TestSource_ReadsInterleaved(t *testing.T) {
	t.Parallel()

	m := &mockOggReader{channels: 2, data: []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}}
	s := &source{dec: m, sampleRate: 48000, channels: 2}

	if s.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", s.Frames())
	}

	data, err := audio.ReadAll(s, 4)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(data) != 6 || data[5] != 0.6 {
		t.Errorf("data = %v", data)
	}
}

func TestSource_Errors(t *testing.T) {
	t.Parallel()

	s := &source{dec: &mockOggReader{channels: 2}, channels: 2}
	if _, err := s.ReadSamples(make([]float32, 3)); !errors.Is(err, audio.ErrInvalidDstSize) {
		t.Errorf("odd dst error = %v", err)
	}

	boom := errors.New("corrupt page")
	s = &source{dec: &mockOggReader{channels: 1, err: boom}, channels: 1}
	if _, err := s.ReadSamples(make([]float32, 4)); !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped corrupt page", err)
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("not an ogg stream"))); err == nil {
		t.Error("Decode() error = nil for invalid data")
	}
}

func TestDecoder_Sniff(t *testing.T) {
	t.Parallel()

	if !(Decoder{}).Sniff([]byte("OggS\x00\x02")) {
		t.Error("Sniff() = false for an Ogg page")
	}
	if (Decoder{}).Sniff([]byte("fLaC")) {
		t.Error("Sniff() = true for FLAC")
	}
}
