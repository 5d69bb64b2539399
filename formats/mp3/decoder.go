// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/dawcore/audio"
)

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
	Length() int64
}

// go-mp3 always produces 16-bit little-endian stereo
const (
	outChannels    = 2
	bytesPerSample = 2
)

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	pending    []byte // odd trailing bytes from the previous read
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return outChannels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample }

// Frames returns the decoded length in frames, or -1 when unknown.
func (s *source) Frames() int {
	n := s.dec.Length()
	if n < 0 {
		return -1
	}

	return int(n / (outChannels * bytesPerSample))
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) * bytesPerSample
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	carried := copy(buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.dec.Read(buf[carried:])
	n += carried

	samples := n / bytesPerSample
	if rest := n % bytesPerSample; rest != 0 {
		s.pending = append(s.pending, buf[n-rest:n]...)
	}

	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(buf[i*bytesPerSample:]))
		dst[i] = float32(v) / 32768.0
	}

	if err == io.EOF {
		return samples, io.EOF
	}
	if err != nil {
		return samples, fmt.Errorf("decoding mp3: %w", err)
	}

	return samples, nil
}

type Decoder struct{}

// Sniff accepts an ID3v2 tag or an MPEG audio frame sync.
func (Decoder) Sniff(head []byte) bool {
	if bytes.HasPrefix(head, []byte("ID3")) {
		return true
	}

	return len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0
}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("opening mp3 stream: %w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
		pending:    make([]byte, 0, bytesPerSample),
	}, nil
}
