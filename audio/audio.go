// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// Source is a pull based stream of interleaved float32 samples.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Sniffer is implemented by decoders able to recognize their container
// from the first bytes of a file.
type Sniffer interface {
	Sniff(head []byte) bool
}

// sniffLen is how many leading bytes Detect inspects.
const sniffLen = 64

// Registry maps format keys (e.g., "wav", "mp3", "ogg") to decoders.
type Registry struct {
	codecs map[string]Decoder
	order  []string

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if _, ok := r.codecs[format]; !ok {
		r.order = append(r.order, format)
	}
	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// ForPath picks a decoder by file extension, e.g. "kick.WAV" resolves
// "wav".
func (r *Registry) ForPath(path string) (Decoder, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil, false
	}

	return r.Get(ext)
}

// Detect decodes data with the first registered decoder whose Sniff
// accepts its leading bytes.
func (r *Registry) Detect(data []byte) (Source, error) {
	head := data[:min(len(data), sniffLen)]

	r.mtx.Lock()
	var picked Decoder
	for _, key := range r.order {
		if s, ok := r.codecs[key].(Sniffer); ok && s.Sniff(head) {
			picked = r.codecs[key]
			break
		}
	}
	r.mtx.Unlock()

	if picked == nil {
		return nil, ErrUnknownFormat
	}

	return picked.Decode(bytes.NewReader(data))
}
