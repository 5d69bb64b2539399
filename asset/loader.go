// SPDX-License-Identifier: EPL-2.0

package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/dawcore/audio"
	"github.com/ik5/dawcore/formats/aiff"
	"github.com/ik5/dawcore/formats/mp3"
	"github.com/ik5/dawcore/formats/vorbis"
	"github.com/ik5/dawcore/formats/wav"
)

// decodeBufferSize is the chunk size, in samples, used while collecting
// a decoded stream.
const decodeBufferSize = 8192

// DefaultRegistry returns a registry with every bundled decoder. The
// registration order is the order Detect tries them in.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("wave", wav.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	return r
}

// Loader decodes audio files into assets at the engine rate.
type Loader struct {
	sampleRate  int
	registry    *audio.Registry
	logger      *slog.Logger
	concurrency int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithRegistry replaces the default decoder registry.
func WithRegistry(r *audio.Registry) LoaderOption {
	return func(l *Loader) { l.registry = r }
}

// WithLogger sets the logger used to report decode timings.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithConcurrency bounds how many files LoadAll decodes at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader returns a loader producing stereo assets at sampleRate.
func NewLoader(sampleRate int, opts ...LoaderOption) *Loader {
	l := &Loader{
		sampleRate:  sampleRate,
		registry:    DefaultRegistry(),
		logger:      slog.Default(),
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// SampleRate is the rate assets are converted to.
func (l *Loader) SampleRate() int { return l.sampleRate }

// Decode converts an encoded file into an asset. The decoder is picked by
// the extension of name, falling back to content sniffing.
func (l *Loader) Decode(name string, content []byte) (*Audio, error) {
	start := time.Now()

	src, err := l.open(name, content)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	defer src.Close()

	data, err := audio.ToStereo(src, l.sampleRate, decodeBufferSize)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}

	l.logger.Debug("asset decoded",
		"name", name,
		"source_rate", src.SampleRate(),
		"channels", src.Channels(),
		"frames", len(data)/2,
		"duration", time.Since(start),
	)

	return &Audio{
		Name:       name,
		Hash:       Hash(content),
		SampleRate: l.sampleRate,
		Data:       data,
	}, nil
}

func (l *Loader) open(name string, content []byte) (audio.Source, error) {
	if dec, ok := l.registry.ForPath(name); ok {
		src, err := dec.Decode(bytes.NewReader(content))
		if err == nil {
			return src, nil
		}
		// the extension lied, try the content
		l.logger.Debug("decoder picked by extension failed", "name", name, "err", err)
	}

	src, err := l.registry.Detect(content)
	if err != nil {
		return nil, fmt.Errorf("detecting format: %w", err)
	}
	return src, nil
}

// LoadFile reads and decodes the file at path. The asset is named after
// the base name of path.
func (l *Loader) LoadFile(path string) (*Audio, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Name: filepath.Base(path), Err: err}
	}
	return l.Decode(filepath.Base(path), content)
}

// LoadAll decodes paths concurrently. A file that fails to load yields a
// nil entry and contributes to the joined error; the others still load.
// Only cancellation of ctx aborts the batch.
func (l *Loader) LoadAll(ctx context.Context, paths []string) ([]*Audio, error) {
	out := make([]*Audio, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i], errs[i] = l.LoadFile(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, errors.Join(errs...)
}
