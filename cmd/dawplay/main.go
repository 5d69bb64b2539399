// SPDX-License-Identifier: EPL-2.0

// Command dawplay plays a dawcore project on the default audio output, or
// bounces it to a WAV file.
//
// Usage:
//
//	dawplay [-config dawcore.yaml] [-from beats] [-beats n] [-null] song.daw
//	dawplay [-config dawcore.yaml] -bounce mix.wav [-bit-depth 24] song.daw
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/ik5/dawcore"
	"github.com/ik5/dawcore/config"
	"github.com/ik5/dawcore/device"
	"github.com/ik5/dawcore/engine"
	"github.com/ik5/dawcore/timeline"
)

type options struct {
	configPath string
	bounce     string
	bitDepth   int
	from       uint
	beats      uint
	null       bool
	project    string
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to the YAML configuration file")
	flag.StringVar(&opts.bounce, "bounce", "", "render to this WAV file instead of playing")
	flag.IntVar(&opts.bitDepth, "bit-depth", 24, "bit depth of bounced files: 16, 24 or 32")
	flag.UintVar(&opts.from, "from", 0, "start position in beats")
	flag.UintVar(&opts.beats, "beats", 0, "length in beats, 0 plays to the end of the last clip")
	flag.BoolVar(&opts.null, "null", false, "render without an audio device")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dawplay [flags] project")
		flag.PrintDefaults()
		return 2
	}
	opts.project = flag.Arg(0)

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			fmt.Fprintf(os.Stderr, "dawplay: %v\n", err)
			return 1
		}
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp)
	defer func() { _ = mp.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := dawcore.FromConfig(ctx, cfg, dawcore.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create session", "err", err)
		return 1
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Warn("session close error", "err", err)
		}
	}()

	if err := s.Open(ctx, opts.project); err != nil {
		if !engine.IsWarning(err) {
			slog.Error("failed to open project", "err", err)
			return 1
		}
		slog.Warn("project opened with missing pieces", "err", err)
	}

	from, frames := span(s.Controller(), opts.from, opts.beats)
	slog.Info("dawplay starting",
		"project", opts.project,
		"sample_rate", cfg.SampleRate,
		"from", from,
		"frames", frames,
	)

	if opts.bounce != "" {
		err = bounce(ctx, s, opts.bounce, from, frames, opts.bitDepth)
	} else {
		err = play(ctx, s, cfg, opts.null, from, frames)
	}
	report(ctx, reader)

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("dawplay failed", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// span converts the beat range to frames under the project's meter.
func span(c *engine.Controller, from, beats uint) (start, frames int64) {
	m := c.Meter()
	start = m.Frames(timeline.Beats(uint32(from)), c.SampleRate())
	if beats > 0 {
		return start, m.Frames(timeline.Beats(uint32(beats)), c.SampleRate())
	}
	return start, max(c.End()-start, 0)
}

func bounce(ctx context.Context, s *dawcore.Session, path string, from, frames int64, bitDepth int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating bounce file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing bounce file: %w", cerr)
		}
	}()

	return s.Bounce(ctx, f, from, frames, bitDepth)
}

func play(ctx context.Context, s *dawcore.Session, cfg *config.Config, null bool, from, frames int64) error {
	out, err := openOutput(cfg, null)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			slog.Warn("device close error", "err", err)
		}
	}()

	c := s.Controller()
	if err := s.Attach(out); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = c.Run(runCtx) }()

	if err := c.Seek(ctx, from); err != nil {
		return err
	}
	if err := c.Play(ctx); err != nil {
		return err
	}

	end := from + frames
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for c.Position() < end {
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), s.Detach(context.Background()))
		case <-t.C:
		}
		if c.State() == engine.Stopped && c.Position() > from {
			// stopped from elsewhere, e.g. the device went away
			break
		}
	}

	return s.Detach(ctx)
}

func openOutput(cfg *config.Config, null bool) (device.Output, error) {
	dc := device.Config{
		SampleRate:      cfg.DeviceRate(),
		Channels:        cfg.Device.Channels,
		FramesPerBuffer: cfg.BlockSize,
	}
	if null {
		return device.NewNull(dc, cfg.SampleRate, cfg.BlockSize, nil), nil
	}

	pa, err := device.OpenPortAudio(dc, cfg.SampleRate, cfg.BlockSize)
	if err != nil {
		return nil, err
	}
	slog.Info("audio output", "device", pa.Name(), "sample_rate", pa.SampleRate(), "channels", pa.Channels())
	return pa, nil
}

// newLogger builds the process logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.Level()}))
}
