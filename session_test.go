// SPDX-License-Identifier: EPL-2.0

package dawcore_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/dawcore"
	"github.com/ik5/dawcore/audio"
	"github.com/ik5/dawcore/device"
	"github.com/ik5/dawcore/engine"
	"github.com/ik5/dawcore/formats/wav"
	"github.com/ik5/dawcore/graph"
	"github.com/ik5/dawcore/internal/audiotest"
	"github.com/ik5/dawcore/plugin/builtin"
	"github.com/ik5/dawcore/project"
	"github.com/ik5/dawcore/timeline"
)

// At 60 BPM and 256 frames per second one tick is one frame.
const (
	rate  = 256
	block = 64
)

var unitMeter = timeline.Meter{BPM: 60, Numerator: 4}

func newSession(t *testing.T, opts ...dawcore.Option) *dawcore.Session {
	t.Helper()

	cfg := engine.DefaultConfig()
	cfg.BlockSize = block
	cfg.PluginBudget = 0

	base := []dawcore.Option{
		dawcore.WithEngineConfig(cfg),
		dawcore.WithLogger(slog.New(slog.DiscardHandler)),
	}
	s, err := dawcore.New(rate, 256, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Controller().SetMeter(t.Context(), unitMeter); err != nil {
		t.Fatal(err)
	}
	return s
}

// writeTone stores frames of mono 16-bit audio at value v.
func writeTone(t *testing.T, path string, frames int, v int16) {
	t.Helper()

	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = v
	}
	var b bytes.Buffer
	if err := wav.WritePCM16(&b, rate, 1, samples); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// bounce renders a range and decodes it back.
func bounce(t *testing.T, s *dawcore.Session, from, frames int64) []float32 {
	t.Helper()

	var out audiotest.SeekBuffer
	if err := s.Bounce(t.Context(), &out, from, frames, 16); err != nil {
		t.Fatalf("Bounce() error = %v", err)
	}

	src, err := wav.Decoder{}.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("decoding bounce: %v", err)
	}
	if src.Channels() != 2 || src.SampleRate() != rate {
		t.Fatalf("bounce format = %d ch at %d Hz, want 2 ch at %d Hz", src.Channels(), src.SampleRate(), rate)
	}
	samples, err := audio.ReadAll(src, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(samples)) != frames*2 {
		t.Fatalf("bounce has %d samples, want %d", len(samples), frames*2)
	}
	return samples
}

// toneProject builds a session playing tone.wav over the first second.
func toneProject(t *testing.T, dir string) *dawcore.Session {
	t.Helper()
	ctx := t.Context()

	writeTone(t, filepath.Join(dir, "tone.wav"), 512, 16384)

	s := newSession(t, dawcore.WithAssetPaths(dir))
	c := s.Controller()

	idx, err := s.ImportAudio(ctx, filepath.Join(dir, "tone.wav"))
	if err != nil {
		t.Fatalf("ImportAudio() error = %v", err)
	}
	track, err := c.AddTrack(ctx, graph.Master)
	if err != nil {
		t.Fatal(err)
	}
	pos, err := timeline.NewClipPosition(0, timeline.Beats(1), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.InsertClip(ctx, track, timeline.NewAudioClip(idx, pos)); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSession_SaveOpenBounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := toneProject(t, dir)
	if end := src.Controller().End(); end != 256 {
		t.Fatalf("End() = %d, want 256", end)
	}

	path := filepath.Join(dir, "song.daw")
	if err := src.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	dst := newSession(t, dawcore.WithAssetPaths(dir))
	if err := dst.Open(t.Context(), path); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	got := bounce(t, dst, 0, 320)
	for i, v := range got {
		want := 0.5
		if i >= 512 {
			want = 0
		}
		if math.Abs(float64(v)-want) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}

	c := dst.Controller()
	if c.State() != engine.Stopped {
		t.Errorf("State() after bounce = %v, want Stopped", c.State())
	}
	if c.Position() != 320 {
		t.Errorf("Position() after bounce = %d, want 320", c.Position())
	}

	// a second bounce starts where asked, not where the first one ended
	tail := bounce(t, dst, 192, 128)
	if math.Abs(float64(tail[0])-0.5) > 1e-3 || tail[255] != 0 {
		t.Errorf("bounce from 192 = [%v ... %v], want [0.5 ... 0]", tail[0], tail[255])
	}
}

func TestSession_OpenMissingAssetWarns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := toneProject(t, dir)
	path := filepath.Join(dir, "song.daw")
	if err := src.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "tone.wav")); err != nil {
		t.Fatal(err)
	}

	dst := newSession(t, dawcore.WithAssetPaths(dir))
	err := dst.Open(t.Context(), path)
	if !engine.IsWarning(err) {
		t.Fatalf("Open() error = %v, want a warning", err)
	}

	for i, v := range bounce(t, dst, 0, 128) {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence without the asset", i, v)
		}
	}
}

func TestSession_OpenCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.daw")
	if err := os.WriteFile(path, []byte{0x0a, 0x7f}, 0o644); err != nil {
		t.Fatal(err)
	}

	s := newSession(t)
	err := s.Open(t.Context(), path)
	if !errors.Is(err, project.ErrCorrupt) {
		t.Fatalf("Open() error = %v, want ErrCorrupt", err)
	}
	if engine.IsWarning(err) {
		t.Error("a corrupt project is reported as a warning")
	}

	if err := s.Open(t.Context(), filepath.Join(t.TempDir(), "missing.daw")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() of a missing file error = %v, want ErrNotExist", err)
	}
}

func TestSession_SaveKeepsOldFileOnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := newSession(t).Save(filepath.Join(dir, "nodir", "song.daw")); err == nil {
		t.Fatal("Save() into a missing directory succeeded")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Save() left %d files behind", len(entries))
	}
}

func TestSession_ImportMidi(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	// one track at 96 ticks per quarter: key 60 held for one beat
	events := []byte{
		0x00, 0x90, 60, 100,
		0x60, 0x80, 60, 0,
		0x00, 0xff, 0x2f, 0x00,
	}
	var smf bytes.Buffer
	smf.WriteString("MThd")
	smf.Write([]byte{0, 0, 0, 6, 0, 0, 0, 1, 0, 96})
	smf.WriteString("MTrk")
	smf.Write([]byte{0, 0, 0, byte(len(events))})
	smf.Write(events)

	path := filepath.Join(t.TempDir(), "riff.mid")
	if err := os.WriteFile(path, smf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newSession(t)
	c := s.Controller()
	idx, err := s.ImportMidi(ctx, path)
	if err != nil {
		t.Fatalf("ImportMidi() error = %v", err)
	}
	if err := c.SetPlugin(ctx, graph.Master, 0, []byte(builtin.SineID), nil); err != nil {
		t.Fatal(err)
	}
	track, err := c.AddTrack(ctx, graph.Master)
	if err != nil {
		t.Fatal(err)
	}
	pos, err := timeline.NewClipPosition(0, timeline.Beats(2), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.InsertClip(ctx, track, timeline.NewMidiClip(idx, pos)); err != nil {
		t.Fatal(err)
	}

	var peak float32
	for _, v := range bounce(t, s, 0, 256) {
		peak = max(peak, float32(math.Abs(float64(v))))
	}
	if peak < 0.1 {
		t.Errorf("bounced note peak = %v, want an audible sine", peak)
	}

	if _, err := s.ImportMidi(ctx, filepath.Join(t.TempDir(), "none.mid")); err == nil {
		t.Error("ImportMidi() of a missing file succeeded")
	}
}

func TestSession_BounceRejects(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	var out audiotest.SeekBuffer

	if err := s.Bounce(t.Context(), &out, 0, 64, 8); !errors.Is(err, wav.ErrUnsupportedBitDepth) {
		t.Errorf("8-bit bounce error = %v, want ErrUnsupportedBitDepth", err)
	}
	if err := s.Bounce(t.Context(), &out, -1, 64, 16); !errors.Is(err, dawcore.ErrInvalidRange) {
		t.Errorf("negative start error = %v, want ErrInvalidRange", err)
	}

	null := device.NewNull(device.Config{SampleRate: rate, Channels: 2, FramesPerBuffer: block}, rate, block, nil)
	if err := s.Attach(null); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if err := s.Attach(null); !errors.Is(err, dawcore.ErrAttached) {
		t.Errorf("second Attach() error = %v, want ErrAttached", err)
	}
	if err := s.Bounce(t.Context(), &out, 0, 64, 16); !errors.Is(err, dawcore.ErrAttached) {
		t.Errorf("Bounce() while attached error = %v, want ErrAttached", err)
	}

	if err := s.Detach(t.Context()); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if err := s.Bounce(t.Context(), &out, 0, 64, 16); err != nil {
		t.Errorf("Bounce() after Detach error = %v", err)
	}
}

func TestSession_BounceCanceled(t *testing.T) {
	t.Parallel()

	s := toneProject(t, t.TempDir())
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var out audiotest.SeekBuffer
	if err := s.Bounce(ctx, &out, 0, 256, 16); !errors.Is(err, context.Canceled) {
		t.Fatalf("Bounce() error = %v, want context.Canceled", err)
	}
	s.Controller().Poll(t.Context())
	if got := s.Controller().State(); got != engine.Stopped {
		t.Errorf("State() after canceled bounce = %v, want Stopped", got)
	}
}
