// SPDX-License-Identifier: EPL-2.0

package timeline

import (
	"errors"
	"slices"
	"testing"
)

// unitMeter maps one tick to one frame at unitRate.
var unitMeter = Meter{BPM: 60, Numerator: 4}

const unitRate = 256

type fakeAssets struct {
	audio [][]float32
	midi  [][]Note
}

func (f *fakeAssets) Audio(i int) ([]float32, bool) {
	if i < 0 || i >= len(f.audio) {
		return nil, false
	}
	return f.audio[i], true
}

func (f *fakeAssets) Midi(i int) ([]Note, bool) {
	if i < 0 || i >= len(f.midi) {
		return nil, false
	}
	return f.midi[i], true
}

// constantAudio returns frames of stereo at value v.
func constantAudio(frames int, v float32) []float32 {
	out := make([]float32, frames*2)
	for i := range out {
		out[i] = v
	}
	return out
}

func newUnitTimeline(t *testing.T, assets *fakeAssets) *Timeline {
	t.Helper()

	tl := New(assets, unitRate)
	if err := tl.SetMeter(unitMeter); err != nil {
		t.Fatalf("SetMeter() error = %v", err)
	}
	return tl
}

func mustPos(t *testing.T, gs, ge, cs MusicalTime) ClipPosition {
	t.Helper()

	p, err := NewClipPosition(gs, ge, cs)
	if err != nil {
		t.Fatalf("NewClipPosition(%d, %d, %d) error = %v", gs, ge, cs, err)
	}
	return p
}

func TestMeter_Frames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		meter Meter
		rate  int
		t     MusicalTime
		want  int64
	}{
		{name: "unit", meter: unitMeter, rate: unitRate, t: 100, want: 100},
		{name: "one beat at 120", meter: Meter{BPM: 120, Numerator: 4}, rate: 48000, t: Beats(1), want: 24000},
		{name: "one bar at 140", meter: DefaultMeter(), rate: 48000, t: Beats(4), want: 82285},
		{name: "zero", meter: DefaultMeter(), rate: 48000, t: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.meter.Frames(tt.t, tt.rate); got != tt.want {
				t.Errorf("Frames(%d) = %d, want %d", tt.t, got, tt.want)
			}
		})
	}
}

func TestMeter_TimeInvertsFrames(t *testing.T) {
	t.Parallel()

	m := Meter{BPM: 120, Numerator: 4}
	for _, beats := range []uint32{0, 1, 7, 1000} {
		f := m.Frames(Beats(beats), 48000)
		if got := m.Time(f, 48000); got != Beats(beats) {
			t.Errorf("Time(Frames(%d beats)) = %v", beats, got)
		}
	}
}

func TestMeter_Validate(t *testing.T) {
	t.Parallel()

	for _, m := range []Meter{{BPM: 0, Numerator: 4}, {BPM: 1000, Numerator: 4}, {BPM: 120, Numerator: 0}} {
		if err := m.Validate(); !errors.Is(err, ErrInvalidMeter) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidMeter", m, err)
		}
	}
	if err := DefaultMeter().Validate(); err != nil {
		t.Errorf("default meter invalid: %v", err)
	}
	if DefaultMeter().BarLength() != Beats(4) {
		t.Errorf("BarLength() = %v", DefaultMeter().BarLength())
	}
}

func TestMusicalTime_String(t *testing.T) {
	t.Parallel()

	if got := (Beats(3) + 17).String(); got != "3:017" {
		t.Errorf("String() = %q, want 3:017", got)
	}
}

func TestNewClipPosition(t *testing.T) {
	t.Parallel()

	if _, err := NewClipPosition(10, 5, 0); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("start after end error = %v", err)
	}

	p, err := NewClipPosition(5, 5, 3)
	if err != nil {
		t.Fatalf("empty clip error = %v", err)
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestClipPosition_Edits(t *testing.T) {
	t.Parallel()

	p := mustPos(t, 100, 200, 10)

	moved, err := p.Move(500)
	if err != nil || moved != (ClipPosition{GlobalStart: 500, GlobalEnd: 600, ClipStart: 10}) {
		t.Errorf("Move() = %+v, %v", moved, err)
	}

	trimmed, err := p.TrimStart(150)
	if err != nil || trimmed != (ClipPosition{GlobalStart: 150, GlobalEnd: 200, ClipStart: 60}) {
		t.Errorf("TrimStart(150) = %+v, %v", trimmed, err)
	}

	extended, err := p.TrimStart(95)
	if err != nil || extended.ClipStart != 5 {
		t.Errorf("TrimStart(95) = %+v, %v", extended, err)
	}

	if _, err := p.TrimStart(80); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("TrimStart before asset start error = %v", err)
	}
	if _, err := p.TrimEnd(99); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("TrimEnd before start error = %v", err)
	}
	if _, err := p.Move(^MusicalTime(0) - 10); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Move past end error = %v", err)
	}
}

func TestTimeline_InsertValidates(t *testing.T) {
	t.Parallel()

	assets := &fakeAssets{
		audio: [][]float32{constantAudio(100, 1), nil},
		midi:  [][]Note{{{Key: 60, Velocity: 1, Start: 0, End: 10}}},
	}
	tl := newUnitTimeline(t, assets)
	track := tl.AddTrack(0)

	tests := []struct {
		name string
		clip Clip
		want error
	}{
		{name: "fits", clip: NewAudioClip(0, mustPos(t, 0, 100, 0))},
		{name: "offset overruns", clip: NewAudioClip(0, mustPos(t, 0, 100, 1)), want: ErrClipOverrun},
		{name: "absent asset allowed", clip: NewAudioClip(1, mustPos(t, 0, 5000, 0))},
		{name: "unknown audio", clip: NewAudioClip(7, mustPos(t, 0, 1, 0)), want: ErrUnknownAsset},
		{name: "midi longer than notes", clip: NewMidiClip(0, mustPos(t, 0, 10000, 0))},
		{name: "unknown midi", clip: NewMidiClip(3, mustPos(t, 0, 1, 0)), want: ErrUnknownAsset},
		{name: "bad position", clip: Clip{Kind: AudioClip, Position: ClipPosition{GlobalStart: 5, GlobalEnd: 1}}, want: ErrInvalidPosition},
	}

	for _, tt := range tests {
		_, err := tl.InsertClip(track, tt.clip)
		if tt.want == nil && err != nil {
			t.Errorf("%s: error = %v", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}

	if _, err := tl.InsertClip(9, NewAudioClip(0, mustPos(t, 0, 1, 0))); !errors.Is(err, ErrUnknownTrack) {
		t.Errorf("unknown track error = %v", err)
	}
}

func TestTimeline_EditsKeepOrder(t *testing.T) {
	t.Parallel()

	assets := &fakeAssets{audio: [][]float32{constantAudio(1000, 1)}}
	tl := newUnitTimeline(t, assets)
	track := tl.AddTrack(2)

	var handles []ClipHandle
	for i := range 3 {
		h, err := tl.InsertClip(track, NewAudioClip(0, mustPos(t, MusicalTime(i*100), MusicalTime(i*100+50), 0)))
		if err != nil {
			t.Fatalf("InsertClip() error = %v", err)
		}
		handles = append(handles, h)
	}

	if err := tl.MoveClip(handles[0], 700); err != nil {
		t.Fatalf("MoveClip() error = %v", err)
	}
	if err := tl.TrimClip(handles[1], 10, 110, 140); err != nil {
		t.Fatalf("TrimClip() error = %v", err)
	}
	if err := tl.TrimClip(handles[1], 10, 150, 140); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("invalid trim error = %v", err)
	}
	if err := tl.RemoveClip(handles[2]); err != nil {
		t.Fatalf("RemoveClip() error = %v", err)
	}
	if err := tl.RemoveClip(handles[2]); !errors.Is(err, ErrUnknownClip) {
		t.Errorf("double remove error = %v", err)
	}

	clips, _ := tl.Clips(track)
	want := []ClipPosition{
		{GlobalStart: 700, GlobalEnd: 750, ClipStart: 0},
		{GlobalStart: 110, GlobalEnd: 140, ClipStart: 10},
	}
	if len(clips) != len(want) {
		t.Fatalf("clips = %d, want %d", len(clips), len(want))
	}
	for i := range want {
		if clips[i].Position != want[i] {
			t.Errorf("clip %d = %+v, want %+v", i, clips[i].Position, want[i])
		}
	}

	if end := tl.End(); end != 750 {
		t.Errorf("End() = %d, want 750", end)
	}

	got, _ := tl.Handles(track)
	if !slices.Equal(got, handles[:2]) {
		t.Errorf("Handles() = %v, want %v", got, handles[:2])
	}

	if ch, _ := tl.TrackChannel(track); ch != 2 {
		t.Errorf("TrackChannel() = %d, want 2", ch)
	}
	if err := tl.SetTrackChannel(track, 3); err != nil {
		t.Fatal(err)
	}
	if ch, _ := tl.TrackChannel(track); ch != 3 {
		t.Errorf("TrackChannel() after set = %d, want 3", ch)
	}
}

func TestTimeline_SetMeterKeepsAudioInsideAssets(t *testing.T) {
	t.Parallel()

	assets := &fakeAssets{
		audio: [][]float32{constantAudio(512, 1), nil},
		midi:  [][]Note{{{Key: 60, Velocity: 1, Start: 0, End: 10}}},
	}
	tl := newUnitTimeline(t, assets)
	track := tl.AddTrack(0)
	for _, c := range []Clip{
		NewAudioClip(0, mustPos(t, 0, 512, 0)),
		NewAudioClip(1, mustPos(t, 0, 4096, 0)),
		NewMidiClip(0, mustPos(t, 0, 4096, 0)),
	} {
		if _, err := tl.InsertClip(track, c); err != nil {
			t.Fatalf("InsertClip() error = %v", err)
		}
	}

	slower := Meter{BPM: 30, Numerator: 4}
	if err := tl.SetMeter(slower); !errors.Is(err, ErrClipOverrun) {
		t.Fatalf("SetMeter(30 BPM) error = %v, want %v", err, ErrClipOverrun)
	}
	if got := tl.Meter(); got != unitMeter {
		t.Fatalf("Meter() after rejected change = %+v, want %+v", got, unitMeter)
	}

	faster := Meter{BPM: 120, Numerator: 3}
	if err := tl.SetMeter(faster); err != nil {
		t.Fatalf("SetMeter(120 BPM) error = %v", err)
	}
	if got := tl.Meter(); got != faster {
		t.Fatalf("Meter() = %+v, want %+v", got, faster)
	}
}
