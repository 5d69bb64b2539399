// SPDX-License-Identifier: EPL-2.0

package timeline

import (
	"github.com/ik5/dawcore/event"
)

// Render adds the contribution of clips over [blockStart,
// blockStart+frames) into dst, interleaved stereo, and pushes their note
// events into events unsorted. It does not allocate and is safe on the
// audio thread.
//
// Audio clips read their asset from ClipStart plus the distance into the
// clip; frames outside the clip or past the asset end add nothing.
// MIDI notes are clipped to the clip region and emit a note-on at their
// start frame and a note-off at their end frame. With chase set, notes
// already sounding at blockStart get a note-on at frame 0, which is how a
// discontinuity (play start, seek) picks up held notes.
func Render(dst []float32, events *event.Buffer, clips []Clip, assets Assets, meter Meter,
	sampleRate int, blockStart int64, frames int, chase bool,
) {
	blockEnd := blockStart + int64(frames)

	for i := range clips {
		c := &clips[i]
		gs := meter.Frames(c.Position.GlobalStart, sampleRate)
		ge := meter.Frames(c.Position.GlobalEnd, sampleRate)

		start, end := max(gs, blockStart), min(ge, blockEnd)
		if start >= end {
			continue
		}

		switch c.Kind {
		case AudioClip:
			data, ok := assets.Audio(c.Asset)
			if !ok || data == nil {
				continue
			}
			cs := meter.Frames(c.Position.ClipStart, sampleRate)
			renderAudio(dst, data, cs+(start-gs), start-blockStart, end-start)
		case MidiClip:
			if events == nil {
				continue
			}
			notes, ok := assets.Midi(c.Asset)
			if !ok {
				continue
			}
			renderNotes(events, notes, c.Position, meter, sampleRate, blockStart, blockEnd, chase)
		}
	}
}

// renderAudio adds n frames of src starting at frame from into dst at
// frame at.
func renderAudio(dst, src []float32, from, at, n int64) {
	avail := int64(len(src)/2) - from
	if avail <= 0 || from < 0 {
		return
	}
	n = min(n, avail)

	s := src[from*2 : (from+n)*2]
	d := dst[at*2 : (at+n)*2]
	for i := range s {
		d[i] += s[i]
	}
}

func renderNotes(events *event.Buffer, notes []Note, pos ClipPosition, meter Meter,
	sampleRate int, blockStart, blockEnd int64, chase bool,
) {
	for i := range notes {
		n := &notes[i]
		fOn, fOff, ok := noteFrames(n, pos, meter, sampleRate)
		// a note ending on blockStart was not released by the block before
		if !ok || fOff < blockStart || fOn >= blockEnd {
			continue
		}

		switch {
		case fOn >= blockStart:
			events.Push(event.NoteOn(int(fOn-blockStart), 0, n.Key, n.Velocity))
		case chase && fOff > blockStart:
			events.Push(event.NoteOn(0, 0, n.Key, n.Velocity))
		}

		if fOff < blockEnd {
			events.Push(event.NoteOff(int(fOff-blockStart), 0, n.Key))
		}
	}
}

// noteFrames places n, clipped to the clip region, in engine frames. ok is
// false when nothing of the note is left.
func noteFrames(n *Note, pos ClipPosition, meter Meter, sampleRate int) (on, off int64, ok bool) {
	// asset ticks map to global ticks by this offset
	shift := int64(pos.GlobalStart) - int64(pos.ClipStart)

	tOn := max(int64(n.Start)+shift, int64(pos.GlobalStart))
	tOff := min(int64(n.End)+shift, int64(pos.GlobalEnd))
	if tOn >= tOff {
		return 0, 0, false
	}

	on = meter.Frames(MusicalTime(tOn), sampleRate)
	off = meter.Frames(MusicalTime(tOff), sampleRate)
	return on, off, on < off
}

// Sounding adds to held the keys of every note of clips that started
// before frame at and is still on at it.
func Sounding(held *event.KeySet, clips []Clip, assets Assets, meter Meter, sampleRate int, at int64) {
	for i := range clips {
		c := &clips[i]
		if c.Kind != MidiClip {
			continue
		}
		notes, ok := assets.Midi(c.Asset)
		if !ok {
			continue
		}
		for j := range notes {
			on, off, ok := noteFrames(&notes[j], c.Position, meter, sampleRate)
			if ok && on < at && off > at {
				held.Add(notes[j].Key)
			}
		}
	}
}
