// SPDX-License-Identifier: EPL-2.0

// Package project holds the persisted form of a session and its binary
// encoding.
//
// Snapshots use the protobuf wire format, written and read field by field
// with protowire, so no generated code is involved. Encoding is
// deterministic: fields go out in field number order, scalars are always
// written and lists keep their order, so saving a loaded snapshot yields
// the same bytes.
//
// The schema, by field number:
//
//	Project      1 meter, 2 audios, 3 midis, 4 tracks, 5 channels
//	Meter        1 bpm, 2 numerator
//	Audio        1 name, 2 content_hash
//	Midi         1 notes
//	Note         1 key, 2 velocity (float, default 1), 3 start, 4 end
//	Track        1 clips, 2 channel
//	Clip         oneof 1 audio, 2 midi
//	AudioClip    1 index, 2 position (MidiClip alike)
//	ClipPosition 1 global_start, 2 global_end, 3 clip_start
//	Channel      1 connections (packed), 2 plugins, 3 volume (float, default 1), 4 pan (float)
//	Plugin       1 id, 2 state (optional), 3 mix (float, default 1), 4 enabled (default true)
package project
