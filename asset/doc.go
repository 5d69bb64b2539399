// SPDX-License-Identifier: EPL-2.0

// Package asset holds the audio and MIDI assets clips play from.
//
// # Audio
//
// A [Loader] decodes WAV, AIFF, Ogg Vorbis and MP3 files through the
// decoders in formats/, resamples them to the engine rate and converts
// them to interleaved stereo. Each asset keeps the xxhash64 of its encoded
// file; a [Resolver] uses it to verify that a file found on disk is the
// one a project was saved with.
//
// Assets that fail to load stay in the [Table] with their name and hash
// and no data. Clips referencing them render silence and the project
// saves them unchanged.
//
// # MIDI
//
// [ReadSMF] imports a Standard MIDI File as a [Midi] asset.
//
// # Waveforms
//
// [Summarize] builds the min/max pyramid a renderer samples to draw a
// clip:
//
//	s, err := asset.Summarize(a)
//	if err != nil {
//		return err
//	}
//	upload(s.Level(zoom))
package asset
