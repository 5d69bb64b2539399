// SPDX-License-Identifier: EPL-2.0

// Package timeline models the arrangement of a project: tracks of audio
// and MIDI clips placed in musical time.
//
// # Musical time
//
// Positions are [MusicalTime] ticks, 256 per beat. A [Meter] converts
// ticks to frames at a sample rate, always rounding down, so a clip edge
// lands on the same frame no matter how the timeline is cut into blocks.
//
// # Clips
//
// A [Clip] references an asset by index and plays [ClipPosition.ClipStart]
// into it during [GlobalStart, GlobalEnd). Audio clips are checked against
// the length of their asset on insert and on every edit; MIDI clips may
// run longer than their notes. Clips on a track may overlap, in which case
// their audio is summed.
//
// # Rendering
//
// [Render] is the audio thread entry point and writes into caller owned
// buffers. [Timeline.RenderRegion] wraps it for control side use such as
// previews and tests.
package timeline
