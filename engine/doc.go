// SPDX-License-Identifier: EPL-2.0

// Package engine runs a project in real time.
//
// A session is split in two. The Controller lives on the control side: it
// owns the mixer graph, the timeline and the asset table, accepts edits,
// and publishes the result to the Engine as an immutable Program. The
// Engine lives on the audio thread: its Process method is the body of the
// device callback.
//
// # Transport
//
// The two sides only talk through a pair of bounded rings. Commands flow
// to the engine, which drains all of them at the start of a block before
// rendering, so edits made between two callbacks land together. Reports
// flow back: playhead position, transport state, applied programs, peak
// meters and plugin faults. A report that does not fit is dropped and
// counted.
//
// # States
//
// The transport is Stopped, Playing or, for the length of a drain,
// Seeking. Stop and Seek reset every plugin; the block after Play, Stop
// or Seek retriggers MIDI notes already sounding at its start. Stop keeps
// the position.
//
// # Faults
//
// A plugin that fails or panics outputs silence for the block and the
// session keeps playing. The fault reaches the ErrorHandler from Run,
// which also records the metrics.
package engine
