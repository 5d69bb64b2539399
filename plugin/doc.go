// SPDX-License-Identifier: EPL-2.0

// Package plugin hosts audio processors behind a uniform contract.
//
// A [Processor] declares its ports and parameters, processes one block at
// a time and saves and restores an opaque state. [Host.Load] resolves an
// opaque plugin identifier through registered factories, then through Go
// plugin modules found in the configured search paths, and returns an
// activated [Handle].
//
// # Port negotiation
//
// Channels carry stereo audio. A processor must declare two audio outputs
// and either zero audio inputs (an instrument) or two. Any other layout
// fails to load with [ErrPortMismatch].
//
// # Threading
//
// Loading, closing and state handling run on the control thread.
// [Handle.Process] runs on the audio thread; it never allocates and turns
// a plugin panic into a [ProcessError] instead of unwinding the callback.
// Processors are not preempted: one that takes too long glitches the
// output and is only reported.
package plugin
