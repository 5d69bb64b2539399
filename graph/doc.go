// SPDX-License-Identifier: EPL-2.0

// Package graph is the mixer: channels with plugin chains, volume and pan,
// connected into a directed acyclic graph.
//
// [Graph] is the editable control side model. Edits that would close a
// loop fail with a [CycleError] and leave the graph as it was. Channel 0,
// [Master], is created with the graph and is the only channel heard on the
// device; other channels reach it through connections.
//
// [Graph.Compile] turns the model into a [Plan], the audio thread's view.
// A plan owns every buffer it needs and mixes one block per [Plan.Run]
// without allocating:
//
//  1. sum the track input and the outputs of upstream channels
//  2. run the plugin chain left to right, blending each stage with its
//     input by the slot mix
//  3. apply pan and volume
//
// A plugin that fails or panics yields silence for its stage and is
// reported as a [Fault]; playback goes on.
//
// # Plugin lifetime
//
// A plugin removed from the graph may still be running in the plan on the
// audio thread. It is closed by [Graph.Collect] once a plan compiled after
// its removal is live.
package graph
