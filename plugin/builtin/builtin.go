// SPDX-License-Identifier: EPL-2.0

// Package builtin provides the processors bundled with dawcore: a gain, a
// polyphonic sine instrument and a feedback delay. Their parameters live
// in atomics and their state is a protobuf encoded list of parameter
// values.
package builtin

import "github.com/ik5/dawcore/plugin"

// Register makes every bundled processor loadable from h.
func Register(h *plugin.Host) {
	h.Register(GainID, NewGain)
	h.Register(SineID, NewSine)
	h.Register(DelayID, NewDelay)
}
