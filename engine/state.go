// SPDX-License-Identifier: EPL-2.0

package engine

// State is the transport state.
type State uint32

const (
	Stopped State = iota
	Playing
	// Seeking is transient: a seek resolves to the state the transport
	// was in before it, within the block that applies it.
	Seeking
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Seeking:
		return "seeking"
	default:
		return "unknown"
	}
}
