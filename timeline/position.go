// SPDX-License-Identifier: EPL-2.0

package timeline

import "fmt"

// ClipPosition places a source region on the timeline. The clip plays
// during [GlobalStart, GlobalEnd) starting ClipStart into its asset.
type ClipPosition struct {
	GlobalStart MusicalTime
	GlobalEnd   MusicalTime
	ClipStart   MusicalTime
}

// NewClipPosition validates globalStart <= globalEnd. ClipStart cannot be
// negative by type.
func NewClipPosition(globalStart, globalEnd, clipStart MusicalTime) (ClipPosition, error) {
	p := ClipPosition{GlobalStart: globalStart, GlobalEnd: globalEnd, ClipStart: clipStart}
	if err := p.Validate(); err != nil {
		return ClipPosition{}, err
	}

	return p, nil
}

// Validate checks the ordering invariant.
func (p ClipPosition) Validate() error {
	if p.GlobalStart > p.GlobalEnd {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidPosition, p.GlobalStart, p.GlobalEnd)
	}

	return nil
}

// Len is the played length.
func (p ClipPosition) Len() MusicalTime { return p.GlobalEnd - p.GlobalStart }

// Move shifts the clip to start at globalStart, keeping length and offset.
func (p ClipPosition) Move(globalStart MusicalTime) (ClipPosition, error) {
	if uint64(globalStart)+uint64(p.Len()) > uint64(^MusicalTime(0)) {
		return p, fmt.Errorf("%w: move past the end of the timeline", ErrInvalidPosition)
	}

	return ClipPosition{
		GlobalStart: globalStart,
		GlobalEnd:   globalStart + p.Len(),
		ClipStart:   p.ClipStart,
	}, nil
}

// TrimStart moves the left edge to globalStart while keeping the audible
// material in place, so ClipStart follows the edge. The edge cannot move
// before the asset start or past the right edge.
func (p ClipPosition) TrimStart(globalStart MusicalTime) (ClipPosition, error) {
	if globalStart > p.GlobalEnd {
		return p, fmt.Errorf("%w: trim start past end", ErrInvalidPosition)
	}

	np := p
	if globalStart >= p.GlobalStart {
		np.ClipStart += globalStart - p.GlobalStart
	} else {
		d := p.GlobalStart - globalStart
		if d > p.ClipStart {
			return p, fmt.Errorf("%w: trim start before asset start", ErrInvalidPosition)
		}
		np.ClipStart -= d
	}
	np.GlobalStart = globalStart

	return np, nil
}

// TrimEnd moves the right edge.
func (p ClipPosition) TrimEnd(globalEnd MusicalTime) (ClipPosition, error) {
	if globalEnd < p.GlobalStart {
		return p, fmt.Errorf("%w: trim end before start", ErrInvalidPosition)
	}
	p.GlobalEnd = globalEnd

	return p, nil
}
