// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"io"
)

// SeekBuffer is an in-memory io.WriteSeeker, standing in for a file in
// tests of encoders that patch headers on close.
type SeekBuffer struct {
	data []byte
	pos  int
}

func (b *SeekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	copy(b.data[b.pos:], p)
	b.pos = end

	return len(p), nil
}

func (b *SeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(b.pos) + offset
	case io.SeekEnd:
		next = int64(len(b.data)) + offset
	default:
		return 0, errors.New("audiotest: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("audiotest: negative position")
	}
	b.pos = int(next)

	return next, nil
}

// Bytes returns everything written so far.
func (b *SeekBuffer) Bytes() []byte { return b.data }
