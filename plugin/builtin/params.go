// SPDX-License-Identifier: EPL-2.0

package builtin

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ik5/dawcore/plugin"
)

var ErrBadState = errors.New("malformed builtin plugin state")

// params stores parameter values as float64 bits so the control thread
// can read them while the audio thread writes.
type params struct {
	decl   []plugin.Param
	values []atomic.Uint64
}

func newParams(decl []plugin.Param) *params {
	p := &params{decl: decl, values: make([]atomic.Uint64, len(decl))}
	p.defaults()
	return p
}

func (p *params) defaults() {
	for i, d := range p.decl {
		p.values[i].Store(math.Float64bits(d.Default))
	}
}

// index maps a parameter ID to its slot. Builtin IDs are dense from zero.
func (p *params) index(id uint32) (int, bool) {
	if int(id) >= len(p.decl) {
		return 0, false
	}
	return int(id), true
}

func (p *params) set(id uint32, v float64) {
	if i, ok := p.index(id); ok {
		p.values[i].Store(math.Float64bits(p.decl[i].Clamp(v)))
	}
}

func (p *params) get(id uint32) float64 {
	if i, ok := p.index(id); ok {
		return math.Float64frombits(p.values[i].Load())
	}
	return 0
}

// save encodes every value as a fixed64 field numbered ID+1.
func (p *params) save() []byte {
	var b []byte
	for i := range p.decl {
		b = protowire.AppendTag(b, protowire.Number(i+1), protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, p.values[i].Load())
	}
	return b
}

// restore decodes a blob written by save. Unknown fields are skipped and
// missing ones take their default. Nothing is applied unless the whole
// blob parses.
func (p *params) restore(b []byte) error {
	vals := make([]float64, len(p.decl))
	for i, d := range p.decl {
		vals[i] = d.Default
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrBadState, protowire.ParseError(n))
		}
		b = b[n:]

		i := int(num) - 1
		if typ == protowire.Fixed64Type && i >= 0 && i < len(p.decl) {
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrBadState, protowire.ParseError(n))
			}
			f := math.Float64frombits(v)
			if math.IsNaN(f) {
				return fmt.Errorf("%w: parameter %d is NaN", ErrBadState, i)
			}
			vals[i] = p.decl[i].Clamp(f)
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrBadState, protowire.ParseError(n))
		}
		b = b[n:]
	}

	for i, v := range vals {
		p.values[i].Store(math.Float64bits(v))
	}
	return nil
}
