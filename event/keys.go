// SPDX-License-Identifier: EPL-2.0

package event

// KeySet is a set of MIDI keys. The zero value is empty.
type KeySet [2]uint64

func (s *KeySet) Add(key uint8)      { s[key>>6&1] |= 1 << (key & 63) }
func (s *KeySet) Remove(key uint8)   { s[key>>6&1] &^= 1 << (key & 63) }
func (s *KeySet) Has(key uint8) bool { return s[key>>6&1]&(1<<(key&63)) != 0 }
func (s *KeySet) Empty() bool        { return s[0]|s[1] == 0 }

// Union returns the keys in s or o.
func (s KeySet) Union(o KeySet) KeySet { return KeySet{s[0] | o[0], s[1] | o[1]} }

// Intersect returns the keys in both s and o.
func (s KeySet) Intersect(o KeySet) KeySet { return KeySet{s[0] & o[0], s[1] & o[1]} }

// Minus returns the keys of s missing from o.
func (s KeySet) Minus(o KeySet) KeySet { return KeySet{s[0] &^ o[0], s[1] &^ o[1]} }

// Track applies the note starts and ends of events, in order.
func (s *KeySet) Track(events []Note) {
	for i := range events {
		if key, _, ok := events[i].Start(); ok {
			s.Add(key)
		} else if key, ok := events[i].End(); ok {
			s.Remove(key)
		}
	}
}

// Release pushes a note-off at frame for every key of s.
func (s *KeySet) Release(b *Buffer, frame int) {
	for key := range uint8(128) {
		if s.Has(key) {
			b.Push(NoteOff(frame, 0, key))
		}
	}
}
