// SPDX-License-Identifier: EPL-2.0

package project

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ik5/dawcore/timeline"
)

// Field numbers of the snapshot schema.
const (
	projectMeter    protowire.Number = 1
	projectAudios   protowire.Number = 2
	projectMidis    protowire.Number = 3
	projectTracks   protowire.Number = 4
	projectChannels protowire.Number = 5

	meterBPM       protowire.Number = 1
	meterNumerator protowire.Number = 2

	audioName protowire.Number = 1
	audioHash protowire.Number = 2

	midiNotes protowire.Number = 1

	noteKey      protowire.Number = 1
	noteVelocity protowire.Number = 2
	noteStart    protowire.Number = 3
	noteEnd      protowire.Number = 4

	trackClips   protowire.Number = 1
	trackChannel protowire.Number = 2

	clipAudio protowire.Number = 1
	clipMidi  protowire.Number = 2

	clipIndex    protowire.Number = 1
	clipPosition protowire.Number = 2

	positionGlobalStart protowire.Number = 1
	positionGlobalEnd   protowire.Number = 2
	positionClipStart   protowire.Number = 3

	channelConnections protowire.Number = 1
	channelPlugins     protowire.Number = 2
	channelVolume      protowire.Number = 3
	channelPan         protowire.Number = 4

	pluginID      protowire.Number = 1
	pluginState   protowire.Number = 2
	pluginMix     protowire.Number = 3
	pluginEnabled protowire.Number = 4
)

// Marshal encodes p in the protobuf wire format. Fields are written in
// field number order and scalars are always written, so equal projects
// encode to equal bytes.
func Marshal(p *Project) []byte {
	var b []byte

	b = appendMessage(b, projectMeter, func(b []byte) []byte {
		b = appendVarint(b, meterBPM, uint64(p.Meter.BPM))
		return appendVarint(b, meterNumerator, uint64(p.Meter.Numerator))
	})
	for _, a := range p.Audios {
		b = appendMessage(b, projectAudios, func(b []byte) []byte {
			b = protowire.AppendTag(b, audioName, protowire.BytesType)
			b = protowire.AppendString(b, a.Name)
			return appendVarint(b, audioHash, a.Hash)
		})
	}
	for _, notes := range p.Midis {
		b = appendMessage(b, projectMidis, func(b []byte) []byte {
			for _, n := range notes {
				b = appendMessage(b, midiNotes, func(b []byte) []byte { return appendNote(b, n) })
			}
			return b
		})
	}
	for _, t := range p.Tracks {
		b = appendMessage(b, projectTracks, func(b []byte) []byte {
			for _, c := range t.Clips {
				b = appendMessage(b, trackClips, func(b []byte) []byte { return appendClip(b, c) })
			}
			return appendVarint(b, trackChannel, uint64(t.Channel))
		})
	}
	for _, c := range p.Channels {
		b = appendMessage(b, projectChannels, func(b []byte) []byte { return appendChannel(b, c) })
	}

	return b
}

func appendMessage(b []byte, num protowire.Number, body func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body(nil))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendNote(b []byte, n timeline.Note) []byte {
	b = appendVarint(b, noteKey, uint64(n.Key))
	b = appendFloat(b, noteVelocity, n.Velocity)
	b = appendVarint(b, noteStart, uint64(n.Start))
	return appendVarint(b, noteEnd, uint64(n.End))
}

func appendClip(b []byte, c timeline.Clip) []byte {
	num := clipAudio
	if c.Kind == timeline.MidiClip {
		num = clipMidi
	}
	return appendMessage(b, num, func(b []byte) []byte {
		b = appendVarint(b, clipIndex, uint64(c.Asset))
		return appendMessage(b, clipPosition, func(b []byte) []byte {
			b = appendVarint(b, positionGlobalStart, uint64(c.Position.GlobalStart))
			b = appendVarint(b, positionGlobalEnd, uint64(c.Position.GlobalEnd))
			return appendVarint(b, positionClipStart, uint64(c.Position.ClipStart))
		})
	})
}

func appendChannel(b []byte, c Channel) []byte {
	if len(c.Connections) > 0 {
		var packed []byte
		for _, to := range c.Connections {
			packed = protowire.AppendVarint(packed, uint64(to))
		}
		b = protowire.AppendTag(b, channelConnections, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	for _, p := range c.Plugins {
		b = appendMessage(b, channelPlugins, func(b []byte) []byte {
			b = protowire.AppendTag(b, pluginID, protowire.BytesType)
			b = protowire.AppendBytes(b, p.ID)
			if p.State != nil {
				b = protowire.AppendTag(b, pluginState, protowire.BytesType)
				b = protowire.AppendBytes(b, p.State)
			}
			b = appendFloat(b, pluginMix, p.Mix)
			enabled := uint64(0)
			if p.Enabled {
				enabled = 1
			}
			return appendVarint(b, pluginEnabled, enabled)
		})
	}
	b = appendFloat(b, channelVolume, c.Volume)
	return appendFloat(b, channelPan, c.Pan)
}

// Unmarshal decodes a snapshot. Unknown fields are skipped; missing
// fields take the schema defaults (velocity, volume and mix 1, plugins
// enabled). The result is not validated; see Project.Validate.
func Unmarshal(b []byte) (*Project, error) {
	p := &Project{Meter: timeline.DefaultMeter()}

	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num >= projectMeter && num <= projectChannels {
			if err := expect(num, typ, protowire.BytesType); err != nil {
				return err
			}
		}
		switch num {
		case projectMeter:
			return decodeMeter(v, &p.Meter)
		case projectAudios:
			var a Audio
			if err := decodeAudio(v, &a); err != nil {
				return err
			}
			p.Audios = append(p.Audios, a)
		case projectMidis:
			notes, err := decodeMidi(v)
			if err != nil {
				return err
			}
			p.Midis = append(p.Midis, notes)
		case projectTracks:
			t, err := decodeTrack(v)
			if err != nil {
				return err
			}
			p.Tracks = append(p.Tracks, t)
		case projectChannels:
			c, err := decodeChannel(v)
			if err != nil {
				return err
			}
			p.Channels = append(p.Channels, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// walk calls fn for every field of a message. For length delimited fields
// v holds the payload, for the others x holds the value.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var f uint32
			f, n = protowire.ConsumeFixed32(b)
			x = uint64(f)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}

// expect checks the wire type of a known field.
func expect(num protowire.Number, got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrCorrupt, num, got, want)
	}
	return nil
}

// narrow32 rejects varints that do not fit the 32 bit fields they decode
// into.
func narrow32(num protowire.Number, x uint64) (uint32, error) {
	if x > math.MaxUint32 {
		return 0, fmt.Errorf("%w: field %d value %d overflows 32 bits", ErrCorrupt, num, x)
	}
	return uint32(x), nil
}

func decodeMeter(b []byte, m *timeline.Meter) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, _ []byte, x uint64) error {
		var dst *uint32
		switch num {
		case meterBPM:
			dst = &m.BPM
		case meterNumerator:
			dst = &m.Numerator
		default:
			return nil
		}
		if err := expect(num, typ, protowire.VarintType); err != nil {
			return err
		}
		v, err := narrow32(num, x)
		*dst = v
		return err
	})
}

func decodeAudio(b []byte, a *Audio) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case audioName:
			a.Name = string(v)
			return expect(num, typ, protowire.BytesType)
		case audioHash:
			a.Hash = x
			return expect(num, typ, protowire.VarintType)
		}
		return nil
	})
}

func decodeMidi(b []byte) ([]timeline.Note, error) {
	notes := []timeline.Note{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num != midiNotes {
			return nil
		}
		if err := expect(num, typ, protowire.BytesType); err != nil {
			return err
		}
		n := timeline.Note{Velocity: 1}
		err := walk(v, func(num protowire.Number, typ protowire.Type, _ []byte, x uint64) error {
			switch num {
			case noteKey:
				if x > 127 {
					return fmt.Errorf("%w: note key %d", ErrCorrupt, x)
				}
				n.Key = uint8(x)
				return expect(num, typ, protowire.VarintType)
			case noteVelocity:
				n.Velocity = math.Float32frombits(uint32(x))
				return expect(num, typ, protowire.Fixed32Type)
			case noteStart, noteEnd:
				if err := expect(num, typ, protowire.VarintType); err != nil {
					return err
				}
				v, err := narrow32(num, x)
				if num == noteStart {
					n.Start = timeline.MusicalTime(v)
				} else {
					n.End = timeline.MusicalTime(v)
				}
				return err
			}
			return nil
		})
		notes = append(notes, n)
		return err
	})
	return notes, err
}

func decodeTrack(b []byte) (Track, error) {
	var t Track
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case trackClips:
			if err := expect(num, typ, protowire.BytesType); err != nil {
				return err
			}
			c, err := decodeClip(v)
			if err != nil {
				return err
			}
			t.Clips = append(t.Clips, c)
		case trackChannel:
			t.Channel = int(x)
			return expect(num, typ, protowire.VarintType)
		}
		return nil
	})
	return t, err
}

func decodeClip(b []byte) (timeline.Clip, error) {
	var c timeline.Clip
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch num {
		case clipAudio:
			c.Kind = timeline.AudioClip
		case clipMidi:
			c.Kind = timeline.MidiClip
		default:
			return nil
		}
		if err := expect(num, typ, protowire.BytesType); err != nil {
			return err
		}
		return walk(v, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
			switch num {
			case clipIndex:
				c.Asset = int(x)
				return expect(num, typ, protowire.VarintType)
			case clipPosition:
				if err := expect(num, typ, protowire.BytesType); err != nil {
					return err
				}
				return decodePosition(v, &c.Position)
			}
			return nil
		})
	})
	if err == nil && c.Kind == 0 {
		err = fmt.Errorf("%w: clip is neither audio nor midi", ErrCorrupt)
	}
	return c, err
}

func decodePosition(b []byte, p *timeline.ClipPosition) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, _ []byte, x uint64) error {
		var dst *timeline.MusicalTime
		switch num {
		case positionGlobalStart:
			dst = &p.GlobalStart
		case positionGlobalEnd:
			dst = &p.GlobalEnd
		case positionClipStart:
			dst = &p.ClipStart
		default:
			return nil
		}
		if err := expect(num, typ, protowire.VarintType); err != nil {
			return err
		}
		v, err := narrow32(num, x)
		*dst = timeline.MusicalTime(v)
		return err
	})
}

func decodeChannel(b []byte) (Channel, error) {
	c := Channel{Volume: 1}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case channelConnections:
			switch typ {
			case protowire.VarintType:
				c.Connections = append(c.Connections, int(x))
			case protowire.BytesType:
				for len(v) > 0 {
					to, n := protowire.ConsumeVarint(v)
					if n < 0 {
						return fmt.Errorf("%w: connections: %v", ErrCorrupt, protowire.ParseError(n))
					}
					c.Connections = append(c.Connections, int(to))
					v = v[n:]
				}
			default:
				return expect(num, typ, protowire.BytesType)
			}
		case channelPlugins:
			if err := expect(num, typ, protowire.BytesType); err != nil {
				return err
			}
			p, err := decodePlugin(v)
			if err != nil {
				return err
			}
			c.Plugins = append(c.Plugins, p)
		case channelVolume:
			c.Volume = math.Float32frombits(uint32(x))
			return expect(num, typ, protowire.Fixed32Type)
		case channelPan:
			c.Pan = math.Float32frombits(uint32(x))
			return expect(num, typ, protowire.Fixed32Type)
		}
		return nil
	})
	return c, err
}

func decodePlugin(b []byte) (Plugin, error) {
	p := Plugin{Mix: 1, Enabled: true}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case pluginID:
			p.ID = append([]byte{}, v...)
			return expect(num, typ, protowire.BytesType)
		case pluginState:
			p.State = append([]byte{}, v...)
			return expect(num, typ, protowire.BytesType)
		case pluginMix:
			p.Mix = math.Float32frombits(uint32(x))
			return expect(num, typ, protowire.Fixed32Type)
		case pluginEnabled:
			p.Enabled = x != 0
			return expect(num, typ, protowire.VarintType)
		}
		return nil
	})
	return p, err
}
