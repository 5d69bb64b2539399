// SPDX-License-Identifier: EPL-2.0

// Package dawcore is the real-time audio core of a digital audio
// workstation.
//
// It turns a project (tracks of audio and MIDI clips, a mixer graph of
// channels and hosted plugins) into a continuous, sample accurate stream
// for an output device. The audio callback never allocates, locks or
// blocks; everything it needs arrives as immutable programs over a
// lock-free ring.
//
// # Packages
//
// The work is split the same way the data flows:
//   - ring: the bounded single producer, single consumer queue between
//     the control and audio threads
//   - timeline: musical time, clips, tracks and block rendering
//   - asset: decoded audio and MIDI assets, SMF import, waveform summaries
//   - plugin and plugin/builtin: the processor contract, the host and the
//     bundled gain, sine and delay processors
//   - graph: the mixer graph and the per-block plan compiled from it
//   - engine: the transport state machine, the audio callback and the
//     Controller driving it
//   - project: the snapshot wire format
//   - device: the output devices, PortAudio or none, and rate conversion
//   - audio and formats/...: decoding and resampling
//
// # Quick Start
//
// A Session wires all of the above together:
//
//	s, err := dawcore.New(48000, 4096, dawcore.WithAssetPaths("samples"))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	if err := s.Open(ctx, "song.daw"); err != nil && !engine.IsWarning(err) {
//		return err
//	}
//
//	out, err := device.OpenPortAudio(device.Config{SampleRate: 48000, Channels: 2}, 48000, 512)
//	if err != nil {
//		return err
//	}
//	if err := s.Attach(out); err != nil {
//		return err
//	}
//	go s.Controller().Run(ctx)
//	return s.Controller().Play(ctx)
//
// # Offline Rendering
//
// Bounce renders a range through the same engine path into a WAV file:
//
//	f, _ := os.Create("mix.wav")
//	defer f.Close()
//	err := s.Bounce(ctx, f, 0, s.Controller().End(), 24)
package dawcore
