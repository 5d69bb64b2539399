// SPDX-License-Identifier: EPL-2.0

// Package audio provides the decoded-stream building blocks used to load
// assets and to feed output devices.
//
// This package contains:
//   - Source interface for pull based audio streams
//   - Registry for decoder lookup by key, file extension or content
//   - Resampler for sample rate conversion
//   - MonoMixer and StereoMixer for channel layout adaptation
//   - Buffer, an in-memory Source
//   - ReadAll and ToStereo pipelines
//
// # Source Interface
//
// Every decoder and processor implements Source, so they chain:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// # Loading Assets
//
// Assets are held in memory as interleaved stereo at the engine rate:
//
//	src, err := registry.Detect(fileBytes)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//	data, err := audio.ToStereo(src, 48000, 4096)
//
// # Device Adaptation
//
// The Resampler does not allocate once it has been read from, so the
// device layer wraps the engine stream in one when the hardware runs at a
// different rate than the engine.
//
// # Sample Format
//
// Samples are float32 in [-1.0, 1.0]; 0.0 is silence. Intermediate mixes
// may exceed the range; clamping happens only when converting to integer
// PCM.
//
// # Error Handling
//
// ReadSamples returns io.EOF when the stream is finished, possibly together
// with the last samples:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    consume(buf[:n])
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
package audio
