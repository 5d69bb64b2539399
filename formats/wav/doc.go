// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes WAV files.
//
// Decoding goes through github.com/go-audio/wav and accepts integer PCM
// at 8, 16, 24 and 32 bits with any chunk layout that library can walk.
// Samples come out as float32 in [-1.0, 1.0].
//
//	src, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
//
// # Writing
//
// Writer encodes float32 frames through go-audio/wav and is what offline
// bounces use:
//
//	w, err := wav.NewWriter(file, 48000, 2, 24)
//	...
//	err = w.Write(block)
//	...
//	err = w.Close()
//
// WritePCM16 writes a complete 16-bit file to a plain io.Writer in one
// call.
package wav
