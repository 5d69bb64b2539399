// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 files through github.com/hajimehoshi/go-mp3.
//
// go-mp3 always produces 16-bit stereo, so every Source from this package
// reports two channels regardless of the file's own layout. Reads that end
// on half a sample keep the stray byte for the next call.
//
//	src, err := mp3.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
package mp3
