// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files through
// github.com/jfreymuth/oggvorbis.
//
// oggvorbis already yields interleaved float32, so reads go straight into
// the caller's buffer without an intermediate copy.
//
//	src, err := vorbis.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
package vorbis
