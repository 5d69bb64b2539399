// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF and AIFF-C files through
// github.com/go-audio/aiff.
//
// Integer PCM at 8, 16, 24 and 32 bits is supported. Input that is not
// seekable is buffered in memory first, since go-audio walks chunks by
// seeking.
//
//	src, err := aiff.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
package aiff
