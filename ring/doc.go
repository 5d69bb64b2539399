// SPDX-License-Identifier: EPL-2.0

// Package ring implements the lock-free transport between the control
// goroutine and the audio callback.
//
// # Usage
//
// A Ring carries value messages in one direction. The control side pushes
// commands and the audio side pops them at the start of every block; a
// second ring carries reports back the other way:
//
//	cmds := ring.New[command](256)
//	if !cmds.Push(cmd) {
//	    // full: retry later from the control side
//	}
//
//	for {
//	    cmd, ok := cmds.Pop()
//	    if !ok {
//	        break
//	    }
//	    apply(cmd)
//	}
//
// # Guarantees
//
// Values are delivered in push order. Push and Pop never block and never
// allocate. The ring is safe for one producer and one consumer; callers
// with several producers must serialize them on their own side.
package ring
