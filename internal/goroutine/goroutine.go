// Package goroutine exposes the runtime id of the calling goroutine. The
// queued event dispatcher keys its pending-event state by this id.
package goroutine

import (
	"bytes"
	"runtime"
	"strconv"
)

var stackPrefix = []byte("goroutine ")

// ID returns the runtime's id for the calling goroutine. Ids are unique
// among live goroutines and never reused while the goroutine is running.
func ID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, stackPrefix)
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
