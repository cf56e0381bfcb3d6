// ABOUTME: Error code enumeration and error type for the playback engine
// ABOUTME: Every failure is representable as a fixed code plus a wrapped cause
package outflow

import "fmt"

// Code enumerates every error class the engine reports. The zero value
// means success. Each handle remembers the code of its last failure;
// see Out.ErrCode and Out.LastError.
type Code int

const (
	// OK means no error.
	OK Code = iota

	// ErrOutOfMemory: an allocation for engine infrastructure failed.
	ErrOutOfMemory

	// ErrBadDriverName: none of the requested driver names is known.
	ErrBadDriverName

	// ErrBadDriver: a known driver failed to load or open.
	ErrBadDriver

	// ErrNoDriver: the operation needs an open driver and none is.
	ErrNoDriver

	// ErrNotLive: the operation needs an active audio device and
	// there is none, or the device died.
	ErrNotLive

	// ErrDevPlay: the device failed during playback.
	ErrDevPlay

	// ErrDevOpen: opening or configuring the device failed.
	ErrDevOpen

	// ErrBufferError: unexpected failure in the buffer infrastructure.
	ErrBufferError
)

var codeStrings = map[Code]string{
	OK:               "no error",
	ErrOutOfMemory:   "out of memory",
	ErrBadDriverName: "bad driver name",
	ErrBadDriver:     "driver load failure",
	ErrNoDriver:      "no driver loaded",
	ErrNotLive:       "no active audio device",
	ErrDevPlay:       "device playback error",
	ErrDevOpen:       "device open error",
	ErrBufferError:   "buffer infrastructure error",
}

// String returns the human-readable description of a code.
func (c Code) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// Error is the error type returned by engine operations. It carries
// the code recorded on the handle and, where available, the driver or
// infrastructure error that caused it.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error { return e.Err }
