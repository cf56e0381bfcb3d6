// ABOUTME: Driver and Device interfaces plus shared error sentinels
// ABOUTME: The fixed capability contract consumed by the playback engine
package driver

import (
	"errors"
	"time"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

// ErrTransient marks a retryable device condition, such as the backend
// being interrupted or momentarily out of queue space. Backends wrap
// transient failures with it; the engine retries them according to its
// keep-playing policy. Any other non-nil Write error is fatal for the
// device.
var ErrTransient = errors.New("device busy")

// ErrUnknownDriver is wrapped by Open when no candidate name matches a
// registered driver.
var ErrUnknownDriver = errors.New("unknown driver")

// Driver is an output backend. Open loads and validates the backend
// for a device name; it does not commit to a format yet.
type Driver interface {
	// Name returns the registry name of the backend.
	Name() string

	// Open binds a device. An empty name selects the backend default.
	Open(device string) (Device, error)
}

// Device is one open output device. It is exclusively owned by
// whichever goroutine performs I/O on it; methods are not safe for
// concurrent use.
type Device interface {
	// Encodings returns the bitmask of sample encodings the device
	// supports for the given channel count and rate.
	Encodings(channels, rate int) (audio.Encoding, error)

	// Configure commits to a playback format. It may be called again
	// after a Drain to switch formats.
	Configure(f audio.Format) error

	// Write plays as many bytes as the device currently accepts and
	// returns the count. A short write with a nil error is not an
	// error; it means the device is busy.
	Write(p []byte) (int, error)

	// Pause stops consuming audio but keeps the device open.
	Pause() error

	// Resume restarts consumption after Pause.
	Resume() error

	// Drain blocks until everything written has been played.
	Drain() error

	// Drop discards any audio the device still holds.
	Drop() error

	// Close releases the device.
	Close() error
}

// BufferSizer is implemented by devices that can size their internal
// buffer from the engine's device-buffer duration hint. The hint is
// advisory and applied before Configure.
type BufferSizer interface {
	SetBufferDuration(d time.Duration)
}

// IsTransient reports whether err marks a retryable device condition.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
