// ABOUTME: Parameter store for playback handles
// ABOUTME: Flags, preload fraction, gain, verbosity and device-buffer hint
package outflow

// Flags adjust engine and driver behavior. Output-route flags are
// hints a backend may ignore.
type Flags int

const (
	// FlagHeadphones hints output to headphones where supported.
	FlagHeadphones Flags = 0x01

	// FlagInternalSpeaker hints output to the built-in speaker.
	FlagInternalSpeaker Flags = 0x02

	// FlagLineOut hints output to line out.
	FlagLineOut Flags = 0x04

	// FlagQuiet suppresses all log output for the handle.
	FlagQuiet Flags = 0x08

	// FlagKeepPlaying (default) makes the engine retry transient
	// device interruptions instead of surfacing short writes.
	FlagKeepPlaying Flags = 0x10
)

// Params holds the recognized configuration of one handle. Values are
// snapshotted into the buffer worker when playback starts and pushed
// again whenever a setter is called.
type Params struct {
	// Flags, see the Flag constants.
	Flags Flags

	// Preload is the fraction of the buffer that must be filled
	// before the worker (re)engages the device after a start, pause
	// or underrun. Range 0..1.
	Preload float64

	// Gain is a backend-specific output gain, stored for backends
	// that support it. The bundled backends ignore it.
	Gain int64

	// Verbose sets log verbosity; 0 logs errors only.
	Verbose int

	// DeviceBuffer is an advisory device-side buffer duration in
	// seconds. Drivers with sizable internal buffers apply it on the
	// next open.
	DeviceBuffer float64
}

func defaultParams() Params {
	return Params{
		Flags:   FlagKeepPlaying,
		Preload: 0.2,
	}
}

// SetFlags replaces the flag set.
func (o *Out) SetFlags(f Flags) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.params.Flags = f
	o.pushParams()
}

// Flags returns the current flag set.
func (o *Out) Flags() Flags {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params.Flags
}

// SetPreload sets the preload fraction, clamped to [0, 1]. A negative
// value restores the default.
func (o *Out) SetPreload(fraction float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case fraction < 0:
		fraction = defaultParams().Preload
	case fraction > 1:
		fraction = 1
	}
	o.params.Preload = fraction
	o.pushParams()
}

// Preload returns the preload fraction.
func (o *Out) Preload() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params.Preload
}

// SetGain stores the backend-specific gain for backends that support
// it.
func (o *Out) SetGain(gain int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.params.Gain = gain
	o.pushParams()
}

// Gain returns the configured gain.
func (o *Out) Gain() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params.Gain
}

// SetVerbose sets log verbosity. Negative values are treated as 0.
func (o *Out) SetVerbose(v int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v < 0 {
		v = 0
	}
	o.params.Verbose = v
	o.pushParams()
}

// Verbose returns the verbosity level.
func (o *Out) Verbose() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params.Verbose
}

// SetDeviceBuffer sets the advisory device buffer duration in seconds.
// Takes effect at the next Open. Negative values are rejected.
func (o *Out) SetDeviceBuffer(seconds float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seconds < 0 {
		return o.fail(ErrBufferError, errInvalidDeviceBuffer)
	}
	o.params.DeviceBuffer = seconds
	o.pushParams()
	return nil
}

// DeviceBuffer returns the device buffer hint in seconds.
func (o *Out) DeviceBuffer() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params.DeviceBuffer
}

// CopyParamsFrom copies every parameter from another handle.
func (o *Out) CopyParamsFrom(src *Out) {
	src.mu.Lock()
	p := src.params
	src.mu.Unlock()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.params = p
	o.pushParams()
}

// pushParams forwards the current parameter snapshot to a running
// buffer worker. Callers hold o.mu.
func (o *Out) pushParams() {
	if o.buf != nil {
		o.buf.msgs <- message{cmd: cmdParams, params: o.params}
	}
}
