// ABOUTME: Playback handle and lifecycle state machine
// ABOUTME: Orchestrates the driver, the ring buffer and the buffer worker
package outflow

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/outflow-audio/outflow-go/internal/ring"
	"github.com/outflow-audio/outflow-go/pkg/audio"
	"github.com/outflow-audio/outflow-go/pkg/audio/driver"
)

// State is the lifecycle state of a handle.
type State int

const (
	// Closed: no driver or device bound. Initial state.
	Closed State = iota

	// Opened: a driver is loaded and a device bound, no format yet.
	Opened

	// Started: playback format committed, Play accepts data.
	Started

	// Paused: device feeding suspended, buffered audio retained.
	Paused
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opened:
		return "opened"
	case Started:
		return "started"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// How long a policy-off Play waits for the worker to free ring space
// before surfacing a partial write.
const stallTimeout = 100 * time.Millisecond

var errInvalidDeviceBuffer = errors.New("device buffer duration must not be negative")

// Out is a playback handle. It must be driven by one goroutine at a
// time; the engine synchronizes internally with its buffer worker, not
// between callers.
type Out struct {
	mu     sync.Mutex
	state  State
	params Params

	driverName string
	deviceName string
	format     audio.Format

	// dev is engine-owned only while no worker runs; once buffering
	// starts, the worker owns the device and dev is nil.
	dev  driver.Device
	dead bool // device hit a fatal error; reopen required

	bufBytes int // configured ring capacity, 0 = unbuffered
	buf      *pipeline

	lastCode Code
	lastErr  error
}

// New creates a handle in the Closed state with default parameters:
// keep-playing enabled and a preload fraction of 0.2.
func New() *Out {
	return &Out{params: defaultParams()}
}

// fail records an error code on the handle and returns it as an error.
// Callers hold o.mu.
func (o *Out) fail(code Code, err error) error {
	o.lastCode = code
	o.lastErr = err
	e := &Error{Code: code, Err: err}
	if o.params.Flags&FlagQuiet == 0 && o.params.Verbose > 0 {
		log.Printf("outflow: %v", e)
	}
	return e
}

// ErrCode returns the code of the last recorded error, or OK.
func (o *Out) ErrCode() Code {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastCode
}

// LastError returns the last recorded error, or nil.
func (o *Out) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastCode == OK {
		return nil
	}
	return &Error{Code: o.lastCode, Err: o.lastErr}
}

// State returns the current lifecycle state.
func (o *Out) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Drivers returns the names of all registered output drivers.
func Drivers() []string {
	return driver.Names()
}

// SetBuffer configures the decoupling buffer capacity in bytes. Zero
// disables buffering. Any open driver and device are closed, even when
// the capacity does not change, so call this early.
func (o *Out) SetBuffer(bytes int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if bytes < 0 {
		return o.fail(ErrBufferError, fmt.Errorf("negative buffer size %d", bytes))
	}
	o.closeLocked()
	o.bufBytes = bytes
	return nil
}

// Open loads the first workable driver from a comma-separated
// preference list and binds a device name. Empty drivers tries every
// registered backend in order; empty device selects the backend
// default. A previously open output is closed first.
func (o *Out) Open(drivers, device string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Closed {
		o.closeLocked()
	}

	dev, name, err := driver.Open(drivers, device)
	if err != nil {
		code := ErrBadDriver
		if errors.Is(err, driver.ErrUnknownDriver) {
			code = ErrBadDriverName
		}
		return o.fail(code, err)
	}

	if bs, ok := dev.(driver.BufferSizer); ok && o.params.DeviceBuffer > 0 {
		bs.SetBufferDuration(time.Duration(o.params.DeviceBuffer * float64(time.Second)))
	}

	o.dev = dev
	o.driverName = name
	o.deviceName = device
	o.state = Opened
	o.dead = false
	o.logf(1, "opened driver %s (device %q)", name, device)
	return nil
}

// Driver returns the name of the loaded driver, empty when Closed.
func (o *Out) Driver() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.driverName
}

// Format returns the active playback format. Only meaningful in
// Started or Paused.
func (o *Out) Format() audio.Format {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.format
}

// Encodings queries the device for the supported encoding mask at the
// given channel count and rate.
//
// Calling this while Started implicitly performs Stop first, draining
// playback and leaving the handle in Opened. This mirrors the behavior
// of devices that cannot be queried while running; restart with Start
// afterwards if needed.
func (o *Out) Encodings(channels, rate int) (audio.Encoding, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case Closed:
		return 0, o.fail(ErrNoDriver, nil)
	case Started, Paused:
		if err := o.stopLocked(); err != nil {
			return 0, err
		}
	}

	var (
		mask audio.Encoding
		err  error
	)
	if o.buf != nil {
		enc := make(chan encodingsReply, 1)
		o.buf.msgs <- message{cmd: cmdEncodings, channels: channels, rate: rate, enc: enc}
		r := <-enc
		mask, err = r.mask, r.err
	} else {
		mask, err = o.dev.Encodings(channels, rate)
	}
	if err != nil {
		return 0, o.fail(ErrDevOpen, err)
	}
	return mask, nil
}

// Start commits to a playback format and enters Started. With
// buffering configured, the first Start hands the device to a newly
// spawned buffer worker. On format rejection the prior state and
// format are kept and the error is recorded.
func (o *Out) Start(enc audio.Encoding, channels, rate int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Closed {
		return o.fail(ErrNoDriver, nil)
	}
	if o.dead {
		return o.fail(ErrNotLive, nil)
	}
	if o.buf != nil && o.buf.faultCode() != OK {
		o.dead = true
		return o.fail(ErrNotLive, o.buf.faultErr())
	}

	f := audio.Format{Encoding: enc, Channels: channels, Rate: rate}
	if !f.Valid() {
		return o.fail(ErrDevOpen, fmt.Errorf("invalid format %v/%dch/%dHz", enc, channels, rate))
	}

	if o.bufBytes > 0 && o.buf == nil {
		rb, err := ring.New(o.bufBytes)
		if err != nil {
			return o.fail(ErrBufferError, err)
		}
		p := &pipeline{
			ring: rb,
			msgs: make(chan message, 16),
			done: make(chan struct{}),
		}
		go newWorker(o.dev, p).run()
		o.dev = nil // the worker owns the device now
		o.buf = p
	}

	var err error
	if o.buf != nil {
		reply := make(chan error, 1)
		o.buf.msgs <- message{cmd: cmdStart, format: f, params: o.params, reply: reply}
		err = <-reply
	} else {
		err = o.dev.Configure(f)
	}
	if err != nil {
		return o.fail(ErrDevOpen, err)
	}

	o.format = f
	o.state = Started
	o.logf(1, "started playback: %v, %d channels, %d Hz", enc, channels, rate)
	return nil
}

// Play hands over interleaved PCM bytes for playback and returns the
// number of bytes accepted.
//
// With buffering enabled the call blocks while the ring buffer is
// full, resuming as the worker frees space; this is the backpressure
// that paces a fast producer. The count is less than len(p) only after
// a fatal device error (non-nil error) or, with FlagKeepPlaying
// cleared, when playback stalled (nil error; retry later).
//
// Calling Play while Paused implicitly continues playback.
func (o *Out) Play(p []byte) (int, error) {
	o.mu.Lock()

	if len(p) == 0 {
		o.mu.Unlock()
		return 0, nil
	}
	if o.state == Paused {
		o.continueLocked()
	}
	if o.state != Started || o.dead {
		err := o.fail(ErrNotLive, nil)
		o.mu.Unlock()
		return 0, err
	}

	if o.buf == nil {
		defer o.mu.Unlock()
		return o.playDirect(p)
	}

	pipe := o.buf
	keep := o.params.Flags&FlagKeepPlaying != 0
	o.mu.Unlock()

	total := 0
	for total < len(p) {
		if code := pipe.faultCode(); code != OK {
			return total, o.reportFault(pipe)
		}

		n := pipe.ring.Write(p[total:])
		if n > 0 {
			pipe.msgs <- message{cmd: cmdData, n: n}
			total += n
			continue
		}

		var timeout time.Duration
		if !keep {
			timeout = stallTimeout
		}
		switch err := pipe.ring.WaitSpace(timeout); err {
		case nil:
		case ring.ErrStalled:
			// Policy off and no consumer progress: partial result,
			// not an error. The caller should try again later.
			return total, nil
		default: // ring closed, the worker faulted
			return total, o.reportFault(pipe)
		}
	}
	return total, nil
}

// reportFault records the worker's fault on the handle and marks the
// device dead so later calls fail with ErrNotLive.
func (o *Out) reportFault(pipe *pipeline) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dead = true
	code := pipe.faultCode()
	if code == OK {
		code = ErrBufferError
	}
	return o.fail(code, pipe.faultErr())
}

// playDirect writes to the device in the caller's goroutine. Callers
// hold o.mu.
func (o *Out) playDirect(p []byte) (int, error) {
	keep := o.params.Flags&FlagKeepPlaying != 0

	total := 0
	for total < len(p) {
		n, err := o.dev.Write(p[total:])
		total += n

		if err != nil {
			if driver.IsTransient(err) && keep {
				continue
			}
			if driver.IsTransient(err) {
				return total, nil
			}
			o.dead = true
			return total, o.fail(ErrDevPlay, err)
		}
		if total < len(p) {
			if !keep {
				// Short write and retrying is disabled: surface the
				// partial result, the caller should try again later.
				return total, nil
			}
			if n == 0 {
				// Busy device; avoid spinning while it catches up.
				time.Sleep(2 * time.Millisecond)
			}
		}
	}
	return total, nil
}

// Pause suspends feeding the device without discarding buffered audio.
func (o *Out) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Started {
		if o.state == Paused {
			return nil
		}
		return o.fail(ErrNotLive, nil)
	}

	if o.buf != nil {
		o.buf.msgs <- message{cmd: cmdPause}
	} else if err := o.dev.Pause(); err != nil {
		return o.fail(ErrDevPlay, err)
	}
	o.state = Paused
	return nil
}

// Continue resumes playback after Pause. With a preload fraction
// configured the worker may defer physically re-engaging the device
// until enough data has accumulated; Drain or further Play calls force
// it out.
func (o *Out) Continue() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Paused {
		if o.state == Started {
			return nil
		}
		return o.fail(ErrNotLive, nil)
	}
	o.continueLocked()
	return nil
}

func (o *Out) continueLocked() {
	if o.buf != nil {
		o.buf.msgs <- message{cmd: cmdContinue}
	} else if o.dev != nil {
		if err := o.dev.Resume(); err != nil {
			o.logf(0, "device resume failed: %v", err)
		}
	}
	o.state = Started
}

// Stop ends playback and returns to Opened. It waits for buffered and
// device-resident audio to fully play out; call Drop first to cut that
// short.
func (o *Out) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Started && o.state != Paused {
		return nil
	}
	return o.stopLocked()
}

func (o *Out) stopLocked() error {
	var err error
	if o.buf != nil {
		reply := make(chan error, 1)
		o.buf.msgs <- message{cmd: cmdStop, reply: reply}
		err = <-reply
	} else {
		err = o.dev.Drain()
	}
	o.state = Opened
	if err != nil && !o.dead {
		return o.fail(ErrDevPlay, err)
	}
	return nil
}

// Drop discards all buffered audio and tells the driver to discard any
// in-flight audio, for the fastest possible silence. Valid in any
// state after Open; it does not change state.
func (o *Out) Drop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Closed {
		return o.fail(ErrNoDriver, nil)
	}

	if o.buf != nil {
		o.buf.msgs <- message{cmd: cmdDrop}
	} else if err := o.dev.Drop(); err != nil {
		return o.fail(ErrDevPlay, err)
	}
	return nil
}

// Drain waits until all buffered and device-resident audio has been
// played, without changing state. After a pause this forces the
// remaining audio out even when the preload threshold was not reached.
func (o *Out) Drain() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Started && o.state != Paused {
		return o.fail(ErrNotLive, nil)
	}

	var err error
	if o.buf != nil {
		reply := make(chan error, 1)
		o.buf.msgs <- message{cmd: cmdDrain, reply: reply}
		err = <-reply
	} else {
		err = o.dev.Drain()
	}
	if err != nil {
		return o.fail(ErrDevPlay, err)
	}
	return nil
}

// Buffered returns the current ring buffer occupancy in bytes. Audio
// already handed to the device is not included. Returns an error when
// no buffer was configured with SetBuffer.
func (o *Out) Buffered() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.buf == nil {
		if o.bufBytes > 0 {
			// Buffering configured but no worker running yet.
			return 0, nil
		}
		return 0, o.fail(ErrBufferError, fmt.Errorf("no buffer configured"))
	}
	return o.buf.ring.Occupied(), nil
}

// Close shuts down the worker, releases the driver and device and
// returns to Closed. It does not drain: unflushed audio may be lost.
// Call Drain first for a lossless shutdown. Close on a Closed handle
// is a no-op.
func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
	return nil
}

func (o *Out) closeLocked() {
	if o.buf != nil {
		reply := make(chan error, 1)
		o.buf.msgs <- message{cmd: cmdShutdown, reply: reply}
		if err := <-reply; err != nil {
			o.logf(0, "device close failed: %v", err)
		}
		<-o.buf.done
		o.buf.ring.Close()
		o.buf = nil
	} else if o.dev != nil {
		if err := o.dev.Close(); err != nil {
			o.logf(0, "device close failed: %v", err)
		}
	}
	o.dev = nil
	o.driverName = ""
	o.deviceName = ""
	o.dead = false
	if o.state != Closed {
		o.logf(1, "closed output")
		o.state = Closed
	}
}

// logf logs at the given verbosity level unless the quiet flag is set.
// Callers hold o.mu.
func (o *Out) logf(level int, format string, args ...any) {
	if o.params.Flags&FlagQuiet != 0 || o.params.Verbose < level {
		return
	}
	log.Printf("outflow: "+format, args...)
}
