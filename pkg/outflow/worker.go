// ABOUTME: Buffer worker goroutine owning the output device
// ABOUTME: Drains the ring buffer and applies in-order control messages
package outflow

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/outflow-audio/outflow-go/internal/ring"
	"github.com/outflow-audio/outflow-go/pkg/audio"
	"github.com/outflow-audio/outflow-go/pkg/audio/driver"
)

type command int

const (
	cmdData command = iota
	cmdStart
	cmdStop
	cmdPause
	cmdContinue
	cmdDrop
	cmdDrain
	cmdParams
	cmdEncodings
	cmdShutdown
)

// message travels on the single ordered channel between the handle and
// the worker. Data announcements (cmdData) and control commands share
// it, so a command always takes effect exactly after the bytes
// enqueued before it.
type message struct {
	cmd      command
	n        int          // cmdData: bytes written to the ring
	format   audio.Format // cmdStart
	params   Params       // cmdStart, cmdParams
	channels int          // cmdEncodings
	rate     int          // cmdEncodings
	reply    chan error   // synchronous commands
	enc      chan encodingsReply
}

type encodingsReply struct {
	mask audio.Encoding
	err  error
}

// pipeline is the producer-side view of a running buffer worker.
type pipeline struct {
	ring *ring.Buffer
	msgs chan message
	done chan struct{}

	fault   atomic.Int32 // Code; nonzero once the worker faulted
	errMu   sync.Mutex
	lastErr error
}

func (p *pipeline) faultCode() Code {
	return Code(p.fault.Load())
}

func (p *pipeline) faultErr() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.lastErr
}

func (p *pipeline) setFault(code Code, err error) {
	p.errMu.Lock()
	p.lastErr = err
	p.errMu.Unlock()
	p.fault.Store(int32(code))
}

// worker owns the device while buffering is active. It is the only
// goroutine touching the device and the ring's read side.
type worker struct {
	dev  driver.Device
	ring *ring.Buffer
	msgs <-chan message
	pipe *pipeline

	params     Params
	pending    int    // announced bytes not yet handed to the device
	carry      []byte // chunk bytes read from the ring but not yet written
	chunk      []byte
	started    bool
	paused     bool
	preloading bool
}

func newWorker(dev driver.Device, p *pipeline) *worker {
	return &worker{
		dev:   dev,
		ring:  p.ring,
		msgs:  p.msgs,
		pipe:  p,
		chunk: make([]byte, 8192),
	}
}

func (w *worker) run() {
	defer close(w.pipe.done)

	for {
		if w.canFeed() {
			select {
			case m := <-w.msgs:
				if w.handle(m) {
					return
				}
			default:
				w.feed()
			}
		} else {
			m := <-w.msgs
			if w.handle(m) {
				return
			}
		}
	}
}

func (w *worker) preloadBytes() int {
	return int(w.params.Preload * float64(w.ring.Capacity()))
}

func (w *worker) faulted() bool {
	return w.pipe.faultCode() != OK
}

func (w *worker) canFeed() bool {
	if !w.started || w.paused || w.faulted() {
		return false
	}
	if w.pending == 0 && len(w.carry) == 0 {
		return false
	}
	if w.preloading {
		if w.ring.Occupied() < w.preloadBytes() {
			return false
		}
		w.preloading = false
	}
	return true
}

// handle applies one control message; returns true on shutdown.
func (w *worker) handle(m message) bool {
	switch m.cmd {
	case cmdData:
		w.pending += m.n

	case cmdStart:
		w.params = m.params
		// Bytes enqueued before the new format still play in the old one.
		if w.started {
			w.flush()
		}
		if w.faulted() {
			m.reply <- &Error{Code: ErrNotLive, Err: w.pipe.faultErr()}
			break
		}
		err := w.dev.Configure(m.format)
		if err == nil {
			w.started = true
			w.paused = false
			w.preloading = w.preloadBytes() > 0
		}
		m.reply <- err

	case cmdStop:
		if w.paused {
			_ = w.dev.Resume()
			w.paused = false
		}
		w.flush()
		err := w.dev.Drain()
		w.started = false
		m.reply <- err

	case cmdPause:
		if !w.paused {
			w.paused = true
			if err := w.dev.Pause(); err != nil {
				log.Printf("outflow: device pause failed: %v", err)
			}
		}

	case cmdContinue:
		if w.paused {
			w.paused = false
			if err := w.dev.Resume(); err != nil {
				log.Printf("outflow: device resume failed: %v", err)
			}
			w.preloading = w.preloadBytes() > 0 &&
				w.ring.Occupied() < w.preloadBytes()
		}

	case cmdDrop:
		w.pending = 0
		w.carry = nil
		w.ring.Reset()
		if err := w.dev.Drop(); err != nil {
			log.Printf("outflow: device drop failed: %v", err)
		}

	case cmdDrain:
		if w.paused {
			_ = w.dev.Resume()
			w.paused = false
		}
		w.flush()
		m.reply <- w.dev.Drain()

	case cmdParams:
		w.params = m.params

	case cmdEncodings:
		mask, err := w.dev.Encodings(m.channels, m.rate)
		m.enc <- encodingsReply{mask: mask, err: err}

	case cmdShutdown:
		m.reply <- w.dev.Close()
		return true
	}
	return false
}

// flush plays out everything announced so far, ignoring preload.
func (w *worker) flush() {
	w.preloading = false
	for !w.faulted() && (w.pending > 0 || len(w.carry) > 0) {
		w.feed()
	}
}

// feed moves one chunk from the ring to the device.
func (w *worker) feed() {
	if len(w.carry) == 0 {
		n := w.pending
		if n > len(w.chunk) {
			n = len(w.chunk)
		}
		n = w.ring.Read(w.chunk[:n])
		if n == 0 {
			// Announced bytes vanished (out-of-band reset); reconcile.
			w.pending = 0
			return
		}
		w.pending -= n
		w.carry = w.chunk[:n]
	}

	n, err := w.dev.Write(w.carry)
	w.carry = w.carry[n:]

	if err != nil {
		if driver.IsTransient(err) {
			// Retry without dropping data; the carry stays queued.
			time.Sleep(2 * time.Millisecond)
			return
		}
		w.fail(ErrDevPlay, err)
		return
	}
	if n == 0 {
		// Device busy; avoid spinning while it catches up.
		time.Sleep(2 * time.Millisecond)
	}
}

func (w *worker) fail(code Code, err error) {
	w.pipe.setFault(code, err)
	// Wake a producer blocked on ring space; the pipeline is dead.
	w.ring.Close()
	if w.params.Flags&FlagQuiet == 0 {
		log.Printf("outflow: audio worker failed: %v", err)
	}
}
