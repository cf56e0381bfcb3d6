// ABOUTME: Mock driver and device for engine tests
// ABOUTME: Records all device calls and simulates failures and busy states
package outflow

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/outflow-audio/outflow-go/pkg/audio"
	"github.com/outflow-audio/outflow-go/pkg/audio/driver"
)

var mockSeq atomic.Int64

// mockDriver registers itself under a unique name so tests can run in
// any order against the process-global registry.
type mockDriver struct {
	name    string
	openErr error
	dev     *mockDevice
}

func newMockDriver(t *testing.T) *mockDriver {
	t.Helper()
	d := &mockDriver{
		name: fmt.Sprintf("mock-%d", mockSeq.Add(1)),
		dev:  newMockDevice(),
	}
	driver.Register(d)
	return d
}

func (d *mockDriver) Name() string { return d.name }

func (d *mockDriver) Open(device string) (driver.Device, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.dev.device = device
	return d.dev, nil
}

type mockDevice struct {
	mu sync.Mutex

	device    string
	supported audio.Encoding

	written    []byte
	writeCalls int
	failAt     int // fail the Nth write call, 0 = never
	writeMax   int // cap bytes per write, 0 = unlimited
	busy       bool

	configured []audio.Format
	pauses     int
	resumes    int
	drains     int
	drops      int
	closes     int
}

func newMockDevice() *mockDevice {
	return &mockDevice{supported: audio.Signed16 | audio.Float32}
}

func (d *mockDevice) Encodings(channels, rate int) (audio.Encoding, error) {
	if channels < 1 || rate <= 0 {
		return 0, errors.New("mock: bad query")
	}
	return d.supported, nil
}

func (d *mockDevice) Configure(f audio.Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f.Encoding&d.supported == 0 {
		return fmt.Errorf("mock: unsupported encoding %v", f.Encoding)
	}
	d.configured = append(d.configured, f)
	return nil
}

func (d *mockDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writeCalls++
	if d.failAt > 0 && d.writeCalls >= d.failAt {
		return 0, errors.New("mock: device gone")
	}
	if d.busy {
		return 0, nil
	}

	n := len(p)
	if d.writeMax > 0 && n > d.writeMax {
		n = d.writeMax
	}
	d.written = append(d.written, p[:n]...)
	return n, nil
}

func (d *mockDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauses++
	return nil
}

func (d *mockDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	return nil
}

func (d *mockDevice) Drain() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drains++
	return nil
}

func (d *mockDevice) Drop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drops++
	return nil
}

func (d *mockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *mockDevice) writtenBytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.written...)
}

func (d *mockDevice) counts() (pauses, resumes, drains, drops, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pauses, d.resumes, d.drains, d.drops, d.closes
}

func (d *mockDevice) setBusy(busy bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = busy
}

func (d *mockDevice) lastFormat() (audio.Format, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.configured) == 0 {
		return audio.Format{}, false
	}
	return d.configured[len(d.configured)-1], true
}

// pcmPattern returns n bytes of a deterministic pattern for ordering
// checks.
func pcmPattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i * 7)
	}
	return p
}
