// ABOUTME: Raw file output driver
// ABOUTME: Writes interleaved PCM bytes to a file or stdout, headerless
package driver

import (
	"fmt"
	"os"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

func init() {
	Register(rawDriver{})
}

// rawDriver dumps the PCM stream to a file. The device name is the
// output path; empty means stdout. Registered last so live backends
// win the default selection.
type rawDriver struct{}

func (rawDriver) Name() string { return "raw" }

func (rawDriver) Open(device string) (Device, error) {
	if device == "" {
		return &rawDevice{file: os.Stdout, isStdout: true}, nil
	}
	f, err := os.Create(device)
	if err != nil {
		return nil, fmt.Errorf("raw: failed to create %s: %w", device, err)
	}
	return &rawDevice{file: f}, nil
}

type rawDevice struct {
	file     *os.File
	isStdout bool
	format   audio.Format
}

func (d *rawDevice) Encodings(channels, rate int) (audio.Encoding, error) {
	if channels < 1 || rate <= 0 {
		return 0, fmt.Errorf("raw: invalid query: %d channels at %d Hz", channels, rate)
	}
	return audio.EncodingAny, nil
}

func (d *rawDevice) Configure(f audio.Format) error {
	if !f.Valid() {
		return fmt.Errorf("raw: invalid format %+v", f)
	}
	d.format = f
	return nil
}

func (d *rawDevice) Write(p []byte) (int, error) {
	n, err := d.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("raw: write failed: %w", err)
	}
	return n, nil
}

func (d *rawDevice) Pause() error  { return nil }
func (d *rawDevice) Resume() error { return nil }

func (d *rawDevice) Drain() error {
	if d.isStdout {
		return nil
	}
	if err := d.file.Sync(); err != nil {
		return fmt.Errorf("raw: sync failed: %w", err)
	}
	return nil
}

// Drop is a no-op; nothing is buffered beyond the kernel.
func (d *rawDevice) Drop() error { return nil }

func (d *rawDevice) Close() error {
	if d.isStdout {
		return nil
	}
	if err := d.file.Close(); err != nil {
		return fmt.Errorf("raw: close failed: %w", err)
	}
	return nil
}
