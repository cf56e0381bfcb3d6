//go:build portaudio

// ABOUTME: PortAudio output driver
// ABOUTME: Blocking-write playback through the portaudio cgo bindings
package driver

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

func init() {
	Register(portAudioDriver{})
}

type portAudioDriver struct{}

func (portAudioDriver) Name() string { return "portaudio" }

func (portAudioDriver) Open(device string) (Device, error) {
	if device != "" {
		return nil, fmt.Errorf("portaudio: device selection not supported, got %q", device)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: failed to initialize: %w", err)
	}
	return &portAudioDevice{}, nil
}

type portAudioDevice struct {
	stream     *portaudio.Stream
	format     audio.Format
	buf16      []int16
	buf32      []float32
	stage      []byte // partial buffer awaiting a full period
	bufferHint time.Duration
}

func (d *portAudioDevice) SetBufferDuration(dur time.Duration) {
	d.bufferHint = dur
}

func (d *portAudioDevice) Encodings(channels, rate int) (audio.Encoding, error) {
	if channels < 1 || rate <= 0 {
		return 0, fmt.Errorf("portaudio: invalid query: %d channels at %d Hz", channels, rate)
	}
	return audio.Signed16 | audio.Float32, nil
}

func (d *portAudioDevice) Configure(f audio.Format) error {
	if f.Encoding != audio.Signed16 && f.Encoding != audio.Float32 {
		return fmt.Errorf("portaudio: unsupported encoding %v", f.Encoding)
	}

	if d.stream != nil {
		_ = d.stream.Close()
		d.stream = nil
	}

	frames := 1024
	if d.bufferHint > 0 {
		if h := int(float64(f.Rate) * d.bufferHint.Seconds()); h >= 64 {
			frames = h
		}
	}

	var (
		stream *portaudio.Stream
		err    error
	)
	switch f.Encoding {
	case audio.Signed16:
		d.buf16 = make([]int16, frames*f.Channels)
		stream, err = portaudio.OpenDefaultStream(0, f.Channels, float64(f.Rate), frames, &d.buf16)
	case audio.Float32:
		d.buf32 = make([]float32, frames*f.Channels)
		stream, err = portaudio.OpenDefaultStream(0, f.Channels, float64(f.Rate), frames, &d.buf32)
	}
	if err != nil {
		return fmt.Errorf("portaudio: failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("portaudio: failed to start stream: %w", err)
	}

	d.stream = stream
	d.format = f
	d.stage = d.stage[:0]
	return nil
}

func (d *portAudioDevice) periodBytes() int {
	if d.format.Encoding == audio.Signed16 {
		return len(d.buf16) * 2
	}
	return len(d.buf32) * 4
}

func (d *portAudioDevice) Write(p []byte) (int, error) {
	if d.stream == nil {
		return 0, fmt.Errorf("portaudio: device not configured")
	}

	consumed := 0
	for consumed < len(p) {
		take := d.periodBytes() - len(d.stage)
		if take > len(p)-consumed {
			take = len(p) - consumed
		}
		d.stage = append(d.stage, p[consumed:consumed+take]...)
		consumed += take

		if len(d.stage) < d.periodBytes() {
			break
		}
		if err := d.writePeriod(); err != nil {
			return consumed, fmt.Errorf("portaudio: write failed: %w", err)
		}
	}
	return consumed, nil
}

func (d *portAudioDevice) writePeriod() error {
	if d.format.Encoding == audio.Signed16 {
		for i := range d.buf16 {
			d.buf16[i] = int16(binary.LittleEndian.Uint16(d.stage[i*2:]))
		}
	} else {
		for i := range d.buf32 {
			d.buf32[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.stage[i*4:]))
		}
	}
	d.stage = d.stage[:0]
	return d.stream.Write()
}

func (d *portAudioDevice) Pause() error {
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil {
			return fmt.Errorf("portaudio: failed to stop stream: %w", err)
		}
	}
	return nil
}

func (d *portAudioDevice) Resume() error {
	if d.stream != nil {
		if err := d.stream.Start(); err != nil {
			return fmt.Errorf("portaudio: failed to start stream: %w", err)
		}
	}
	return nil
}

func (d *portAudioDevice) Drain() error {
	if d.stream == nil {
		return nil
	}
	// Pad the staged remainder with silence to flush it out.
	if len(d.stage) > 0 {
		for len(d.stage) < d.periodBytes() {
			d.stage = append(d.stage, 0)
		}
		if err := d.writePeriod(); err != nil {
			return fmt.Errorf("portaudio: drain flush failed: %w", err)
		}
	}
	// Stop blocks until pending buffers have played.
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("portaudio: drain failed: %w", err)
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: failed to restart after drain: %w", err)
	}
	return nil
}

func (d *portAudioDevice) Drop() error {
	if d.stream == nil {
		return nil
	}
	d.stage = d.stage[:0]
	if err := d.stream.Abort(); err != nil {
		return fmt.Errorf("portaudio: abort failed: %w", err)
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("portaudio: failed to restart after drop: %w", err)
	}
	return nil
}

func (d *portAudioDevice) Close() error {
	if d.stream != nil {
		_ = d.stream.Close()
		d.stream = nil
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("portaudio: terminate failed: %w", err)
	}
	return nil
}
