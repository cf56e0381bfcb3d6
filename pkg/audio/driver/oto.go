// ABOUTME: Oto-based output driver
// ABOUTME: Cross-platform PCM playback via the oto library
package driver

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

func init() {
	Register(otoDriver{})
}

// oto allows only one context per process; every otoDevice shares it.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoOpts oto.NewContextOptions
)

type otoDriver struct{}

func (otoDriver) Name() string { return "oto" }

func (otoDriver) Open(device string) (Device, error) {
	if device != "" {
		return nil, fmt.Errorf("oto: device selection not supported, got %q", device)
	}
	return &otoDevice{}, nil
}

type otoDevice struct {
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	bufferHint time.Duration
	ready      bool
}

func (d *otoDevice) SetBufferDuration(dur time.Duration) {
	d.bufferHint = dur
}

func (d *otoDevice) Encodings(channels, rate int) (audio.Encoding, error) {
	if channels < 1 || rate <= 0 {
		return 0, fmt.Errorf("oto: invalid query: %d channels at %d Hz", channels, rate)
	}
	return audio.Signed16 | audio.Unsigned8 | audio.Float32, nil
}

func (d *otoDevice) Configure(f audio.Format) error {
	var otoFormat oto.Format
	switch f.Encoding {
	case audio.Signed16:
		otoFormat = oto.FormatSignedInt16LE
	case audio.Unsigned8:
		otoFormat = oto.FormatUnsignedInt8
	case audio.Float32:
		otoFormat = oto.FormatFloat32LE
	default:
		return fmt.Errorf("oto: unsupported encoding %v", f.Encoding)
	}

	if d.ready {
		d.teardown()
	}

	opts := oto.NewContextOptions{
		SampleRate:   f.Rate,
		ChannelCount: f.Channels,
		Format:       otoFormat,
		BufferSize:   d.bufferHint,
	}
	if err := acquireOtoContext(opts); err != nil {
		return err
	}

	// Persistent player streaming from a pipe; Write blocks until the
	// player consumed the data, so the device paces the producer.
	d.pipeReader, d.pipeWriter = io.Pipe()
	d.player = otoCtx.NewPlayer(d.pipeReader)
	d.player.Play()

	d.format = f
	d.ready = true
	return nil
}

func acquireOtoContext(opts oto.NewContextOptions) error {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoOpts.SampleRate != opts.SampleRate ||
			otoOpts.ChannelCount != opts.ChannelCount ||
			otoOpts.Format != opts.Format {
			return fmt.Errorf("oto: context already initialized with %dHz/%dch, cannot switch to %dHz/%dch",
				otoOpts.SampleRate, otoOpts.ChannelCount, opts.SampleRate, opts.ChannelCount)
		}
		if err := otoCtx.Resume(); err != nil {
			return fmt.Errorf("oto: failed to resume context: %w", err)
		}
		return nil
	}

	ctx, readyChan, err := oto.NewContext(&opts)
	if err != nil {
		return fmt.Errorf("oto: failed to create context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoOpts = opts
	return nil
}

func (d *otoDevice) Write(p []byte) (int, error) {
	if !d.ready {
		return 0, fmt.Errorf("oto: device not configured")
	}
	n, err := d.pipeWriter.Write(p)
	if err != nil {
		return n, fmt.Errorf("oto: pipe write failed: %w", err)
	}
	return n, nil
}

func (d *otoDevice) Pause() error {
	if d.ready {
		d.player.Pause()
	}
	return nil
}

func (d *otoDevice) Resume() error {
	if d.ready {
		d.player.Play()
	}
	return nil
}

func (d *otoDevice) Drain() error {
	if !d.ready || !d.player.IsPlaying() {
		return nil
	}
	for d.player.BufferedSize() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

func (d *otoDevice) Drop() error {
	if d.ready {
		d.player.Reset()
		d.player.Play()
	}
	return nil
}

func (d *otoDevice) Close() error {
	d.teardown()

	otoMu.Lock()
	if otoCtx != nil {
		otoCtx.Suspend()
	}
	otoMu.Unlock()
	return nil
}

func (d *otoDevice) teardown() {
	if d.pipeWriter != nil {
		d.pipeWriter.Close()
		d.pipeWriter = nil
	}
	if d.player != nil {
		d.player.Close()
		d.player = nil
	}
	if d.pipeReader != nil {
		d.pipeReader.Close()
		d.pipeReader = nil
	}
	d.ready = false
}
