// ABOUTME: ALSA output driver for Linux
// ABOUTME: Pure-Go PCM playback through kernel ioctls via gen2brain/alsa
package driver

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"time"

	"github.com/gen2brain/alsa"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

func init() {
	Register(alsaDriver{})
}

type alsaDriver struct{}

func (alsaDriver) Name() string { return "alsa" }

func (alsaDriver) Open(device string) (Device, error) {
	if device == "" {
		device = "hw:0,0"
	}
	if !strings.HasPrefix(device, "hw:") {
		return nil, fmt.Errorf("alsa: device must be of the form hw:C,D, got %q", device)
	}
	return &alsaDevice{deviceName: device}, nil
}

type alsaDevice struct {
	deviceName string
	pcm        *alsa.PCM
	format     audio.Format
	bufferHint time.Duration
}

func (d *alsaDevice) SetBufferDuration(dur time.Duration) {
	d.bufferHint = dur
}

func (d *alsaDevice) Encodings(channels, rate int) (audio.Encoding, error) {
	if channels < 1 || rate <= 0 {
		return 0, fmt.Errorf("alsa: invalid query: %d channels at %d Hz", channels, rate)
	}
	return audio.Signed8 | audio.Unsigned8 | audio.Signed16 | audio.Unsigned16 |
		audio.Signed24 | audio.Unsigned24 | audio.Signed32 | audio.Unsigned32 |
		audio.Float32 | audio.Float64, nil
}

func alsaFormat(e audio.Encoding) (alsa.PcmFormat, error) {
	switch e {
	case audio.Signed8:
		return alsa.PCM_FORMAT_S8, nil
	case audio.Unsigned8:
		return alsa.PCM_FORMAT_U8, nil
	case audio.Signed16:
		return alsa.PCM_FORMAT_S16_LE, nil
	case audio.Unsigned16:
		return alsa.PCM_FORMAT_U16_LE, nil
	case audio.Signed24:
		return alsa.PCM_FORMAT_S24_3LE, nil
	case audio.Unsigned24:
		return alsa.PCM_FORMAT_U24_3LE, nil
	case audio.Signed32:
		return alsa.PCM_FORMAT_S32_LE, nil
	case audio.Unsigned32:
		return alsa.PCM_FORMAT_U32_LE, nil
	case audio.Float32:
		return alsa.PCM_FORMAT_FLOAT_LE, nil
	case audio.Float64:
		return alsa.PCM_FORMAT_FLOAT64_LE, nil
	default:
		return 0, fmt.Errorf("alsa: unsupported encoding %v", e)
	}
}

func (d *alsaDevice) Configure(f audio.Format) error {
	format, err := alsaFormat(f.Encoding)
	if err != nil {
		return err
	}

	if d.pcm != nil {
		_ = d.pcm.Close()
		d.pcm = nil
	}

	periodSize := uint32(1024)
	if d.bufferHint > 0 {
		// Four periods per requested buffer duration.
		frames := uint32(float64(f.Rate) * d.bufferHint.Seconds() / 4)
		if frames >= 64 {
			periodSize = frames
		}
	}

	config := &alsa.Config{
		Channels:    uint32(f.Channels),
		Rate:        uint32(f.Rate),
		PeriodSize:  periodSize,
		PeriodCount: 4,
		Format:      format,
	}

	pcm, err := alsa.PcmOpenByName(d.deviceName, alsa.PCM_OUT, config)
	if err != nil {
		return fmt.Errorf("alsa: failed to open %s: %w", d.deviceName, err)
	}
	if err := pcm.Prepare(); err != nil {
		_ = pcm.Close()
		return fmt.Errorf("alsa: failed to prepare %s: %w", d.deviceName, err)
	}

	d.pcm = pcm
	d.format = f
	return nil
}

func (d *alsaDevice) Write(p []byte) (int, error) {
	if d.pcm == nil {
		return 0, fmt.Errorf("alsa: device not configured")
	}
	frames := alsa.PcmBytesToFrames(d.pcm, uint32(len(p)))
	if frames == 0 {
		return 0, nil
	}
	whole := int(alsa.PcmFramesToBytes(d.pcm, frames))

	written, err := d.pcm.WriteI(p[:whole], frames)
	n := int(alsa.PcmFramesToBytes(d.pcm, uint32(written)))
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
			return n, fmt.Errorf("alsa: write interrupted: %w (%w)", err, ErrTransient)
		}
		return n, fmt.Errorf("alsa: write failed: %w", err)
	}
	return n, nil
}

func (d *alsaDevice) Pause() error {
	if d.pcm != nil {
		// Not every device supports hardware pause; starving the
		// device is the documented fallback.
		_ = d.pcm.Pause(true)
	}
	return nil
}

func (d *alsaDevice) Resume() error {
	if d.pcm != nil {
		if err := d.pcm.Pause(false); err != nil {
			_ = d.pcm.Resume()
		}
	}
	return nil
}

func (d *alsaDevice) Drain() error {
	if d.pcm == nil {
		return nil
	}
	if err := d.pcm.Drain(); err != nil {
		return fmt.Errorf("alsa: drain failed: %w", err)
	}
	// Drain leaves the stream in SETUP state; make it writable again.
	if err := d.pcm.Prepare(); err != nil {
		return fmt.Errorf("alsa: failed to prepare after drain: %w", err)
	}
	return nil
}

func (d *alsaDevice) Drop() error {
	if d.pcm == nil {
		return nil
	}
	if err := d.pcm.Stop(); err != nil {
		return fmt.Errorf("alsa: stop failed: %w", err)
	}
	if err := d.pcm.Prepare(); err != nil {
		return fmt.Errorf("alsa: failed to prepare after drop: %w", err)
	}
	return nil
}

func (d *alsaDevice) Close() error {
	if d.pcm == nil {
		return nil
	}
	err := d.pcm.Close()
	d.pcm = nil
	if err != nil {
		return fmt.Errorf("alsa: close failed: %w", err)
	}
	return nil
}
