// ABOUTME: Malgo-based output driver using the miniaudio library
// ABOUTME: Callback playback fed from an internal byte ring buffer
package driver

import (
	"fmt"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/outflow-audio/outflow-go/internal/ring"
	"github.com/outflow-audio/outflow-go/pkg/audio"
)

func init() {
	Register(malgoDriver{})
}

const malgoDefaultBuffer = 500 * time.Millisecond

type malgoDriver struct{}

func (malgoDriver) Name() string { return "malgo" }

func (malgoDriver) Open(device string) (Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: failed to initialize context: %w", err)
	}
	return &malgoDevice{ctx: ctx, deviceName: device}, nil
}

type malgoDevice struct {
	ctx        *malgo.AllocatedContext
	deviceName string
	device     *malgo.Device
	buf        *ring.Buffer
	format     audio.Format
	bufferHint time.Duration
	ready      bool
}

func (d *malgoDevice) SetBufferDuration(dur time.Duration) {
	d.bufferHint = dur
}

func (d *malgoDevice) Encodings(channels, rate int) (audio.Encoding, error) {
	if channels < 1 || rate <= 0 {
		return 0, fmt.Errorf("malgo: invalid query: %d channels at %d Hz", channels, rate)
	}
	return audio.Unsigned8 | audio.Signed16 | audio.Signed24 | audio.Signed32 | audio.Float32, nil
}

func malgoFormat(e audio.Encoding) (malgo.FormatType, error) {
	switch e {
	case audio.Unsigned8:
		return malgo.FormatU8, nil
	case audio.Signed16:
		return malgo.FormatS16, nil
	case audio.Signed24:
		return malgo.FormatS24, nil
	case audio.Signed32:
		return malgo.FormatS32, nil
	case audio.Float32:
		return malgo.FormatF32, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("malgo: unsupported encoding %v", e)
	}
}

func (d *malgoDevice) Configure(f audio.Format) error {
	format, err := malgoFormat(f.Encoding)
	if err != nil {
		return err
	}

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}

	hint := d.bufferHint
	if hint <= 0 {
		hint = malgoDefaultBuffer
	}
	capacity := int(float64(f.Rate*f.FrameSize()) * hint.Seconds())
	if capacity < f.FrameSize() {
		capacity = f.FrameSize()
	}
	buf, err := ring.New(capacity)
	if err != nil {
		return fmt.Errorf("malgo: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(f.Channels)
	deviceConfig.SampleRate = uint32(f.Rate)
	deviceConfig.Alsa.NoMMap = 1

	if d.deviceName != "" {
		id, err := d.findDevice(d.deviceName)
		if err != nil {
			return err
		}
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			n := buf.Read(out)
			// Zero-fill on underrun so the device plays silence.
			for i := n; i < len(out); i++ {
				out[i] = 0
			}
		},
	}

	device, err := malgo.InitDevice(d.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("malgo: failed to initialize playback device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("malgo: failed to start device: %w", err)
	}

	d.device = device
	d.buf = buf
	d.format = f
	d.ready = true
	return nil
}

func (d *malgoDevice) findDevice(name string) (malgo.DeviceID, error) {
	infos, err := d.ctx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("malgo: failed to enumerate devices: %w", err)
	}
	for _, info := range infos {
		if info.Name() == name {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("malgo: no playback device named %q", name)
}

func (d *malgoDevice) Write(p []byte) (int, error) {
	if !d.ready {
		return 0, fmt.Errorf("malgo: device not configured")
	}
	// Short writes signal a full device buffer; the engine retries.
	return d.buf.Write(p), nil
}

func (d *malgoDevice) Pause() error {
	if d.device != nil && d.device.IsStarted() {
		if err := d.device.Stop(); err != nil {
			return fmt.Errorf("malgo: failed to stop device: %w", err)
		}
	}
	return nil
}

func (d *malgoDevice) Resume() error {
	if d.device != nil && !d.device.IsStarted() {
		if err := d.device.Start(); err != nil {
			return fmt.Errorf("malgo: failed to start device: %w", err)
		}
	}
	return nil
}

func (d *malgoDevice) Drain() error {
	if d.buf == nil || d.device == nil || !d.device.IsStarted() {
		return nil
	}
	for d.buf.Occupied() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	// One more period so the callback-side remainder reaches the speaker.
	time.Sleep(20 * time.Millisecond)
	return nil
}

func (d *malgoDevice) Drop() error {
	if d.buf != nil {
		d.buf.Reset()
	}
	return nil
}

func (d *malgoDevice) Close() error {
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
	d.ready = false
	return nil
}
