// ABOUTME: Sine wave test tone generator
// ABOUTME: Produces interleaved PCM bytes in any engine-supported encoding
package tone

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

// Generator produces a continuous sine tone as interleaved PCM bytes,
// ready to hand to the playback engine. It keeps phase across calls so
// consecutive reads form one uninterrupted waveform.
type Generator struct {
	format    audio.Format
	frequency float64
	amplitude float64

	sampleIndex uint64
}

// New creates a generator for the given output format. Amplitude is a
// linear factor in (0, 1]; 0.5 is a comfortable test level.
func New(f audio.Format, frequency, amplitude float64) (*Generator, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid format %v/%dch/%dHz", f.Encoding, f.Channels, f.Rate)
	}
	if frequency <= 0 || frequency >= float64(f.Rate)/2 {
		return nil, fmt.Errorf("frequency %g Hz outside (0, %d)", frequency, f.Rate/2)
	}
	if amplitude <= 0 || amplitude > 1 {
		return nil, fmt.Errorf("amplitude %g outside (0, 1]", amplitude)
	}
	return &Generator{format: f, frequency: frequency, amplitude: amplitude}, nil
}

// Read fills p with the next slice of the waveform and returns the
// number of bytes written, always a multiple of the frame size.
func (g *Generator) Read(p []byte) (int, error) {
	frameSize := g.format.FrameSize()
	frames := len(p) / frameSize

	off := 0
	for i := 0; i < frames; i++ {
		t := float64(g.sampleIndex+uint64(i)) / float64(g.format.Rate)
		v := g.amplitude * math.Sin(2*math.Pi*g.frequency*t)

		// Duplicate the sample to every channel.
		for c := 0; c < g.format.Channels; c++ {
			off += g.putSample(p[off:], v)
		}
	}
	g.sampleIndex += uint64(frames)

	return off, nil
}

// putSample encodes one float sample at the head of p and returns the
// encoded size. Multi-byte encodings are little-endian.
func (g *Generator) putSample(p []byte, v float64) int {
	switch g.format.Encoding {
	case audio.Signed8:
		p[0] = byte(int8(v * math.MaxInt8))
	case audio.Unsigned8:
		p[0] = byte(int8(v*math.MaxInt8)) ^ 0x80
	case audio.Signed16:
		binary.LittleEndian.PutUint16(p, uint16(int16(v*math.MaxInt16)))
	case audio.Unsigned16:
		binary.LittleEndian.PutUint16(p, uint16(int16(v*math.MaxInt16))^0x8000)
	case audio.Signed24:
		s := int32(v * (1<<23 - 1))
		p[0] = byte(s)
		p[1] = byte(s >> 8)
		p[2] = byte(s >> 16)
	case audio.Unsigned24:
		s := int32(v*(1<<23-1)) ^ (1 << 23)
		p[0] = byte(s)
		p[1] = byte(s >> 8)
		p[2] = byte(s >> 16)
	case audio.Signed32:
		binary.LittleEndian.PutUint32(p, uint32(int32(v*math.MaxInt32)))
	case audio.Unsigned32:
		binary.LittleEndian.PutUint32(p, uint32(int32(v*math.MaxInt32))^0x80000000)
	case audio.Float32:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	case audio.Float64:
		binary.LittleEndian.PutUint64(p, math.Float64bits(v))
	}
	return g.format.Encoding.SampleSize()
}
