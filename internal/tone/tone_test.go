// ABOUTME: Tests for the sine tone generator
// ABOUTME: Checks validation, framing, amplitude bounds and phase continuity
package tone

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

func TestNewValidation(t *testing.T) {
	good := audio.Format{Encoding: audio.Signed16, Channels: 2, Rate: 44100}

	tests := []struct {
		name      string
		format    audio.Format
		frequency float64
		amplitude float64
		wantErr   bool
	}{
		{"valid", good, 440, 0.5, false},
		{"invalid format", audio.Format{}, 440, 0.5, true},
		{"zero frequency", good, 0, 0.5, true},
		{"above nyquist", good, 30000, 0.5, true},
		{"zero amplitude", good, 440, 0, true},
		{"amplitude above one", good, 440, 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.format, tt.frequency, tt.amplitude)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadFillsWholeFrames(t *testing.T) {
	f := audio.Format{Encoding: audio.Signed16, Channels: 2, Rate: 44100}
	g, err := New(f, 440, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	// 10 bytes is 2 full stereo s16 frames plus a remainder.
	buf := make([]byte, 10)
	n, err := g.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Errorf("Read = %d, want 8 (whole frames only)", n)
	}
}

func TestSamplesWithinAmplitude(t *testing.T) {
	f := audio.Format{Encoding: audio.Signed16, Channels: 1, Rate: 8000}
	g, err := New(f, 1000, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 8000*2)
	n, _ := g.Read(buf)

	limit := int16(math.MaxInt16/2) + 1
	nonZero := false
	for i := 0; i < n; i += 2 {
		s := int16(binary.LittleEndian.Uint16(buf[i:]))
		if s > limit || s < -limit {
			t.Fatalf("sample %d = %d exceeds amplitude bound %d", i/2, s, limit)
		}
		if s != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Error("generator produced silence")
	}
}

func TestChannelsCarrySameSample(t *testing.T) {
	f := audio.Format{Encoding: audio.Signed16, Channels: 2, Rate: 44100}
	g, err := New(f, 440, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 400)
	n, _ := g.Read(buf)
	for i := 0; i < n; i += 4 {
		l := binary.LittleEndian.Uint16(buf[i:])
		r := binary.LittleEndian.Uint16(buf[i+2:])
		if l != r {
			t.Fatalf("frame %d: channels differ (%d vs %d)", i/4, l, r)
		}
	}
}

func TestPhaseContinuity(t *testing.T) {
	f := audio.Format{Encoding: audio.Signed16, Channels: 1, Rate: 44100}

	one, _ := New(f, 440, 0.5)
	whole := make([]byte, 512)
	one.Read(whole)

	two, _ := New(f, 440, 0.5)
	split := make([]byte, 512)
	two.Read(split[:256])
	two.Read(split[256:])

	for i := range whole {
		if whole[i] != split[i] {
			t.Fatalf("byte %d differs between one read and two", i)
		}
	}
}

func TestFloat32Encoding(t *testing.T) {
	f := audio.Format{Encoding: audio.Float32, Channels: 1, Rate: 44100}
	g, err := New(f, 440, 1)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 1024)
	n, _ := g.Read(buf)
	for i := 0; i < n; i += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(buf[i:]))
		if v < -1 || v > 1 {
			t.Fatalf("sample %d = %g out of [-1, 1]", i/4, v)
		}
	}
}
