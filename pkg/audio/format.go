// ABOUTME: PCM encoding and format definitions
// ABOUTME: Defines the encoding bitmask, sample sizes and the Format triple
package audio

import "strings"

// Encoding identifies a PCM sample representation. Encodings combine
// into bitmasks, so a driver can report everything it supports in a
// single value. Only the low bits are used; a negative value never
// matches any encoding.
type Encoding int

const (
	// Signed16 is signed 16-bit native-endian PCM, the usual default.
	Signed16 Encoding = 1 << iota
	Unsigned16
	Signed8
	Unsigned8
	Signed24
	Unsigned24
	Signed32
	Unsigned32
	Float32
	Float64

	// EncodingAny is the union of all known encodings.
	EncodingAny = Signed16 | Unsigned16 | Signed8 | Unsigned8 |
		Signed24 | Unsigned24 | Signed32 | Unsigned32 | Float32 | Float64
)

var encodingNames = []struct {
	enc  Encoding
	name string
}{
	{Signed16, "s16"},
	{Unsigned16, "u16"},
	{Signed8, "s8"},
	{Unsigned8, "u8"},
	{Signed24, "s24"},
	{Unsigned24, "u24"},
	{Signed32, "s32"},
	{Unsigned32, "u32"},
	{Float32, "f32"},
	{Float64, "f64"},
}

// SampleSize returns the storage size of one sample in bytes, or 0 for
// an unknown encoding.
func (e Encoding) SampleSize() int {
	switch e {
	case Signed8, Unsigned8:
		return 1
	case Signed16, Unsigned16:
		return 2
	case Signed24, Unsigned24:
		return 3
	case Signed32, Unsigned32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// String returns the short name of a single encoding ("s16", "f32"...)
// or a comma-joined list for a mask of several.
func (e Encoding) String() string {
	var names []string
	for _, en := range encodingNames {
		if e&en.enc != 0 {
			names = append(names, en.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// ParseEncoding resolves a short encoding name to its Encoding value.
// Returns 0 for unknown names.
func ParseEncoding(name string) Encoding {
	for _, en := range encodingNames {
		if en.name == name {
			return en.enc
		}
	}
	return 0
}

// Format describes a PCM stream: one encoding, a channel count and a
// sample rate in Hz.
type Format struct {
	Encoding Encoding
	Channels int
	Rate     int
}

// FrameSize returns the byte size of one frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.Encoding.SampleSize() * f.Channels
}

// Valid reports whether the format names exactly one known encoding,
// at least one channel and a positive rate.
func (f Format) Valid() bool {
	return f.Encoding.SampleSize() > 0 &&
		f.Encoding&(f.Encoding-1) == 0 &&
		f.Channels >= 1 && f.Rate > 0
}
