// ABOUTME: Audio fundamentals package providing core types
// ABOUTME: Defines PCM encodings, sample sizes and stream formats
// Package audio provides fundamental PCM types shared by the playback
// engine and its output drivers.
//
// This package defines the Encoding bitmask describing sample
// representations and the Format triple (encoding, channels, rate)
// that drivers are configured with.
//
// Example:
//
//	format := audio.Format{
//	    Encoding: audio.Signed16,
//	    Channels: 2,
//	    Rate:     44100,
//	}
//	frameBytes := format.FrameSize() // 4
package audio
