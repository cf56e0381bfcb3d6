// ABOUTME: Buffered PCM playback engine package
// ABOUTME: Public handle API: open, start, play, pause, drain, close
// Package outflow plays continuous streams of interleaved PCM audio on
// a platform output device, absorbing scheduling jitter in the calling
// process.
//
// The basic flow: create a handle with New, pick a driver and device
// with Open, optionally ask the device what it supports with
// Encodings, then commit to a format with Start and feed data with
// Play. Play blocks while the device (or the optional decoupling
// buffer) is full, so a producer that generates audio slightly faster
// than real time gets its timing from the blocking itself.
//
//	out := outflow.New()
//	if err := out.SetBuffer(1 << 16); err != nil { ... }
//	if err := out.Open("", ""); err != nil { ... }
//	if err := out.Start(audio.Signed16, 2, 44100); err != nil { ... }
//	defer out.Close()
//	for chunk := range pcmChunks {
//	    if _, err := out.Play(chunk); err != nil { ... }
//	}
//	out.Drain()
//
// With SetBuffer a dedicated worker goroutine owns the device and
// drains a fixed-capacity ring buffer, decoupling production from
// playback; without it, all device I/O happens synchronously in the
// caller's goroutine. A handle must be driven by one goroutine at a
// time.
package outflow
