// ABOUTME: Entry point for the outflow command line player
// ABOUTME: Plays raw PCM from stdin or a generated test tone
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/outflow-audio/outflow-go/internal/tone"
	"github.com/outflow-audio/outflow-go/internal/version"
	"github.com/outflow-audio/outflow-go/pkg/audio"
	"github.com/outflow-audio/outflow-go/pkg/outflow"
)

var (
	driverList    = flag.String("driver", "", "Comma-separated driver preference list (default: try all)")
	device        = flag.String("device", "", "Device name for the selected driver")
	rate          = flag.Int("rate", 44100, "Sample rate in Hz")
	channels      = flag.Int("channels", 2, "Channel count")
	encoding      = flag.String("encoding", "s16", "Sample encoding (s8 u8 s16 u16 s24 u24 s32 u32 f32 f64)")
	bufferSize    = flag.Int("buffer", 1<<16, "Decoupling buffer size in bytes, 0 disables buffering")
	preload       = flag.Float64("preload", -1, "Buffer preload fraction 0..1 (default: engine default)")
	deviceBuffer  = flag.Float64("device-buffer", 0, "Advisory device buffer duration in seconds")
	toneHz        = flag.Float64("tone", 0, "Generate a sine test tone at this frequency instead of reading stdin")
	duration      = flag.Duration("duration", 0, "Stop after this long (0: play until EOF or interrupt)")
	listDrivers   = flag.Bool("list-drivers", false, "Print registered drivers and exit")
	listEncodings = flag.Bool("list-encodings", false, "Print encodings the device supports and exit")
	quiet         = flag.Bool("quiet", false, "Suppress engine log output")
	verbose       = flag.Int("verbose", 0, "Engine log verbosity")
	logFile       = flag.String("log-file", "", "Also append logs to this file")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return
	}

	// Set up logging
	log.SetOutput(os.Stderr)
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer func() { _ = f.Close() }()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	if *listDrivers {
		for _, name := range outflow.Drivers() {
			fmt.Println(name)
		}
		return
	}

	enc := audio.ParseEncoding(*encoding)
	if enc == 0 {
		log.Fatalf("unknown -encoding %q", *encoding)
	}

	out := outflow.New()
	flags := outflow.FlagKeepPlaying
	if *quiet {
		flags |= outflow.FlagQuiet
	}
	out.SetFlags(flags)
	out.SetVerbose(*verbose)
	if *preload >= 0 {
		out.SetPreload(*preload)
	}
	if *deviceBuffer > 0 {
		if err := out.SetDeviceBuffer(*deviceBuffer); err != nil {
			log.Fatalf("bad -device-buffer: %v", err)
		}
	}
	if *bufferSize > 0 {
		if err := out.SetBuffer(*bufferSize); err != nil {
			log.Fatalf("buffer setup failed: %v", err)
		}
	}

	if err := out.Open(*driverList, *device); err != nil {
		log.Fatalf("open failed: %v", err)
	}
	defer out.Close()

	if *listEncodings {
		mask, err := out.Encodings(*channels, *rate)
		if err != nil {
			log.Fatalf("encoding query failed: %v", err)
		}
		fmt.Printf("%s supports at %d channels, %d Hz: %v\n", out.Driver(), *channels, *rate, mask)
		return
	}

	if err := out.Start(enc, *channels, *rate); err != nil {
		log.Fatalf("start failed: %v", err)
	}
	log.Printf("Playing on %s: %v, %d channels, %d Hz", out.Driver(), enc, *channels, *rate)

	format := audio.Format{Encoding: enc, Channels: *channels, Rate: *rate}

	var src io.Reader = os.Stdin
	if *toneHz > 0 {
		g, err := tone.New(format, *toneHz, 0.5)
		if err != nil {
			log.Fatalf("tone setup failed: %v", err)
		}
		src = g
	}
	if *duration > 0 {
		limit := int64(duration.Seconds() * float64(*rate))
		limit *= int64(format.FrameSize())
		src = io.LimitReader(src, limit)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interrupted := false
	buf := make([]byte, 8192)
loop:
	for {
		select {
		case <-sigChan:
			interrupted = true
			break loop
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, perr := out.Play(buf[:n]); perr != nil {
				log.Fatalf("playback failed: %v", perr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read failed: %v", err)
		}
	}

	if interrupted {
		// Cut playback short for quick response to the interrupt.
		log.Printf("Shutdown signal received")
		if err := out.Drop(); err != nil {
			log.Printf("drop failed: %v", err)
		}
		return
	}

	if err := out.Drain(); err != nil {
		log.Fatalf("drain failed: %v", err)
	}
	log.Printf("Playback finished")
}
