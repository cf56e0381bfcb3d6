//go:build !portaudio

// ABOUTME: PortAudio stub when the library is not available
// ABOUTME: Keeps the driver name registered with a helpful open error
package driver

import "fmt"

func init() {
	Register(portAudioDriver{})
}

type portAudioDriver struct{}

func (portAudioDriver) Name() string { return "portaudio" }

func (portAudioDriver) Open(device string) (Device, error) {
	return nil, fmt.Errorf("portaudio support not enabled (build with -tags portaudio)")
}
