// ABOUTME: Output driver contract and registry
// ABOUTME: Defines the Driver/Device interfaces and name-based selection
// Package driver defines the capability contract every output backend
// implements and a registry to select one by name.
//
// Backends register themselves at init time. Callers usually go
// through driver.Open with a comma-separated preference list:
//
//	dev, name, err := driver.Open("alsa,oto", "")
//
// An empty list tries every registered backend in registration order.
// All device I/O in the playback engine is confined to the Device
// methods; nothing else touches the platform audio APIs.
package driver
