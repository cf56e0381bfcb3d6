// ABOUTME: Name-keyed registry of output drivers
// ABOUTME: Handles registration and candidate-list device opening
package driver

import (
	"fmt"
	"strings"
	"sync"
)

var (
	regMu    sync.RWMutex
	registry = make(map[string]Driver)
	order    []string
)

// Register makes a driver selectable by name. It is intended to be
// called from init functions and panics on a nil driver or a duplicate
// name, like database/sql.Register.
func Register(d Driver) {
	regMu.Lock()
	defer regMu.Unlock()

	if d == nil {
		panic("driver: Register driver is nil")
	}
	name := d.Name()
	if _, dup := registry[name]; dup {
		panic("driver: Register called twice for driver " + name)
	}
	registry[name] = d
	order = append(order, name)
}

// Lookup returns the driver registered under name.
func Lookup(name string) (Driver, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Names returns all registered driver names in registration order.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	return append([]string(nil), order...)
}

// Open tries each driver from a comma-separated preference list and
// opens the given device on the first one that works. An empty list
// tries every registered driver in registration order. It returns the
// open device and the name of the driver that provided it.
//
// When none of the candidate names is registered, the error wraps
// ErrUnknownDriver. When a known driver fails to open the device, the
// last open failure is returned.
func Open(drivers, device string) (Device, string, error) {
	candidates := splitList(drivers)
	if len(candidates) == 0 {
		candidates = Names()
	}
	if len(candidates) == 0 {
		return nil, "", fmt.Errorf("driver: no drivers registered")
	}

	var openErr error
	known := 0
	for _, name := range candidates {
		d, ok := Lookup(name)
		if !ok {
			continue
		}
		known++
		dev, err := d.Open(device)
		if err != nil {
			openErr = fmt.Errorf("driver %s: %w", name, err)
			continue
		}
		return dev, name, nil
	}

	if known == 0 {
		return nil, "", fmt.Errorf("driver: no match for %q: %w", drivers, ErrUnknownDriver)
	}
	return nil, "", openErr
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
