// ABOUTME: Tests for the driver registry
// ABOUTME: Verifies registration, lookup and candidate-list opening
package driver

import (
	"errors"
	"fmt"
	"testing"

	"github.com/outflow-audio/outflow-go/pkg/audio"
)

type fakeDriver struct {
	name    string
	openErr error
	opened  []string
}

func (f *fakeDriver) Name() string { return f.name }

func (f *fakeDriver) Open(device string) (Device, error) {
	f.opened = append(f.opened, device)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeDevice{}, nil
}

type fakeDevice struct{}

func (*fakeDevice) Encodings(channels, rate int) (audio.Encoding, error) {
	return audio.Signed16, nil
}
func (*fakeDevice) Configure(f audio.Format) error { return nil }
func (*fakeDevice) Write(p []byte) (int, error)    { return len(p), nil }
func (*fakeDevice) Pause() error                   { return nil }
func (*fakeDevice) Resume() error                  { return nil }
func (*fakeDevice) Drain() error                   { return nil }
func (*fakeDevice) Drop() error                    { return nil }
func (*fakeDevice) Close() error                   { return nil }

func TestRegisterAndLookup(t *testing.T) {
	d := &fakeDriver{name: "fake-lookup"}
	Register(d)

	got, ok := Lookup("fake-lookup")
	if !ok {
		t.Fatal("Lookup failed for registered driver")
	}
	if got.Name() != "fake-lookup" {
		t.Errorf("Name = %q, want %q", got.Name(), "fake-lookup")
	}

	found := false
	for _, name := range Names() {
		if name == "fake-lookup" {
			found = true
		}
	}
	if !found {
		t.Error("Names() missing registered driver")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register(&fakeDriver{name: "fake-dup"})
	Register(&fakeDriver{name: "fake-dup"})
}

func TestOpenPreferenceOrder(t *testing.T) {
	broken := &fakeDriver{name: "fake-broken", openErr: errors.New("no hardware")}
	working := &fakeDriver{name: "fake-working"}
	Register(broken)
	Register(working)

	dev, name, err := Open("fake-broken,fake-working", "dev0")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dev == nil {
		t.Fatal("Open returned nil device")
	}
	if name != "fake-working" {
		t.Errorf("selected %q, want %q", name, "fake-working")
	}
	if len(broken.opened) != 1 || broken.opened[0] != "dev0" {
		t.Errorf("broken driver open attempts = %v", broken.opened)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, _, err := Open("no-such-driver", "")
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestOpenMixedUnknownAndFailing(t *testing.T) {
	failing := &fakeDriver{name: "fake-failing", openErr: errors.New("device busy today")}
	Register(failing)

	_, _, err := Open("no-such-driver,fake-failing", "")
	if err == nil {
		t.Fatal("expected error")
	}
	// A known driver was tried, so this is a load failure, not a bad name.
	if errors.Is(err, ErrUnknownDriver) {
		t.Errorf("err = %v, should not be ErrUnknownDriver", err)
	}
}

func TestOpenListParsing(t *testing.T) {
	d := &fakeDriver{name: "fake-spaces"}
	Register(d)

	if _, name, err := Open("  , fake-spaces ,", "x"); err != nil || name != "fake-spaces" {
		t.Errorf("Open = (%q, %v), want fake-spaces", name, err)
	}
}

func TestIsTransient(t *testing.T) {
	wrapped := fmt.Errorf("backend hiccup: %w", ErrTransient)
	if !IsTransient(wrapped) {
		t.Error("wrapped ErrTransient not detected")
	}
	if IsTransient(errors.New("fatal")) {
		t.Error("plain error reported transient")
	}
}
