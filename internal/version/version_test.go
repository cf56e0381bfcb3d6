// ABOUTME: Tests for version constants
// ABOUTME: Guards against empty or malformed release information
package version

import (
	"strings"
	"testing"
)

func TestConstantsNonEmpty(t *testing.T) {
	for name, value := range map[string]string{
		"Version":      Version,
		"Product":      Product,
		"Manufacturer": Manufacturer,
	} {
		if value == "" {
			t.Errorf("%s is empty", name)
		}
		if len(value) > 100 {
			t.Errorf("%s is unreasonably long (%d chars)", name, len(value))
		}
	}
}

func TestVersionLooksLikeSemver(t *testing.T) {
	// Either a dotted release like "0.1.0" or a placeholder like "dev".
	if Version != "dev" && strings.Count(Version, ".") != 2 {
		t.Errorf("Version = %q, want x.y.z or \"dev\"", Version)
	}
	if strings.ContainsAny(Version, " \t\n") {
		t.Errorf("Version %q contains whitespace", Version)
	}
}
