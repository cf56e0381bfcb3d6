// ABOUTME: Version constants for the playback engine
// ABOUTME: Single place to bump release information
package version

const (
	// Version is the engine release version.
	Version = "0.1.0"

	// Product is the product name reported by tooling.
	Product = "Outflow"

	// Manufacturer identifies the project.
	Manufacturer = "Outflow Audio"
)
