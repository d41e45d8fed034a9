// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// App is the canonical application identifier used for filesystem paths and CLI branding.
	App = "reelscout"

	// Version is the current application semantic version string.
	Version = "0.3.0"

	// SearchReferer is sent as the Referer of direct requests so they look like organic search traffic.
	SearchReferer = "https://www.google.com/"
)

// Build metadata, populated through -ldflags.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
