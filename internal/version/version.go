// Package version carries the release version of imgio.
package version

// Version is the release version. Overridden at link time with
// -ldflags "-X github.com/AnyUserName/imgio/internal/version.Version=...".
var Version = "0.1.0"
