// Package version holds the build version of the action runner.
package version

// Version is overridden at build time with
// -ldflags "-X github.com/xiaot623/gogo/actionrunner/internal/version.Version=...".
var Version = "0.1.0"
