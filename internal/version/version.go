// Package version provides build and version information for Hellevator.
package version

// Version is the current release version of Hellevator.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/AaronLay10/Hellevator/internal/version.Version=x.y.z"
var Version = "0.3.0"
