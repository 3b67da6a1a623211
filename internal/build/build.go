// Package build holds build-time information.
package build

// Version is overwritten by linker flags.
var Version = "dev"
