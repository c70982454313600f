// Package platform tells whether the binary was built for the sauna's Raspberry Pi.
//
// The answer only depends on build metadata, so it never changes while the
// process runs. It is consulted once at startup to pick the hardware providers
// (real I²C bus and sysfs, or simulated values and a fixture directory).
package platform

import (
	"fmt"
	"runtime"
)

const (
	targetArch = "arm"
	targetOS   = "linux"
	targetLibc = "gnu"
)

// Simulation modes accepted by Resolve.
const (
	ModeAuto = "auto"
	ModeOn   = "on"
	ModeOff  = "off"
)

// Facts holds the three build facts that must all match the deployment target.
type Facts struct {
	Arch bool
	OS   bool
	Libc bool
}

// Current returns the facts of the running binary.
func Current() Facts {
	return Facts{
		Arch: runtime.GOARCH == targetArch,
		OS:   runtime.GOOS == targetOS,
		Libc: libc == targetLibc,
	}
}

// Target reports whether all facts match.
func (f Facts) Target() bool {
	return f.Arch && f.OS && f.Libc
}

// IsTarget reports whether the binary runs on the deployment target.
func IsTarget() bool {
	return Current().Target()
}

// Resolve maps a simulation mode to "use real hardware".
//  auto ... real hardware only on the deployment target
//  on   ... always simulate
//  off  ... always use real hardware
func Resolve(mode string) (bool, error) {
	switch mode {
	case ModeAuto, "":
		return IsTarget(), nil
	case ModeOn:
		return false, nil
	case ModeOff:
		return true, nil
	}
	return false, fmt.Errorf("invalid simulation mode %q", mode)
}
