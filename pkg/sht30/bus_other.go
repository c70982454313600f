//go:build !linux

package sht30

// OpenBus is not available off Linux, use NewSimulated instead.
func OpenBus(bus int, addr uint8) (Bus, error) {
	return nil, ErrUnsupported
}

// SetBusTrace does nothing, there is no i2c bus off Linux.
func SetBusTrace(on bool) {}
