// Package raspberry drives the status LED on a gpio line of the Raspberry Pi.
package raspberry

import "fmt"

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// LED is an output line. A disabled LED ignores all calls.
type LED interface {
	// Set drives the line high (on) or low.
	Set(on bool) error
	Close() error
}

// nopLED is returned for a disabled status LED.
type nopLED struct{}

func (nopLED) Set(bool) error { return nil }
func (nopLED) Close() error   { return nil }

// OpenLED requests line on chip (e.g. gpiochip0) as output, initially off.
// A negative line disables the LED.
func OpenLED(chip string, line int) (LED, error) {
	if line < 0 {
		return nopLED{}, nil
	}
	if chip == "" {
		return nil, ErrInvalidParam
	}
	return openLine(chip, line)
}
