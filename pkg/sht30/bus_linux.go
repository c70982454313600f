//go:build linux

package sht30

import (
	"fmt"

	i2c "github.com/d2r2/go-i2c"
	logger "github.com/d2r2/go-logger"
	"github.com/pkg/errors"
)

// i2cBus is a Bus on a Linux i2c-dev device.
type i2cBus struct {
	conn *i2c.I2C
}

// SetBusTrace switches the per transfer logging of the i2c bus on or off.
func SetBusTrace(on bool) {
	level := logger.InfoLevel
	if on {
		level = logger.DebugLevel
	}
	_ = logger.ChangePackageLogLevel("i2c", level)
}

// OpenBus opens /dev/i2c-<bus> and selects device addr.
func OpenBus(bus int, addr uint8) (Bus, error) {
	conn, err := i2c.NewI2C(addr, bus)
	if err != nil {
		return nil, errors.Wrapf(err, "open i2c-%d address 0x%02x", bus, addr)
	}
	return &i2cBus{conn: conn}, nil
}

func (b *i2cBus) WriteReg(reg byte, data []byte) error {
	buf := append([]byte{reg}, data...)
	n, err := b.conn.WriteBytes(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(buf))
	}
	return nil
}

func (b *i2cBus) ReadReg(reg byte, buf []byte) error {
	if _, err := b.conn.WriteBytes([]byte{reg}); err != nil {
		return err
	}
	n, err := b.conn.ReadBytes(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short read: %d of %d bytes", n, len(buf))
	}
	return nil
}

func (b *i2cBus) Close() error {
	return b.conn.Close()
}
