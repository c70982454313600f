// Package sht30 reads temperature and relative humidity from a Sensirion SHT30 on the I²C bus.
//
// Every read triggers a fresh single shot measurement:
//  write 0x06 to command register 0x2C (high repeatability, clock stretching)
//  wait 200ms
//  read 6 bytes from register 0x00: T(msb) T(lsb) crc RH(msb) RH(lsb) crc
//  wait 200ms
package sht30

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrCRC         = errors.New("sht30: crc mismatch")
	ErrUnsupported = errors.New("sht30: i2c bus not supported on this platform")
)

const (
	// Address is the default bus address (ADDR pin low).
	Address = 0x44

	cmdMeasure = 0x2C
	cmdHigh    = 0x06
	regRead    = 0x00

	// settle is waited after the trigger and again after the read.
	settle    = 200 * time.Millisecond
	blockSize = 6

	// values returned in simulation mode
	simTemperature = 12.3
	simHumidity    = 45.6
)

// Bus is a connection to one device on an I²C bus.
// The device address is selected when the bus is opened.
type Bus interface {
	// WriteReg writes data to register reg.
	WriteReg(reg byte, data []byte) error
	// ReadReg fills buf starting at register reg.
	ReadReg(reg byte, buf []byte) error
	Close() error
}

// Driver is the SHT30 handler. A Driver without a bus runs in simulation mode.
// It is not safe for concurrent use.
type Driver struct {
	bus   Bus
	sleep func(time.Duration)
	crc   bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithSleep replaces time.Sleep for the settle waits.
func WithSleep(f func(time.Duration)) Option {
	return func(d *Driver) { d.sleep = f }
}

// WithCRC enables checking the crc of both data words.
func WithCRC() Option {
	return func(d *Driver) { d.crc = true }
}

// New returns a driver talking to the sensor over bus.
func New(bus Bus, opts ...Option) *Driver {
	d := &Driver{bus: bus, sleep: time.Sleep}
	for _, o := range opts {
		o(d)
	}
	return d
}

// NewSimulated returns a driver without a bus, returning fixed values.
func NewSimulated() *Driver {
	return &Driver{sleep: time.Sleep}
}

// Simulated reports whether the driver has no bus.
func (d *Driver) Simulated() bool {
	return d.bus == nil
}

// ReadTemperature triggers a measurement and returns the temperature in °C.
func (d *Driver) ReadTemperature() (float64, error) {
	if d.bus == nil {
		return simTemperature, nil
	}

	b, err := d.measure()
	if err != nil {
		return 0, errors.Wrap(err, "read temperature")
	}
	return DecodeTemperature(binary.BigEndian.Uint16(b[0:2])), nil
}

// ReadHumidity triggers a measurement and returns the relative humidity in %.
func (d *Driver) ReadHumidity() (float64, error) {
	if d.bus == nil {
		return simHumidity, nil
	}

	b, err := d.measure()
	if err != nil {
		return 0, errors.Wrap(err, "read humidity")
	}
	return DecodeHumidity(binary.BigEndian.Uint16(b[3:5])), nil
}

// Close releases the bus.
func (d *Driver) Close() error {
	if d.bus == nil {
		return nil
	}
	return d.bus.Close()
}

// measure runs one trigger/settle/read/settle cycle.
func (d *Driver) measure() ([blockSize]byte, error) {
	var b [blockSize]byte

	if err := d.bus.WriteReg(cmdMeasure, []byte{cmdHigh}); err != nil {
		return b, errors.Wrap(err, "trigger measurement")
	}
	d.sleep(settle)

	if err := d.bus.ReadReg(regRead, b[:]); err != nil {
		return b, errors.Wrap(err, "read register block")
	}
	d.sleep(settle)

	if d.crc {
		if crc8(b[0:2]) != b[2] || crc8(b[3:5]) != b[5] {
			return b, ErrCRC
		}
	}
	return b, nil
}

// DecodeTemperature converts a raw temperature word to °C (-45 .. 130).
func DecodeTemperature(raw uint16) float64 {
	return -45.0 + 175.0*float64(raw)/65535.0
}

// DecodeHumidity converts a raw humidity word to %RH (0 .. 100).
func DecodeHumidity(raw uint16) float64 {
	return 100.0 * float64(raw) / 65535.0
}

// crc8 is the datasheet checksum: polynomial 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
