// Package ds18b20 reads a DS18B20 thermometer exposed by the Linux w1 kernel driver.
//
// The kernel creates one directory per 1-Wire device under /sys/bus/w1/devices,
// named <family>-<serial>. The w1_slave file of a thermometer looks like
//  72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//  72 01 4b 46 7f ff 0e 10 57 t=23125
// where t is the temperature in m°C.
package ds18b20

import (
	"bufio"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("ds18b20: no matching device directory")
	ErrShortRead = errors.New("ds18b20: w1_slave has less than 2 lines")
	ErrMalformed = errors.New("ds18b20: w1_slave has no t= value")
	ErrCRC       = errors.New("ds18b20: crc check failed")
)

const (
	// SysfsRoot is the directory of the w1 kernel driver devices.
	SysfsRoot = "/sys/bus/w1/devices"
	// Family is the family code of the DS18B20.
	Family = 28

	slaveFile = "w1_slave"
)

// Driver reads the temperature of one discovered device.
// It is not safe for concurrent use.
type Driver struct {
	fsys   fs.FS
	dir    string
	family uint64
	crc    bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithFamily selects devices of another family code.
func WithFamily(family uint64) Option {
	return func(d *Driver) { d.family = family }
}

// WithCRCCheck rejects readings the kernel marked with a failed crc.
func WithCRCCheck() Option {
	return func(d *Driver) { d.crc = true }
}

// New discovers the device in fsys, which is the root of the w1 device tree.
// The device directory is resolved once, New returns ErrNotFound if there is none.
func New(fsys fs.FS, opts ...Option) (*Driver, error) {
	d := &Driver{fsys: fsys, family: Family}
	for _, o := range opts {
		o(d)
	}

	dir, err := Discover(fsys, d.family)
	if err != nil {
		return nil, err
	}

	d.dir = dir
	return d, nil
}

// Discover returns the first directory in the root of fsys whose name starts with
// "<family>-". The order is the order of fs.ReadDir; only the first match is used.
func Discover(fsys fs.FS, family uint64) (string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", ErrNotFound
	}

	for _, e := range entries {
		prefix, _, found := strings.Cut(e.Name(), "-")
		if !found {
			continue
		}
		n, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil || n != family {
			continue
		}
		// sysfs device entries are symlinks, Stat follows them
		fi, err := fs.Stat(fsys, e.Name())
		if err != nil || !fi.IsDir() {
			continue
		}
		return e.Name(), nil
	}

	return "", ErrNotFound
}

// Path returns the device directory relative to the root.
func (d *Driver) Path() string {
	return d.dir
}

// ReadTemperature reads w1_slave and returns the temperature in °C.
func (d *Driver) ReadTemperature() (float64, error) {
	name := path.Join(d.dir, slaveFile)

	f, err := d.fsys.Open(name)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", name)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	s := bufio.NewScanner(f)
	for len(lines) < 2 && s.Scan() {
		lines = append(lines, s.Text())
	}
	if err = s.Err(); err != nil {
		return 0, errors.Wrapf(err, "read %s", name)
	}
	if len(lines) < 2 {
		return 0, ErrShortRead
	}

	if d.crc && !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, ErrCRC
	}

	return parseTemperature(lines[1])
}

// parseTemperature converts the t=<m°C> part of the data line to °C.
func parseTemperature(line string) (float64, error) {
	i := strings.Index(line, "t=")
	if i < 0 {
		return 0, ErrMalformed
	}

	v := line[i+2:]
	milli, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid temperature %q", v)
	}

	return float64(milli) / 1000.0, nil
}
