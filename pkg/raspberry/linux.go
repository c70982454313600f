//go:build linux

package raspberry

import (
	"github.com/pkg/errors"
	"github.com/warthog618/gpiod"
)

// Line is a requested gpio output line.
type Line struct {
	chip *gpiod.Chip
	line *gpiod.Line
}

func openLine(chip string, offset int) (LED, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer("saunamon"))
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", chip)
	}

	l, err := c.RequestLine(offset, gpiod.AsOutput(0))
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrapf(err, "request line %d of %s", offset, chip)
	}

	return &Line{chip: c, line: l}, nil
}

// Set drives the line.
func (l *Line) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return l.line.SetValue(v)
}

// Close releases the line and the chip.
func (l *Line) Close() error {
	err := l.line.Close()
	if e := l.chip.Close(); err == nil {
		err = e
	}
	return err
}
