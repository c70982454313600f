package sht30

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"testing/quick"
	"time"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// fakeBus records bus traffic and serves a fixed register block.
type fakeBus struct {
	block    [blockSize]byte
	writeErr error
	readErr  error
	ops      []string
	closed   bool
}

func (f *fakeBus) WriteReg(reg byte, data []byte) error {
	f.ops = append(f.ops, fmt.Sprintf("write 0x%02x %x", reg, data))
	return f.writeErr
}

func (f *fakeBus) ReadReg(reg byte, buf []byte) error {
	f.ops = append(f.ops, fmt.Sprintf("read 0x%02x %d", reg, len(buf)))
	if f.readErr != nil {
		return f.readErr
	}
	copy(buf, f.block[:])
	return nil
}

func (f *fakeBus) Close() error {
	f.closed = true
	return nil
}

// newBlock builds a register block with valid checksums.
func newBlock(t, rh uint16) [blockSize]byte {
	b := [blockSize]byte{byte(t >> 8), byte(t), 0, byte(rh >> 8), byte(rh), 0}
	b[2] = crc8(b[0:2])
	b[5] = crc8(b[3:5])
	return b
}

func newTestDriver(bus *fakeBus, sleeps *[]time.Duration, opts ...Option) *Driver {
	opts = append(opts, WithSleep(func(d time.Duration) {
		*sleeps = append(*sleeps, d)
		bus.ops = append(bus.ops, "sleep "+d.String())
	}))
	return New(bus, opts...)
}

func TestDecodeTemperature(t *testing.T) {
	if err := quick.Check(func(r uint16) bool {
		return floatEquals(DecodeTemperature(r), -45.0+175.0*float64(r)/65535.0)
	}, nil); err != nil {
		t.Error(err)
	}

	if err := quick.Check(func(r uint16) bool {
		if r == math.MaxUint16 {
			return true
		}
		return DecodeTemperature(r+1) > DecodeTemperature(r)
	}, nil); err != nil {
		t.Errorf("not monotonic: %v", err)
	}

	if got := DecodeTemperature(0); !floatEquals(got, -45) {
		t.Errorf("DecodeTemperature(0) = %v want -45", got)
	}
	if got := DecodeTemperature(65535); !floatEquals(got, 130) {
		t.Errorf("DecodeTemperature(65535) = %v want 130", got)
	}
}

func TestDecodeHumidity(t *testing.T) {
	if err := quick.Check(func(r uint16) bool {
		return floatEquals(DecodeHumidity(r), 100.0*float64(r)/65535.0)
	}, nil); err != nil {
		t.Error(err)
	}

	if got := DecodeHumidity(0); !floatEquals(got, 0) {
		t.Errorf("DecodeHumidity(0) = %v want 0", got)
	}
	if got := DecodeHumidity(65535); !floatEquals(got, 100) {
		t.Errorf("DecodeHumidity(65535) = %v want 100", got)
	}
}

func TestSimulated(t *testing.T) {
	d := NewSimulated()
	if !d.Simulated() {
		t.Fatal("NewSimulated driver is not simulated")
	}

	for i := 0; i < 3; i++ {
		h, err := d.ReadHumidity()
		if err != nil || h != 45.6 {
			t.Errorf("ReadHumidity() = %v, %v want 45.6", h, err)
		}
		temp, err := d.ReadTemperature()
		if err != nil || temp != 12.3 {
			t.Errorf("ReadTemperature() = %v, %v want 12.3", temp, err)
		}
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestReadTemperature(t *testing.T) {
	bus := &fakeBus{block: newBlock(0x6666, 0x8000)}
	var sleeps []time.Duration
	d := newTestDriver(bus, &sleeps)

	got, err := d.ReadTemperature()
	if err != nil {
		t.Fatal(err)
	}
	if want := DecodeTemperature(0x6666); !floatEquals(got, want) {
		t.Errorf("ReadTemperature() = %v want %v", got, want)
	}

	wantOps := []string{"write 0x2c 06", "sleep 200ms", "read 0x00 6", "sleep 200ms"}
	if !reflect.DeepEqual(bus.ops, wantOps) {
		t.Errorf("bus ops = %q want %q", bus.ops, wantOps)
	}
}

func TestReadHumidity(t *testing.T) {
	bus := &fakeBus{block: newBlock(0x6666, 0x8000)}
	var sleeps []time.Duration
	d := newTestDriver(bus, &sleeps)

	got, err := d.ReadHumidity()
	if err != nil {
		t.Fatal(err)
	}
	if want := DecodeHumidity(0x8000); !floatEquals(got, want) {
		t.Errorf("ReadHumidity() = %v want %v", got, want)
	}
}

func TestEachReadTriggers(t *testing.T) {
	bus := &fakeBus{block: newBlock(1, 2)}
	var sleeps []time.Duration
	d := newTestDriver(bus, &sleeps)

	if _, err := d.ReadTemperature(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ReadHumidity(); err != nil {
		t.Fatal(err)
	}

	if len(bus.ops) != 8 {
		t.Errorf("got %d bus ops want 8: %q", len(bus.ops), bus.ops)
	}
	if len(sleeps) != 4 {
		t.Errorf("got %d settle waits want 4", len(sleeps))
	}
	for _, s := range sleeps {
		if s != 200*time.Millisecond {
			t.Errorf("settle wait %v want 200ms", s)
		}
	}
}

func TestBusErrors(t *testing.T) {
	errBus := errors.New("remote i/o error")

	bus := &fakeBus{writeErr: errBus}
	var sleeps []time.Duration
	d := newTestDriver(bus, &sleeps)
	if _, err := d.ReadTemperature(); !errors.Is(err, errBus) {
		t.Errorf("ReadTemperature() error = %v want %v", err, errBus)
	}
	if len(sleeps) != 0 {
		t.Errorf("failed trigger waited %d times", len(sleeps))
	}

	bus = &fakeBus{readErr: errBus}
	d = newTestDriver(bus, &sleeps)
	if _, err := d.ReadHumidity(); !errors.Is(err, errBus) {
		t.Errorf("ReadHumidity() error = %v want %v", err, errBus)
	}

	// the driver recovers once the bus does
	bus.readErr = nil
	bus.block = newBlock(0, 65535)
	h, err := d.ReadHumidity()
	if err != nil || !floatEquals(h, 100) {
		t.Errorf("ReadHumidity() = %v, %v want 100", h, err)
	}
}

func TestCRC(t *testing.T) {
	if got := crc8([]byte{0xBE, 0xEF}); got != 0x92 {
		t.Errorf("crc8(0xBEEF) = 0x%02x want 0x92", got)
	}

	block := newBlock(0x1234, 0x5678)
	block[4] ^= 0x01
	bus := &fakeBus{block: block}
	var sleeps []time.Duration

	d := newTestDriver(bus, &sleeps, WithCRC())
	if _, err := d.ReadHumidity(); !errors.Is(err, ErrCRC) {
		t.Errorf("ReadHumidity() error = %v want %v", err, ErrCRC)
	}

	// without crc checking the corrupted block is decoded
	d = newTestDriver(bus, &sleeps)
	if _, err := d.ReadHumidity(); err != nil {
		t.Errorf("ReadHumidity() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	bus := &fakeBus{}
	d := New(bus)
	if d.Simulated() {
		t.Error("driver with bus is simulated")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if !bus.closed {
		t.Error("bus not closed")
	}
}
