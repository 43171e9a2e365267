package ps2dev

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// busState is the three-value state of the two-wire bus, derived purely
// from the current line levels.
type busState int

const (
	busIdle busState = iota
	busInhibited
	busHostRequestToSend
)

func (s busState) String() string {
	switch s {
	case busIdle:
		return "idle"
	case busInhibited:
		return "inhibited"
	case busHostRequestToSend:
		return "host-request-to-send"
	default:
		return "unknown"
	}
}

// linkState holds the two GPIO lines and timing configuration shared by
// the bit engine and the bus-state sampler. It is embedded in Device, not
// used standalone: every Device owns exactly one pair of lines.
type linkState struct {
	clk  gpio.PinIO
	data gpio.PinIO
	cfg  Config
}

// release drives a line into its open-drain "high" state: configure it as
// an input with the pull-up doing the work, matching the original
// firmware's gohi(pin) (digitalWrite HIGH then pinMode INPUT).
func release(p gpio.PinIO) error {
	return p.In(gpio.PullUp, gpio.NoEdge)
}

// drive pulls a line low: configure it as an output and sink it, matching
// the original firmware's golo(pin) (pinMode OUTPUT_OPEN_DRAIN then
// digitalWrite LOW).
func drive(p gpio.PinIO) error {
	return p.Out(gpio.Low)
}

// state returns the current bus state by sampling both lines. It has no
// side effects.
func (l *linkState) state() busState {
	if l.clk.Read() == gpio.Low {
		return busInhibited
	}
	if l.data.Read() == gpio.Low {
		return busHostRequestToSend
	}
	return busIdle
}

// nanospin busy-waits for at least d. It must never yield the goroutine
// to the scheduler: bit-cell timing at 40us half-periods is too tight to
// survive a runtime.Gosched or a channel-based timer's scheduling jitter.
// Grounded on the bitbang I2C reference's sleepHalfCycle, which busy-polls
// time.Now() for the same reason rather than calling time.Sleep.
func nanospin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// clockPulse drives one clock half-period low then releases it, leaving
// a quarter-period settle afterwards. This is the device driving the
// falling edge the host samples on. After releasing, it re-samples the
// clock line: if it does not actually read high, the host is holding it
// down (HOST_REQUEST_TO_SEND or an outright bus grab), and ErrInhibited
// is returned so the caller aborts the in-flight frame instead of
// clocking out the remaining bits as if nothing happened.
func (l *linkState) clockPulse() error {
	if err := drive(l.clk); err != nil {
		return err
	}
	nanospin(l.cfg.ClockHalfPeriod)
	if err := release(l.clk); err != nil {
		return err
	}
	nanospin(l.cfg.ClockHalfPeriod / 2)
	if l.clk.Read() == gpio.Low {
		return ErrInhibited
	}
	return nil
}

// debugf logs a bit-engine event when cfg.Debug is set, matching
// Device.Debugf's gating and message shape.
func (l *linkState) debugf(format string, args ...any) {
	if !l.cfg.Debug {
		return
	}
	log.Printf("ps2dev["+l.clk.Name()+"|"+l.data.Name()+"]: "+format, args...)
}

// abort releases both lines and returns the frame-ending error, logging
// and wrapping ErrInhibited with the operation it interrupted. Called
// whenever clockPulse reports the host grabbed the bus mid-frame, so the
// in-flight byte is genuinely abandoned rather than finished in silence.
func (l *linkState) abort(err error, op string) error {
	_ = release(l.clk)
	_ = release(l.data)
	if errors.Is(err, ErrInhibited) {
		l.debugf("inhibited mid-%s: host pulled clock low, aborting in-flight byte", op)
		return fmt.Errorf("ps2dev: %w mid-%s", ErrInhibited, op)
	}
	return err
}

// writeByte sends one octet device-to-host: start bit, 8 data bits
// LSB-first, odd parity, stop bit. Precondition: bus is IDLE. The whole
// sequence runs with the OS thread locked so the Go scheduler cannot
// preempt this goroutine onto a different core mid-frame, the closest
// portable equivalent of the original's critical section.
func (l *linkState) writeByte(data byte) error {
	if l.state() != busIdle {
		return ErrBusBusy
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var parity byte = 1
	if err := drive(l.data); err != nil {
		return err
	}
	nanospin(l.cfg.ClockHalfPeriod / 2)
	if err := l.clockPulse(); err != nil { // start bit
		return l.abort(err, "write")
	}

	b := data
	for i := 0; i < 8; i++ {
		bit := b & 1
		var err error
		if bit != 0 {
			err = release(l.data)
		} else {
			err = drive(l.data)
		}
		if err != nil {
			return err
		}
		nanospin(l.cfg.ClockHalfPeriod / 2)
		if err := l.clockPulse(); err != nil {
			return l.abort(err, "write")
		}
		parity ^= bit
		b >>= 1
	}

	if parity != 0 {
		if err := release(l.data); err != nil {
			return err
		}
	} else {
		if err := drive(l.data); err != nil {
			return err
		}
	}
	nanospin(l.cfg.ClockHalfPeriod / 2)
	if err := l.clockPulse(); err != nil { // parity bit
		return l.abort(err, "write")
	}

	if err := release(l.data); err != nil { // stop bit
		return err
	}
	nanospin(l.cfg.ClockHalfPeriod / 2)
	if err := l.clockPulse(); err != nil {
		return l.abort(err, "write")
	}

	return nil
}

// readByte waits for the bus to enter HOST_REQUEST_TO_SEND, then clocks
// in one octet host-to-device: 8 data bits LSB-first, a parity bit, a
// stop bit, and a device-driven acknowledge pulse with data held low.
func (l *linkState) readByte(timeout time.Duration) (byte, error) {
	deadline := time.Now().Add(timeout)
	for l.state() != busHostRequestToSend {
		if timeout > 0 && time.Now().After(deadline) {
			l.debugf("read timed out waiting for host request to send")
			return 0, ErrTimeout
		}
		time.Sleep(time.Millisecond)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var data uint16
	var bit uint16 = 1
	var calculated byte = 1

	nanospin(l.cfg.ClockHalfPeriod / 2)
	if err := l.clockPulse(); err != nil {
		return 0, l.abort(err, "read")
	}

	for bit < 0x100 {
		if l.data.Read() == gpio.High {
			data |= bit
			calculated ^= 1
		}
		bit <<= 1
		nanospin(l.cfg.ClockHalfPeriod / 2)
		if err := l.clockPulse(); err != nil {
			return 0, l.abort(err, "read")
		}
	}

	received := l.data.Read() == gpio.High

	// stop bit clock
	nanospin(l.cfg.ClockHalfPeriod / 2)
	if err := l.clockPulse(); err != nil {
		return 0, l.abort(err, "read")
	}

	// device-driven acknowledge: hold data low through one more clock.
	nanospin(l.cfg.ClockHalfPeriod / 2)
	if err := drive(l.data); err != nil {
		return 0, err
	}
	if err := l.clockPulse(); err != nil {
		return 0, l.abort(err, "read")
	}
	if err := release(l.data); err != nil {
		return 0, err
	}

	value := byte(data & 0xFF)
	if received != (calculated != 0) {
		l.debugf("parity mismatch on received byte %#x", value)
		return value, ErrParity
	}
	return value, nil
}
