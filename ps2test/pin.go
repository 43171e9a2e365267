// Package ps2test provides an in-memory loopback pair of gpio.PinIO
// implementations for exercising the ps2dev bit engine and arbiter
// without real hardware. It fills the same role
// periph.io/x/conn/v3/gpio/gpiotest plays for the wider ecosystem,
// adapted for a bus with two independent drivers (the emulated device
// and a simulated host) wired-AND together, rather than a single
// test pin observed by one side only.
package ps2test

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Line is a single open-drain, pulled-up wire shared by two Pin handles
// (one per side). Each side can independently drive it low or release
// it; the observed level is the wired-AND of both sides, exactly like a
// real PS/2 line with its external pull-up resistor.
type Line struct {
	mu       sync.Mutex
	name     string
	deviceLo bool
	hostLo   bool
}

// NewLine creates a named, initially-released (high) line.
func NewLine(name string) *Line {
	return &Line{name: name}
}

func (l *Line) level() gpio.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deviceLo || l.hostLo {
		return gpio.Low
	}
	return gpio.High
}

func (l *Line) setDevice(lo bool) {
	l.mu.Lock()
	l.deviceLo = lo
	l.mu.Unlock()
}

func (l *Line) setHost(lo bool) {
	l.mu.Lock()
	l.hostLo = lo
	l.mu.Unlock()
}

// Pin is one side's view of a Line: In()/Out()/Read() affect only this
// side's drive state, but Read() observes the combined wired-AND level.
type Pin struct {
	line *Line
	set  func(lo bool)
	name string
}

// DevicePin returns the handle the emulated device drives, to be passed
// to ps2dev.NewDevice as the clk or data pin.
func (l *Line) DevicePin() *Pin {
	return &Pin{line: l, set: l.setDevice, name: l.name + "-device"}
}

// HostPin returns the handle a test's simulated host drives, used to
// exercise host-initiated reads (commands, parameter bytes).
func (l *Line) HostPin() *Pin {
	return &Pin{line: l, set: l.setHost, name: l.name + "-host"}
}

func (p *Pin) String() string  { return p.name }
func (p *Pin) Halt() error     { return nil }
func (p *Pin) Number() int     { return -1 }
func (p *Pin) Function() string { return "" }
func (p *Pin) Name() string    { return p.name }

func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.set(false)
	return nil
}

func (p *Pin) Out(l gpio.Level) error {
	p.set(l == gpio.Low)
	return nil
}

func (p *Pin) Read() gpio.Level {
	return p.line.level()
}

func (p *Pin) Pull() gpio.Pull {
	return gpio.PullUp
}

func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

func (p *Pin) PWM(duty gpio.Duty, freq physic.Frequency) error {
	return errors.New("ps2test: PWM not implemented")
}

var (
	_ gpio.PinIO = (*Pin)(nil)
	_ pin.Pin    = (*Pin)(nil)
)
