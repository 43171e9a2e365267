// Package keyboard implements the Scan Code Set 2 keyboard personality:
// command dispatch, LED state, and the keydown/keyup/type input surface.
package keyboard

import (
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/ps2dev/ps2dev"
)

// Command bytes the host may send. Named the same way the PS/2
// controller's own documentation names them.
const (
	cmdReset              = 0xFF
	cmdResend             = 0xFE
	cmdSetDefaults        = 0xF6
	cmdDisableReporting   = 0xF5
	cmdEnableReporting    = 0xF4
	cmdSetTypematicRate   = 0xF3
	cmdGetDeviceID        = 0xF2
	cmdSetScanCodeSet     = 0xF0
	cmdEcho               = 0xEE
	cmdSetResetLEDs       = 0xED
	batSuccess            = 0xAA
)

// Keyboard emulates an MF-II keyboard (device ID 0xAB 0x83) speaking
// Scan Code Set 2. Construct with New, call Begin once, then drive it
// with KeyDown/KeyUp/Type from any goroutine.
type Keyboard struct {
	dev *ps2dev.Device

	dataReportingEnabled atomic.Bool
	ledScrollLock         atomic.Bool
	ledNumLock            atomic.Bool
	ledCapsLock           atomic.Bool
}

// New constructs a keyboard over the given clock/data lines. cfg's
// timing fields govern the underlying bit engine and arbiter; see
// ps2dev.DefaultConfig.
func New(clk, data gpio.PinIO, cfg ps2dev.Config) *Keyboard {
	k := &Keyboard{dev: ps2dev.NewDevice(clk, data, cfg)}
	k.dataReportingEnabled.Store(true)
	return k
}

// Begin starts the arbiter and emits the power-on self-test byte
// (0xAA), retried until the bus accepts it.
func (k *Keyboard) Begin() error {
	if err := k.dev.Begin(k); err != nil {
		return err
	}
	k.dev.SendBAT(batSuccess)
	return nil
}

// Close stops the keyboard's arbiter goroutines.
func (k *Keyboard) Close() error {
	return k.dev.Close()
}

// DataReportingEnabled reports whether the host has enabled scancode
// output.
func (k *Keyboard) DataReportingEnabled() bool { return k.dataReportingEnabled.Load() }

// ScrollLockOn, NumLockOn and CapsLockOn report the keyboard's LED
// state as last programmed by the host via SET_RESET_LEDS.
func (k *Keyboard) ScrollLockOn() bool { return k.ledScrollLock.Load() }
func (k *Keyboard) NumLockOn() bool    { return k.ledNumLock.Load() }
func (k *Keyboard) CapsLockOn() bool   { return k.ledCapsLock.Load() }

// ReplyToHost implements ps2dev.Personality.
func (k *Keyboard) ReplyToHost(h ps2dev.Host, cmd byte) {
	switch cmd {
	case cmdReset:
		h.Debugf("reset command received")
		h.Ack()
		h.WriteRetry(batSuccess)
		k.dataReportingEnabled.Store(false)

	case cmdResend:
		h.Debugf("resend command received")
		h.Ack()

	case cmdSetDefaults:
		h.Debugf("set defaults command received")
		h.Ack()

	case cmdDisableReporting:
		h.Debugf("disable data reporting command received")
		k.dataReportingEnabled.Store(false)
		h.Ack()

	case cmdEnableReporting:
		h.Debugf("enable data reporting command received")
		k.dataReportingEnabled.Store(true)
		h.Ack()

	case cmdSetTypematicRate:
		h.Ack()
		if _, ok := h.ReadParam(); ok {
			h.Ack() // value discarded: typematic repeat generation is out of scope
		}

	case cmdGetDeviceID:
		h.Debugf("get device id command received")
		h.Ack()
		h.WriteRetry(0xAB)
		h.WriteRetry(0x83)

	case cmdSetScanCodeSet:
		h.Debugf("set scan code set command received")
		h.Ack()
		if _, ok := h.ReadParam(); ok {
			h.Ack() // value discarded: scan code set 2 is the only set implemented
		}

	case cmdEcho:
		h.Debugf("echo command received")
		time.Sleep(h.ByteInterval())
		_ = h.WriteByte(cmdEcho)
		time.Sleep(h.ByteInterval())

	case cmdSetResetLEDs:
		h.Debugf("set/reset LEDs command received")
		h.WriteRetry(0xFA)
		if val, ok := h.ReadParam(); ok {
			h.WriteRetry(0xFA)
			k.ledScrollLock.Store(val&1 != 0)
			k.ledNumLock.Store(val&2 != 0)
			k.ledCapsLock.Store(val&4 != 0)
		}

	default:
		h.Debugf("unknown command received: %#x", cmd)
	}
}

// KeyDown enqueues key's make-code sequence. It is a no-op if data
// reporting is currently disabled.
func (k *Keyboard) KeyDown(key Key) {
	if !k.dataReportingEnabled.Load() {
		return
	}
	_ = k.dev.Enqueue(ps2dev.NewPacket(makeCode[key]...))
}

// KeyUp enqueues key's break-code sequence. It is a no-op if data
// reporting is currently disabled.
func (k *Keyboard) KeyUp(key Key) {
	if !k.dataReportingEnabled.Load() {
		return
	}
	_ = k.dev.Enqueue(ps2dev.NewPacket(breakCode(key)...))
}

// Type presses key, holds briefly, then releases it.
func (k *Keyboard) Type(key Key) {
	k.KeyDown(key)
	time.Sleep(10 * time.Millisecond)
	k.KeyUp(key)
}

// TypeSequence presses every key in order, then releases them in
// reverse (LIFO) order — modifier-safe chording, e.g.
// TypeSequence(KeyLeftShift, KeyA) produces an upper-case A.
func (k *Keyboard) TypeSequence(keys ...Key) {
	for _, key := range keys {
		k.KeyDown(key)
		time.Sleep(10 * time.Millisecond)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		k.KeyUp(keys[i])
		time.Sleep(10 * time.Millisecond)
	}
}

// TypeString walks s and types each recognised character in turn,
// wrapping shifted characters in LSHIFT. Unrecognised characters are
// silently skipped.
func (k *Keyboard) TypeString(s string) {
	for _, r := range s {
		entry, ok := asciiTable[r]
		if !ok {
			continue
		}
		if entry.shift {
			k.TypeSequence(KeyLeftShift, entry.key)
		} else {
			k.Type(entry.key)
		}
	}
}
