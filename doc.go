// Package ps2dev emulates a PS/2 peripheral — a keyboard or a mouse — on
// two bit-banged GPIO lines (clock and data). A real PS/2 host cannot tell
// the difference: it enumerates the emulated device, issues the standard
// command set over the wire, and receives scancode or motion packets at
// the negotiated rate.
//
// The package is organised bottom-up: bus.go implements the bit-banged
// link layer (frame shaping, parity, bus-state sampling); device.go
// implements the arbiter (the host-command poller and packet-sender
// goroutines that share one Device's bus mutex and outbound queue); and
// personality.go defines the narrow interface a device personality
// implements to consume host commands. The keyboard and mouse
// subpackages are the two personalities; ps2test supplies an in-memory
// loopback gpio.PinIO pair for testing without real hardware.
package ps2dev
