package ps2dev

import "errors"

// Error kinds returned by the bit engine and arbiter. Callers should
// compare with errors.Is, not direct equality, since some are wrapped
// with additional context.
var (
	// ErrBusBusy is returned by Write when the bus is not IDLE on entry.
	// The lines are left untouched.
	ErrBusBusy = errors.New("ps2dev: bus busy")

	// ErrInhibited is returned when the host pulls clock low mid-frame.
	// Both lines are released before the error is returned.
	ErrInhibited = errors.New("ps2dev: communication inhibited")

	// ErrTimeout is returned by Read when no host-request-to-send
	// condition appears before the deadline.
	ErrTimeout = errors.New("ps2dev: read timeout")

	// ErrParity is returned by Read when the received parity bit does
	// not match the computed parity of the 8 data bits.
	ErrParity = errors.New("ps2dev: parity error")

	// ErrQueueFull is returned by Device.Enqueue when the outbound
	// packet queue has no free slot.
	ErrQueueFull = errors.New("ps2dev: packet queue full")

	// ErrClosed names the closed-Device condition. No function in this
	// package returns it: after Close, Enqueue still accepts packets
	// until the queue is full.
	ErrClosed = errors.New("ps2dev: device closed")
)
