package ps2dev

import "time"

// Host is the narrow capability a device personality needs from the
// arbiter while it holds the bus: write a reply byte, read a parameter
// byte, send the standard ACK, and enqueue an unsolicited packet. It
// replaces the original firmware's inheritance from a common PS2dev base
// class (see spec design notes: "the arbiter is parameterised over
// something that consumes one host byte while holding the bus") with a
// plain interface — keyboard and mouse share no base type.
type Host interface {
	// WriteByte sends one byte immediately. The caller already holds
	// the bus mutex (reply_to_host is always invoked with the bus
	// locked).
	WriteByte(b byte) error

	// WriteRetry sends one byte, retrying on ErrBusBusy/ErrInhibited
	// until the bus is idle again. Used for bytes the host must not
	// miss (BAT success, device ID), matching the original's
	// `while (write(b) != 0) delay(1);` idiom.
	WriteRetry(b byte)

	// ReadParam reads one trailing parameter byte with the device's
	// configured timeout, returning ok=false if none arrives in time.
	ReadParam() (b byte, ok bool)

	// Ack sends the standard 0xFA acknowledge, bracketed by the
	// configured inter-byte gap on both sides.
	Ack()

	// Enqueue places a packet on the outbound queue for the packet
	// sender goroutine to transmit. Returns ErrQueueFull if the queue
	// has no room.
	Enqueue(p Packet) error

	// Debugf logs a formatted debug message when the device's Config.Debug
	// is set; it is a no-op otherwise.
	Debugf(format string, args ...any)

	// ByteInterval returns the configured inter-byte gap, for
	// personalities that need to pace multi-byte replies themselves
	// (e.g. keyboard ECHO).
	ByteInterval() time.Duration
}

// Personality is a device-side command dispatcher: it owns the device's
// mode/option state and reacts to one host command byte at a time. The
// arbiter calls ReplyToHost once per host command, with the bus mutex
// already held.
type Personality interface {
	ReplyToHost(h Host, cmd byte)
}
