package ps2dev

import "time"

// Config holds the timing and task-placement knobs for a Device. The
// zero value is not valid; use DefaultConfig and override individual
// fields as needed.
type Config struct {
	// ClockHalfPeriod is the bit-engine's clock half-period. The PS/2
	// spec allows 10-16.7kHz line rate; 40us half-period (12.5kHz) sits
	// comfortably inside that range.
	ClockHalfPeriod time.Duration

	// ByteInterval is the minimum gap enforced between consecutive
	// bytes of an outbound packet, and before the first byte of a
	// freshly dequeued packet.
	ByteInterval time.Duration

	// PollInterval is how often the host-request poller goroutine
	// checks bus state when it is not actively servicing a request.
	PollInterval time.Duration

	// ReadParamTimeout bounds how long a command handler waits for a
	// trailing parameter byte (e.g. SET_SAMPLE_RATE's rate byte) before
	// giving up and treating the command as parameter-less.
	ReadParamTimeout time.Duration

	// QueueLen is the capacity of the outbound packet queue.
	QueueLen int

	// Priority and CPUAffinity are advisory task-placement hints
	// carried over from the originating firmware's FreeRTOS task
	// configuration. Go's scheduler has no portable equivalent of
	// either; they are recorded on the Device for introspection and
	// documentation purposes only.
	Priority    int
	CPUAffinity int

	// Debug enables verbose per-command logging via Device.Debugf.
	Debug bool
}

// Advisory CPU affinity values. NoAffinity means "no preference",
// matching the original firmware's use of a specific core number only
// when pinning actually mattered for ISR latency.
const NoAffinity = -1

// DefaultConfig returns the timing constants used by the reference
// firmware this package is modelled on, translated to Go duration
// values.
func DefaultConfig() Config {
	return Config{
		ClockHalfPeriod:  40 * time.Microsecond,
		ByteInterval:     500 * time.Microsecond,
		PollInterval:     9 * time.Millisecond,
		ReadParamTimeout: 50 * time.Millisecond,
		QueueLen:         20,
		Priority:         10,
		CPUAffinity:      NoAffinity,
	}
}
