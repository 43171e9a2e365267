package ps2test

import "periph.io/x/conn/v3/gpio"

// HostSim drives the host side of a simulated bus: the clock line is
// always driven by the emulated device (real PS/2 behaviour — the
// peripheral generates the clock even when the host is sending), so the
// host side only ever needs to watch clk for edges and place or sample
// bits on data at the right moment.
type HostSim struct {
	clk  *Line
	data *Line
}

// NewHostSim wraps a clock/data Line pair from the host's point of view.
func NewHostSim(clk, data *Line) *HostSim {
	return &HostSim{clk: clk, data: data}
}

// waitFallingEdges busy-polls clk until it has observed n High-to-Low
// transitions, invoking onEdge(i) (1-indexed) as each occurs.
func waitFallingEdges(l *Line, n int, onEdge func(i int)) {
	prev := l.level()
	count := 0
	for count < n {
		cur := l.level()
		if prev == gpio.High && cur == gpio.Low {
			count++
			onEdge(count)
		}
		prev = cur
	}
}

// RequestToSend pulls the data line low, asserting
// HOST_REQUEST_TO_SEND, without yet sending any bits. SendByte and
// SendByteWithParity call it before placing their bits.
func (h *HostSim) RequestToSend() {
	h.data.setHost(true)
}

// Release stops the host from driving the data line.
func (h *HostSim) Release() {
	h.data.setHost(false)
}

// SendByte performs one full host-to-device byte transfer: asserts
// HOST_REQUEST_TO_SEND, then places each data bit, the odd-parity bit,
// and finally releases the line before the device's acknowledge pulse.
// The device (via linkState.readByte) must already be waiting in
// HOST_REQUEST_TO_SEND state, i.e. the caller should start this from a
// goroutine running concurrently with the device's read.
func (h *HostSim) SendByte(cmd byte) {
	h.SendByteWithParity(cmd, true)
}

// SendByteWithParity is SendByte with the parity bit's correctness under
// caller control, so tests can construct a frame whose parity never
// matches its data bits and exercise the receiver's parity check.
func (h *HostSim) SendByteWithParity(cmd byte, correctParity bool) {
	var bits [8]bool // true == drive low (bit value 0)
	parity := byte(1)
	b := cmd
	for i := 0; i < 8; i++ {
		bit := b & 1
		bits[i] = bit == 0
		parity ^= bit
		b >>= 1
	}
	parityLow := parity == 0
	if !correctParity {
		parityLow = !parityLow
	}

	h.RequestToSend()
	waitFallingEdges(h.clk, 9, func(i int) {
		if i <= 8 {
			h.data.setHost(bits[i-1])
		} else {
			h.data.setHost(parityLow)
		}
	})
	waitFallingEdges(h.clk, 1, func(int) {})
	h.Release()
}

// ReceiveByte decodes one device-to-host byte transmission by sampling
// the data line on each falling edge of the clock: start bit, 8 data
// bits LSB-first, parity, stop bit. It does not validate parity; callers
// comparing against an expected value get that validation for free.
func (h *HostSim) ReceiveByte() byte {
	var value byte
	var bitIndex uint
	waitFallingEdges(h.clk, 11, func(i int) {
		switch {
		case i == 1:
			// start bit, expected to be 0; nothing to record.
		case i >= 2 && i <= 9:
			if h.data.level() == gpio.High {
				value |= 1 << bitIndex
			}
			bitIndex++
		case i == 10:
			// parity bit: not recorded.
		case i == 11:
			// stop bit: consumed so the next ReceiveByte starts counting
			// at the following frame's start bit.
		}
	})
	return value
}
