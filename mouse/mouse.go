// Package mouse implements the Microsoft Intellimouse personality: the
// 3/4-byte report protocol, the sample-rate "knock" feature escalation,
// 2:1 scaling, and remote/stream/wrap modes.
package mouse

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/ps2dev/ps2dev"
	"github.com/ps2dev/ps2dev/store"
)

// Resolution codes the host may select via SET_RESOLUTION, in counts per
// millimetre.
type Resolution uint8

const (
	Res1 Resolution = iota
	Res2
	Res4
	Res8
)

// Scale is the 1:1 / 2:1 remapping mode selected by SET_SCALING_1_1 /
// SET_SCALING_2_1.
type Scale uint8

const (
	ScaleOneToOne Scale = iota
	ScaleTwoToOne
)

// Mode is the mouse's reporting mode.
type Mode uint8

const (
	ModeRemote Mode = iota
	ModeStream
	ModeWrap
)

// Button identifies one of the five buttons this personality can report.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
	Button4
	Button5
)

const (
	cmdReset              = 0xFF
	cmdResend             = 0xFE
	cmdSetDefaults        = 0xF6
	cmdDisableReporting   = 0xF5
	cmdEnableReporting    = 0xF4
	cmdSetSampleRate      = 0xF3
	cmdGetDeviceID        = 0xF2
	cmdSetRemoteMode      = 0xF0
	cmdSetWrapMode        = 0xEE
	cmdResetWrapMode      = 0xEC
	cmdReadData           = 0xEB
	cmdSetStreamMode      = 0xEA
	cmdStatusRequest      = 0xE9
	cmdSetResolution      = 0xE8
	cmdSetScaling2to1     = 0xE7
	cmdSetScaling1to1     = 0xE6
)

const clickHoldDuration = 100 * time.Millisecond

// defaultSampleRate, defaultResolution and defaultScale are the values
// RESET and SET_DEFAULTS both restore.
const (
	defaultSampleRate = 100
	defaultResolution = Res4
	defaultScale      = ScaleOneToOne
)

// persistKeys names the six fields persisted per spec.md's persisted
// layout, namespaced by pin pair.
const (
	keyHasWheel   = "hasWheel"
	keyHas45      = "has4and5Btn"
	keyDataRepEn  = "dataRepEn"
	keyResolution = "resolution"
	keyScale      = "scale"
	keyMode       = "mode"
)

// Mouse emulates a Microsoft Intellimouse-compatible PS/2 mouse.
// Construct with New, call Begin once, then drive it with Move, Press,
// Release, Click and MoveAndButtons from any goroutine.
type Mouse struct {
	dev   *ps2dev.Device
	store store.KV

	mu               sync.Mutex
	hasWheel         bool
	has45            bool
	dataReportingEn  bool
	resolution       Resolution
	scale            Scale
	mode             Mode
	lastMode         Mode
	sampleRate       uint8
	sampleHistory    [3]uint8
	countX, countY   int16
	countZ           int8
	overflowX        bool
	overflowY        bool
	buttonLeft       bool
	buttonRight      bool
	buttonMiddle     bool
	button4          bool
	button5          bool
	dirty            bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New constructs a mouse with no persistence.
func New(clk, data gpio.PinIO, cfg ps2dev.Config) *Mouse {
	return NewWithStore(clk, data, cfg, nil)
}

// NewWithStore constructs a mouse that snapshots its mode/option state to
// kv after every state-changing command, and can reload it at Begin.
// kv may be nil to disable persistence entirely.
func NewWithStore(clk, data gpio.PinIO, cfg ps2dev.Config, kv store.KV) *Mouse {
	m := &Mouse{
		dev:        ps2dev.NewDevice(clk, data, cfg),
		store:      kv,
		sampleRate: defaultSampleRate,
		resolution: defaultResolution,
		scale:      defaultScale,
		mode:       ModeStream,
		lastMode:   ModeStream,
	}
	return m
}

// Begin starts the arbiter, optionally restores persisted state, emits
// the power-on self-test bytes (0xAA, 0x00) when not resuming, and
// starts the stream-mode report pacer.
func (m *Mouse) Begin(resume bool) error {
	if err := m.dev.Begin(m); err != nil {
		return err
	}
	if resume && m.store != nil {
		m.loadState()
	} else {
		m.dev.SendBAT(0xAA, 0x00)
	}

	m.done = make(chan struct{})
	m.wg.Add(1)
	go m.pollCounts()
	return nil
}

// Close stops the mouse's arbiter goroutines and its report pacer.
func (m *Mouse) Close() error {
	if m.done != nil {
		select {
		case <-m.done:
		default:
			close(m.done)
		}
		m.wg.Wait()
	}
	return m.dev.Close()
}

// HasWheel reports whether the Intellimouse wheel extension has been
// negotiated (sample-rate knock 200,100,80).
func (m *Mouse) HasWheel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasWheel
}

// HasFourFiveButtons reports whether the Intellimouse Explorer 4th/5th
// button extension has been negotiated.
func (m *Mouse) HasFourFiveButtons() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.has45
}

// DataReportingEnabled reports whether the host has enabled report
// output via ENABLE_DATA_REPORTING.
func (m *Mouse) DataReportingEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dataReportingEn
}

// SampleRate returns the currently negotiated report rate in Hz.
func (m *Mouse) SampleRate() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleRate
}

// Move adds signed deltas to the accumulators and marks the mouse dirty.
func (m *Mouse) Move(dx, dy int16, dz int8) {
	m.mu.Lock()
	m.countX += dx
	m.countY += dy
	m.countZ += dz
	m.dirty = true
	m.mu.Unlock()
}

// Press sets button's flag and marks the mouse dirty.
func (m *Mouse) Press(b Button) {
	m.mu.Lock()
	m.setButtonLocked(b, true)
	m.dirty = true
	m.mu.Unlock()
}

// Release clears button's flag and marks the mouse dirty.
func (m *Mouse) Release(b Button) {
	m.mu.Lock()
	m.setButtonLocked(b, false)
	m.dirty = true
	m.mu.Unlock()
}

// Click presses button, holds briefly, then releases it.
func (m *Mouse) Click(b Button) {
	m.Press(b)
	time.Sleep(clickHoldDuration)
	m.Release(b)
}

// MoveAndButtons atomically adds deltas and sets all five button flags.
func (m *Mouse) MoveAndButtons(dx, dy int16, dz int8, left, right, middle, btn4, btn5 bool) {
	m.mu.Lock()
	m.countX += dx
	m.countY += dy
	m.countZ += dz
	m.buttonLeft = left
	m.buttonRight = right
	m.buttonMiddle = middle
	m.button4 = btn4
	m.button5 = btn5
	m.dirty = true
	m.mu.Unlock()
}

func (m *Mouse) setButtonLocked(b Button, v bool) {
	switch b {
	case ButtonLeft:
		m.buttonLeft = v
	case ButtonRight:
		m.buttonRight = v
	case ButtonMiddle:
		m.buttonMiddle = v
	case Button4:
		m.button4 = v
	case Button5:
		m.button5 = v
	}
}

// resetCounterLocked clears accumulators, overflow flags and the dirty
// bit. Callers must hold m.mu.
func (m *Mouse) resetCounterLocked() {
	m.countX, m.countY, m.countZ = 0, 0, 0
	m.overflowX, m.overflowY = false, false
	m.dirty = false
}

// scaleRemap implements the 2:1 scaling table from spec.md §4.6:
// {1->1, 2->1, 3->3, 4->6, 5->9, n>5 -> 2n}, preserving sign.
func scaleRemap(v int16) int16 {
	neg := v < 0
	abs := v
	if neg {
		abs = -abs
	}
	switch abs {
	case 0:
		// unchanged
	case 1:
		abs = 1
	case 2:
		abs = 1
	case 3:
		abs = 3
	case 4:
		abs = 6
	case 5:
		abs = 9
	default:
		abs *= 2
	}
	if neg {
		return -abs
	}
	return abs
}

func clamp255(v int16) (byte, bool) {
	if v > 255 {
		return 255, true
	}
	if v < -255 {
		return byte(-255), true
	}
	return byte(v), false
}

func clampWheel(v int8) int8 {
	if v > 7 {
		return 7
	}
	if v < -8 {
		return -8
	}
	return v
}

// makePacketLocked builds the wire packet for the given deltas and
// button state. Callers must hold m.mu (the scale/hasWheel/has45 fields
// it reads are mouse-wide configuration, not part of the accumulator).
func (m *Mouse) makePacketLocked(x, y int16, z int8, left, right, middle, btn4, btn5 bool) ps2dev.Packet {
	if m.scale == ScaleTwoToOne {
		x = scaleRemap(x)
		y = scaleRemap(y)
	}
	z = clampWheel(z)
	xByte, xOverflow := clamp255(x)
	yByte, yOverflow := clamp255(y)

	var header byte
	if left {
		header |= 1 << 0
	}
	if right {
		header |= 1 << 1
	}
	if middle {
		header |= 1 << 2
	}
	header |= 1 << 3
	if x < 0 {
		header |= 1 << 4
	}
	if y < 0 {
		header |= 1 << 5
	}
	if xOverflow {
		header |= 1 << 6
	}
	if yOverflow {
		header |= 1 << 7
	}

	if !m.hasWheel {
		return ps2dev.NewPacket(header, xByte, yByte)
	}
	var b3 byte
	if m.has45 {
		b3 = byte(z) & 0x0F
		if btn4 {
			b3 |= 1 << 4
		}
		if btn5 {
			b3 |= 1 << 5
		}
	} else {
		b3 = byte(z)
	}
	return ps2dev.NewPacket(header, xByte, yByte, b3)
}

func (m *Mouse) currentPacketLocked() ps2dev.Packet {
	return m.makePacketLocked(m.countX, m.countY, m.countZ,
		m.buttonLeft, m.buttonRight, m.buttonMiddle, m.button4, m.button5)
}

// statusPacketLocked builds the 3-byte STATUS_REQUEST reply. The header
// byte uses bitwise OR to combine its fields — the historical firmware
// this protocol is modelled on used AND here, which is a defect: AND of
// disjoint single-bit fields collapses to zero whenever any field is 0.
func (m *Mouse) statusPacketLocked() ps2dev.Packet {
	var header byte
	if m.buttonRight {
		header |= 1 << 0
	}
	if m.buttonMiddle {
		header |= 1 << 1
	}
	if m.buttonLeft {
		header |= 1 << 2
	}
	if m.scale == ScaleTwoToOne {
		header |= 1 << 4
	}
	if m.dataReportingEn {
		header |= 1 << 5
	}
	if m.mode == ModeRemote {
		header |= 1 << 6
	}
	return ps2dev.NewPacket(header, byte(m.resolution), m.sampleRate)
}

func isValidSampleRate(r byte) bool {
	switch r {
	case 10, 20, 40, 60, 80, 100, 200:
		return true
	}
	return false
}

// restoreDefaultsLocked applies the (sampleRate, resolution, scale,
// reporting=false, mode=STREAM) tuple both RESET and SET_DEFAULTS share.
// Callers must hold m.mu.
func (m *Mouse) restoreDefaultsLocked() {
	m.sampleRate = defaultSampleRate
	m.resolution = defaultResolution
	m.scale = defaultScale
	m.dataReportingEn = false
	m.mode = ModeStream
}

// ReplyToHost implements ps2dev.Personality.
func (m *Mouse) ReplyToHost(h ps2dev.Host, cmd byte) {
	m.mu.Lock()
	wrapped := m.mode == ModeWrap
	m.mu.Unlock()

	if wrapped {
		m.replyWrapMode(h, cmd)
		return
	}

	switch cmd {
	case cmdReset:
		h.Debugf("reset command received")
		h.Ack()
		h.WriteRetry(0xAA)
		h.WriteRetry(0x00)
		m.mu.Lock()
		m.hasWheel = false
		m.has45 = false
		m.sampleHistory = [3]uint8{}
		m.restoreDefaultsLocked()
		m.resetCounterLocked()
		m.mu.Unlock()
		m.saveState()

	case cmdResend:
		h.Debugf("resend command received")
		h.Ack()

	case cmdSetDefaults:
		h.Debugf("set defaults command received")
		h.Ack()
		m.mu.Lock()
		m.restoreDefaultsLocked()
		m.resetCounterLocked()
		m.mu.Unlock()
		m.saveState()

	case cmdDisableReporting:
		h.Debugf("disable data reporting command received")
		h.Ack()
		m.mu.Lock()
		m.dataReportingEn = false
		m.resetCounterLocked()
		m.mu.Unlock()
		m.saveState()

	case cmdEnableReporting:
		h.Debugf("enable data reporting command received")
		h.Ack()
		m.mu.Lock()
		m.dataReportingEn = true
		m.resetCounterLocked()
		m.mu.Unlock()
		m.saveState()

	case cmdSetSampleRate:
		h.Ack()
		if val, ok := h.ReadParam(); ok {
			m.mu.Lock()
			if isValidSampleRate(val) {
				m.sampleRate = val
				m.sampleHistory[0] = m.sampleHistory[1]
				m.sampleHistory[1] = m.sampleHistory[2]
				m.sampleHistory[2] = val
				h.Debugf("set sample rate command received: %d", val)
				h.Ack()
			}
			m.resetCounterLocked()
			m.mu.Unlock()
			m.saveState()
		}

	case cmdGetDeviceID:
		h.Debugf("get device id command received")
		h.Ack()
		m.mu.Lock()
		switch {
		case m.sampleHistory == [3]uint8{200, 100, 80}:
			m.hasWheel = true
			m.sampleHistory = [3]uint8{}
			m.mu.Unlock()
			h.WriteRetry(0x03)
			h.Debugf("acting as Intellimouse with wheel")
		case m.sampleHistory == [3]uint8{200, 200, 80} && m.hasWheel:
			m.has45 = true
			m.sampleHistory = [3]uint8{}
			m.mu.Unlock()
			h.WriteRetry(0x04)
			h.Debugf("acting as Intellimouse with 4th and 5th buttons")
		default:
			id := byte(0x00)
			if m.has45 {
				id = 0x04
			} else if m.hasWheel {
				id = 0x03
			}
			m.mu.Unlock()
			h.WriteRetry(id)
		}
		m.saveState()
		m.mu.Lock()
		m.resetCounterLocked()
		m.mu.Unlock()

	case cmdSetRemoteMode:
		h.Debugf("set remote mode command received")
		h.Ack()
		m.mu.Lock()
		m.resetCounterLocked()
		m.mode = ModeRemote
		m.mu.Unlock()
		m.saveState()

	case cmdSetWrapMode:
		h.Debugf("set wrap mode command received")
		h.Ack()
		m.mu.Lock()
		m.resetCounterLocked()
		m.lastMode = m.mode
		m.mode = ModeWrap
		m.mu.Unlock()
		m.saveState()

	case cmdResetWrapMode:
		h.Debugf("reset wrap mode command received")
		h.Ack()
		m.mu.Lock()
		m.resetCounterLocked()
		m.mu.Unlock()

	case cmdReadData:
		h.Ack()
		m.mu.Lock()
		pkt := m.currentPacketLocked()
		m.mu.Unlock()
		_ = h.Enqueue(pkt)
		m.mu.Lock()
		m.resetCounterLocked()
		m.mu.Unlock()

	case cmdSetStreamMode:
		h.Debugf("set stream mode command received")
		h.Ack()
		m.mu.Lock()
		m.resetCounterLocked()
		m.mode = ModeStream
		m.mu.Unlock()
		m.saveState()

	case cmdStatusRequest:
		h.Debugf("status request command received")
		h.Ack()
		m.mu.Lock()
		pkt := m.statusPacketLocked()
		m.mu.Unlock()
		_ = h.Enqueue(pkt)

	case cmdSetResolution:
		h.Ack()
		if val, ok := h.ReadParam(); ok && val <= 3 {
			m.mu.Lock()
			m.resolution = Resolution(val)
			m.mu.Unlock()
			h.Debugf("set resolution command received: %#x", val)
			h.Ack()
			m.saveState()
			m.mu.Lock()
			m.resetCounterLocked()
			m.mu.Unlock()
		}

	case cmdSetScaling2to1:
		h.Debugf("set scaling 2:1 command received")
		h.Ack()
		m.mu.Lock()
		m.scale = ScaleTwoToOne
		m.mu.Unlock()
		m.saveState()

	case cmdSetScaling1to1:
		h.Debugf("set scaling 1:1 command received")
		h.Ack()
		m.mu.Lock()
		m.scale = ScaleOneToOne
		m.mu.Unlock()
		m.saveState()

	default:
		h.Debugf("unknown command received: %#x", cmd)
	}
}

// replyWrapMode handles host commands while in WRAP mode: only the two
// wrap-control commands are interpreted, every other byte is echoed
// verbatim.
func (m *Mouse) replyWrapMode(h ps2dev.Host, cmd byte) {
	switch cmd {
	case cmdSetWrapMode:
		h.Debugf("(wrap mode) set wrap mode command received")
		h.Ack()
		m.mu.Lock()
		m.resetCounterLocked()
		m.mu.Unlock()
	case cmdResetWrapMode:
		h.Debugf("(wrap mode) reset wrap mode command received")
		h.Ack()
		m.mu.Lock()
		m.resetCounterLocked()
		m.mode = m.lastMode
		m.mu.Unlock()
		m.saveState()
	default:
		_ = h.WriteByte(cmd)
	}
}

// pollCounts is the stream-mode report pacer: it wakes every
// 1000/sampleRate ms and, in STREAM mode only, emits and clears any
// accumulated deltas. REMOTE mode emits nothing here — only READ_DATA
// produces a report — matching spec.md §4.6's "no periodic emission"
// rather than the firmware's unconditional per-tick reset_counter,
// which would otherwise silently discard REMOTE-mode motion between
// READ_DATA polls.
func (m *Mouse) pollCounts() {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		rate := m.sampleRate
		if rate == 0 {
			rate = defaultSampleRate
		}
		interval := time.Second / time.Duration(rate)
		shouldSend := m.mode == ModeStream && m.dataReportingEn && m.dirty
		var pkt ps2dev.Packet
		if shouldSend {
			pkt = m.currentPacketLocked()
			m.resetCounterLocked()
		}
		m.mu.Unlock()

		if shouldSend {
			_ = m.dev.Enqueue(pkt)
		}

		select {
		case <-m.done:
			return
		case <-time.After(interval):
		}
	}
}

func (m *Mouse) saveState() {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	snap := map[string]byte{
		keyHasWheel:   boolByte(m.hasWheel),
		keyHas45:      boolByte(m.has45),
		keyDataRepEn:  boolByte(m.dataReportingEn),
		keyResolution: byte(m.resolution),
		keyScale:      byte(m.scale),
		keyMode:       byte(m.mode),
	}
	m.mu.Unlock()

	ns := m.store.Namespace(m.dev.Name())
	for k, v := range snap {
		if err := ns.SetByte(k, v); err != nil {
			// Persistence failures are logged and non-fatal per spec.
			m.dev.Debugf("persist %s failed: %v", k, err)
		}
	}
}

func (m *Mouse) loadState() {
	ns := m.store.Namespace(m.dev.Name())
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok, err := ns.GetByte(keyHasWheel); err == nil && ok {
		m.hasWheel = v != 0
	}
	if v, ok, err := ns.GetByte(keyHas45); err == nil && ok {
		m.has45 = v != 0
	}
	if v, ok, err := ns.GetByte(keyDataRepEn); err == nil && ok {
		m.dataReportingEn = v != 0
	}
	if v, ok, err := ns.GetByte(keyResolution); err == nil && ok {
		m.resolution = Resolution(v)
	}
	if v, ok, err := ns.GetByte(keyScale); err == nil && ok {
		m.scale = Scale(v)
	}
	if v, ok, err := ns.GetByte(keyMode); err == nil && ok {
		m.mode = Mode(v)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
