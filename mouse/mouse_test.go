package mouse_test

import (
	"testing"
	"time"

	"github.com/ps2dev/ps2dev"
	"github.com/ps2dev/ps2dev/mouse"
	"github.com/ps2dev/ps2dev/ps2test"
)

func testConfig() ps2dev.Config {
	cfg := ps2dev.DefaultConfig()
	cfg.ClockHalfPeriod = 2 * time.Millisecond
	cfg.ByteInterval = 2 * time.Millisecond
	cfg.PollInterval = 1 * time.Millisecond
	cfg.ReadParamTimeout = 100 * time.Millisecond
	return cfg
}

func newTestMouse(t *testing.T) (*mouse.Mouse, *ps2test.HostSim) {
	t.Helper()
	clk := ps2test.NewLine("clk")
	data := ps2test.NewLine("data")
	m := mouse.New(clk.DevicePin(), data.DevicePin(), testConfig())
	host := ps2test.NewHostSim(clk, data)

	bat1 := make(chan byte, 1)
	bat2 := make(chan byte, 1)
	go func() { bat1 <- host.ReceiveByte() }()
	if err := m.Begin(false); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if got := <-bat1; got != 0xAA {
		t.Fatalf("BAT byte 1 = %#x, want 0xAA", got)
	}
	go func() { bat2 <- host.ReceiveByte() }()
	if got := <-bat2; got != 0x00 {
		t.Fatalf("BAT byte 2 = %#x, want 0x00", got)
	}

	t.Cleanup(func() { m.Close() })
	return m, host
}

func sendAndAck(t *testing.T, host *ps2test.HostSim, cmd byte) {
	t.Helper()
	ack := make(chan byte, 1)
	go func() { ack <- host.ReceiveByte() }()
	host.SendByte(cmd)
	if got := <-ack; got != 0xFA {
		t.Fatalf("ack for %#x = %#x, want 0xFA", cmd, got)
	}
}

func recvByte(t *testing.T, host *ps2test.HostSim) byte {
	t.Helper()
	c := make(chan byte, 1)
	go func() { c <- host.ReceiveByte() }()
	select {
	case b := <-c:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for byte")
		return 0
	}
}

func TestMouse_GetDeviceIDDefaultsToStandard(t *testing.T) {
	_, host := newTestMouse(t)
	sendAndAck(t, host, 0xF2)
	if got := recvByte(t, host); got != 0x00 {
		t.Fatalf("device id = %#x, want 0x00 (standard)", got)
	}
}

func TestMouse_WheelKnockEscalatesDeviceID(t *testing.T) {
	m, host := newTestMouse(t)

	// Sample-rate knock: 200, 100, 80.
	for _, rate := range []byte{200, 100, 80} {
		sendAndAck(t, host, 0xF3) // SET_SAMPLE_RATE
		paramAck := make(chan byte, 1)
		go func() { paramAck <- host.ReceiveByte() }()
		host.SendByte(rate)
		if got := <-paramAck; got != 0xFA {
			t.Fatalf("sample rate param ack = %#x, want 0xFA", got)
		}
	}

	sendAndAck(t, host, 0xF2) // GET_DEVICE_ID
	if got := recvByte(t, host); got != 0x03 {
		t.Fatalf("device id after wheel knock = %#x, want 0x03", got)
	}
	if !m.HasWheel() {
		t.Fatal("HasWheel() = false after wheel knock")
	}
}

func TestMouse_FourFiveButtonKnockAfterWheelKnock(t *testing.T) {
	m, host := newTestMouse(t)

	knock := func(rates []byte) {
		for _, rate := range rates {
			sendAndAck(t, host, 0xF3)
			ack := make(chan byte, 1)
			go func() { ack <- host.ReceiveByte() }()
			host.SendByte(rate)
			<-ack
		}
		sendAndAck(t, host, 0xF2)
		recvByte(t, host) // discard device id
	}

	knock([]byte{200, 100, 80}) // wheel
	knock([]byte{200, 200, 80}) // 4th/5th button

	if !m.HasFourFiveButtons() {
		t.Fatal("HasFourFiveButtons() = false after full knock sequence")
	}
}

func TestMouse_StatusRequestReflectsState(t *testing.T) {
	m, host := newTestMouse(t)
	m.Press(mouse.ButtonLeft)

	sendAndAck(t, host, 0xE9) // STATUS_REQUEST
	header := recvByte(t, host)
	recvByte(t, host) // resolution
	recvByte(t, host) // sample rate

	if header&(1<<2) == 0 {
		t.Fatalf("status header = %#x, left-button bit not set", header)
	}
}

func TestMouse_RemoteModeOnlyReportsOnReadData(t *testing.T) {
	m, host := newTestMouse(t)

	sendAndAck(t, host, 0xF0) // SET_REMOTE_MODE
	m.Move(5, -3, 0)

	// No unsolicited report should arrive; instead request one.
	sendAndAck(t, host, 0xEB) // READ_DATA
	header := recvByte(t, host)
	x := recvByte(t, host)
	y := recvByte(t, host)

	if header&(1<<3) == 0 {
		t.Fatalf("report header always-1 bit missing: %#x", header)
	}
	if x != 5 {
		t.Fatalf("x = %d, want 5", x)
	}
	if y != byte(int16(-3)) {
		t.Fatalf("y = %d, want -3 as byte", y)
	}
}

func TestMouse_StreamModeEmitsOnMove(t *testing.T) {
	m, host := newTestMouse(t)
	sendAndAck(t, host, 0xF4) // ENABLE_DATA_REPORTING

	m.Move(1, 1, 0)

	header := recvByte(t, host)
	if header&(1<<3) == 0 {
		t.Fatalf("stream report header = %#x, always-1 bit missing", header)
	}
}

func TestMouse_WrapModeEchoesUnknownBytes(t *testing.T) {
	m, host := newTestMouse(t)
	sendAndAck(t, host, 0xEE) // SET_WRAP_MODE

	echoed := make(chan byte, 1)
	go func() { echoed <- host.ReceiveByte() }()
	host.SendByte(0x3C)
	if got := <-echoed; got != 0x3C {
		t.Fatalf("wrap echo = %#x, want 0x3C", got)
	}

	sendAndAck(t, host, 0xEC) // RESET_WRAP_MODE
	_ = m
}
