package keyboard_test

import (
	"testing"
	"time"

	"github.com/ps2dev/ps2dev"
	"github.com/ps2dev/ps2dev/keyboard"
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

func newTestKeyboard(t *testing.T) (*keyboard.Keyboard, *ps2test.HostSim) {
	t.Helper()
	clk := ps2test.NewLine("clk")
	data := ps2test.NewLine("data")
	kb := keyboard.New(clk.DevicePin(), data.DevicePin(), testConfig())
	if err := kb.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	t.Cleanup(func() { kb.Close() })
	return kb, ps2test.NewHostSim(clk, data)
}

func TestKeyboard_BeginSendsBAT(t *testing.T) {
	clk := ps2test.NewLine("clk")
	data := ps2test.NewLine("data")
	kb := keyboard.New(clk.DevicePin(), data.DevicePin(), testConfig())
	host := ps2test.NewHostSim(clk, data)
	result := make(chan byte, 1)
	go func() { result <- host.ReceiveByte() }()

	if err := kb.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer kb.Close()

	select {
	case got := <-result:
		if got != 0xAA {
			t.Fatalf("BAT byte = %#x, want 0xAA", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for BAT byte")
	}
}

func TestKeyboard_GetDeviceID(t *testing.T) {
	_, host := newTestKeyboard(t)

	ack := make(chan byte, 1)
	go func() { ack <- host.ReceiveByte() }()
	go host.SendByte(0xF2)
	if got := <-ack; got != 0xFA {
		t.Fatalf("ack = %#x, want 0xFA", got)
	}

	id1 := make(chan byte, 1)
	go func() { id1 <- host.ReceiveByte() }()
	if got := <-id1; got != 0xAB {
		t.Fatalf("id byte 1 = %#x, want 0xAB", got)
	}

	id2 := make(chan byte, 1)
	go func() { id2 <- host.ReceiveByte() }()
	if got := <-id2; got != 0x83 {
		t.Fatalf("id byte 2 = %#x, want 0x83", got)
	}
}

func TestKeyboard_SetResetLEDs(t *testing.T) {
	kb, host := newTestKeyboard(t)

	ack1 := make(chan byte, 1)
	go func() { ack1 <- host.ReceiveByte() }()
	go host.SendByte(0xED)
	if got := <-ack1; got != 0xFA {
		t.Fatalf("first ack = %#x, want 0xFA", got)
	}

	ack2 := make(chan byte, 1)
	go func() { ack2 <- host.ReceiveByte() }()
	host.SendByte(0x07) // scroll | num | caps
	if got := <-ack2; got != 0xFA {
		t.Fatalf("second ack = %#x, want 0xFA", got)
	}

	time.Sleep(50 * time.Millisecond)
	if !kb.ScrollLockOn() || !kb.NumLockOn() || !kb.CapsLockOn() {
		t.Fatalf("LED state = (%v,%v,%v), want all true",
			kb.ScrollLockOn(), kb.NumLockOn(), kb.CapsLockOn())
	}
}

func TestKeyboard_KeyDownKeyUpEmitsMakeAndBreak(t *testing.T) {
	kb, host := newTestKeyboard(t)

	makeByte := make(chan byte, 1)
	go func() { makeByte <- host.ReceiveByte() }()
	kb.KeyDown(keyboard.KeyA)
	if got := <-makeByte; got != 0x1C {
		t.Fatalf("make code = %#x, want 0x1C", got)
	}

	brk1 := make(chan byte, 1)
	go func() { brk1 <- host.ReceiveByte() }()
	kb.KeyUp(keyboard.KeyA)
	if got := <-brk1; got != 0xF0 {
		t.Fatalf("break code byte 1 = %#x, want 0xF0", got)
	}
	brk2 := make(chan byte, 1)
	go func() { brk2 <- host.ReceiveByte() }()
	if got := <-brk2; got != 0x1C {
		t.Fatalf("break code byte 2 = %#x, want 0x1C", got)
	}
}

func TestKeyboard_KeyDownNoOpWhenReportingDisabled(t *testing.T) {
	kb, host := newTestKeyboard(t)

	ack := make(chan byte, 1)
	go func() { ack <- host.ReceiveByte() }()
	host.SendByte(0xF5) // disable data reporting
	<-ack

	time.Sleep(20 * time.Millisecond)
	if kb.DataReportingEnabled() {
		t.Fatal("DataReportingEnabled() = true after disable command")
	}

	kb.KeyDown(keyboard.KeyA)
	// No assertion beyond "this must not deadlock or panic": with
	// reporting disabled the packet is dropped before reaching the
	// outbound queue.
}
