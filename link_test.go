package ps2dev

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/ps2dev/ps2dev/ps2test"
)

// testLinkConfig uses a generously long clock period so the test
// goroutines simulating host behaviour (plain busy-poll/sleep, not an
// edge-interrupt) have ample wall-clock time to react between
// transitions.
func testLinkConfig() Config {
	cfg := DefaultConfig()
	cfg.ClockHalfPeriod = 2 * time.Millisecond
	return cfg
}

func newTestLink(t *testing.T) (*linkState, *ps2test.Line, *ps2test.Line) {
	t.Helper()
	clk := ps2test.NewLine("clk")
	data := ps2test.NewLine("data")
	link := &linkState{clk: clk.DevicePin(), data: data.DevicePin(), cfg: testLinkConfig()}
	if err := release(link.clk); err != nil {
		t.Fatalf("release clk: %v", err)
	}
	if err := release(link.data); err != nil {
		t.Fatalf("release data: %v", err)
	}
	return link, clk, data
}

func TestLinkState_WriteByteAbortsOnMidFrameInhibit(t *testing.T) {
	link, clk, _ := newTestLink(t)

	// The host grabs the clock line partway through the frame: writeByte
	// must abort instead of finishing the remaining bits.
	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = clk.HostPin().Out(gpio.Low)
	}()

	err := link.writeByte(0xAA)
	if !errors.Is(err, ErrInhibited) {
		t.Fatalf("writeByte error = %v, want ErrInhibited", err)
	}
}

func TestLinkState_ReadByteParityMismatch(t *testing.T) {
	link, clk, data := newTestLink(t)
	host := ps2test.NewHostSim(clk, data)

	result := make(chan error, 1)
	go func() {
		_, err := link.readByte(2 * time.Second)
		result <- err
	}()

	host.SendByteWithParity(0x55, false)

	select {
	case err := <-result:
		if !errors.Is(err, ErrParity) {
			t.Fatalf("readByte error = %v, want ErrParity", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for readByte")
	}
}

func TestLinkState_ReadByteTimesOutWithNoHostActivity(t *testing.T) {
	link, _, _ := newTestLink(t)

	_, err := link.readByte(10 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("readByte error = %v, want ErrTimeout", err)
	}
}
