package ps2dev

import (
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Device is the bus arbiter: it owns one pair of GPIO lines, the bus
// mutex that gates the bit engine, and the outbound packet queue. Two
// goroutines started by Begin contend for the mutex — a host-request
// poller and a packet sender — exactly the two cooperating tasks
// described for the original firmware's PS2dev base class, translated
// from FreeRTOS tasks to goroutines.
type Device struct {
	link linkState
	cfg  Config

	mu          sync.Mutex
	queue       chan Packet
	personality Personality

	done chan struct{}
	wg   sync.WaitGroup
}

// NewDevice constructs a Device over the given clock and data lines. The
// lines are not touched until Begin is called.
func NewDevice(clk, data gpio.PinIO, cfg Config) *Device {
	return &Device{
		link: linkState{clk: clk, data: data, cfg: cfg},
		cfg:  cfg,
	}
}

// Name identifies the device by its pin pair, for logging and for
// namespacing persisted state.
func (d *Device) Name() string {
	return d.link.clk.Name() + "|" + d.link.data.Name()
}

// Begin releases both lines to their idle (pulled-up high) state and
// starts the arbiter's two goroutines. p becomes the personality that
// services every subsequent host command. Begin must be called exactly
// once per Device.
func (d *Device) Begin(p Personality) error {
	if err := release(d.link.clk); err != nil {
		return err
	}
	if err := release(d.link.data); err != nil {
		return err
	}
	d.personality = p
	d.queue = make(chan Packet, d.cfg.QueueLen)
	d.done = make(chan struct{})

	d.wg.Add(2)
	go d.pollHostRequests()
	go d.sendPackets()
	return nil
}

// Close stops both arbiter goroutines and waits for them to exit.
// In-flight packets are abandoned, matching the spec's cancellation
// model: no task supports cancellation beyond shutdown.
func (d *Device) Close() error {
	if d.done == nil {
		return nil
	}
	select {
	case <-d.done:
		// already closed
	default:
		close(d.done)
	}
	d.wg.Wait()
	return nil
}

// pollHostRequests is the host-request poller task: acquire the bus
// mutex, check for HOST_REQUEST_TO_SEND, read one command byte and
// dispatch it, release the mutex, sleep ~PollInterval.
func (d *Device) pollHostRequests() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		default:
		}

		d.mu.Lock()
		if d.link.state() == busHostRequestToSend {
			if cmd, err := d.link.readByte(0); err == nil {
				d.personality.ReplyToHost(d, cmd)
			} else {
				d.Debugf("command read failed: %v", err)
			}
		}
		d.mu.Unlock()

		select {
		case <-d.done:
			return
		case <-time.After(d.cfg.PollInterval):
		}
	}
}

// sendPackets is the packet-sender task: block on the outbound queue;
// on receipt, acquire the bus mutex, verify IDLE, then write each byte
// pacing ByteInterval between them, rechecking IDLE before every byte
// since the host can inhibit mid-packet.
func (d *Device) sendPackets() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case pkt := <-d.queue:
			d.mu.Lock()
			if d.link.state() != busIdle {
				d.mu.Unlock()
				continue
			}
			nanospin(d.cfg.ByteInterval)
			for i := 0; i < int(pkt.Len); i++ {
				if d.link.state() != busIdle {
					d.Debugf("packet send aborted: bus no longer idle before byte %d", i)
					break
				}
				if err := d.link.writeByte(pkt.Data[i]); err != nil {
					d.Debugf("packet send aborted: %v", err)
					break
				}
				nanospin(d.cfg.ByteInterval)
			}
			d.mu.Unlock()
		}
	}
}

// SendBAT locks the bus and retries each byte in sequence, used for a
// device's power-on self-test bytes at Begin (0xAA for keyboards, 0xAA
// 0x00 for mice) before the arbiter is fielding host commands yet.
func (d *Device) SendBAT(bytes ...byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range bytes {
		d.writeRetryLocked(b)
		nanospin(d.cfg.ByteInterval)
	}
}

func (d *Device) writeRetryLocked(b byte) {
	for {
		err := d.link.writeByte(b)
		if err == nil {
			return
		}
		d.Debugf("write retry after error: %v", err)
		time.Sleep(time.Millisecond)
	}
}

// The following methods implement Host. They assume the bus mutex is
// already held by the calling goroutine (true for every call a
// Personality makes from inside ReplyToHost, since pollHostRequests
// holds d.mu for the duration of the dispatch).

func (d *Device) WriteByte(b byte) error {
	return d.link.writeByte(b)
}

func (d *Device) WriteRetry(b byte) {
	d.writeRetryLocked(b)
}

func (d *Device) ReadParam() (byte, bool) {
	b, err := d.link.readByte(d.cfg.ReadParamTimeout)
	if err != nil {
		return 0, false
	}
	return b, true
}

func (d *Device) Ack() {
	nanospin(d.cfg.ByteInterval)
	_ = d.link.writeByte(0xFA)
	nanospin(d.cfg.ByteInterval)
}

func (d *Device) Enqueue(p Packet) error {
	select {
	case d.queue <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Device) Debugf(format string, args ...any) {
	if d.cfg.Debug {
		log.Printf("ps2dev["+d.Name()+"]: "+format, args...)
	}
}

func (d *Device) ByteInterval() time.Duration {
	return d.cfg.ByteInterval
}
