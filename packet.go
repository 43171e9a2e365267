package ps2dev

// maxPacketLen bounds the fixed buffer in Packet. The largest packet any
// personality emits is a 4-byte mouse report; 16 leaves headroom for
// future report shapes without forcing a heap allocation per packet.
const maxPacketLen = 16

// Packet is one atomic device-to-host transmission: the arbiter writes
// its bytes contiguously without releasing the bus in between.
type Packet struct {
	Len  uint8
	Data [maxPacketLen]byte
}

// NewPacket builds a Packet from the given bytes. It panics if more than
// maxPacketLen bytes are supplied, which would indicate a programming
// error in a personality, not a runtime condition callers should handle.
func NewPacket(b ...byte) Packet {
	if len(b) > maxPacketLen {
		panic("ps2dev: packet too long")
	}
	var p Packet
	p.Len = uint8(len(b))
	copy(p.Data[:], b)
	return p
}

// Bytes returns the packet's payload as a slice backed by its internal
// array. Callers must not retain the slice past the Packet's lifetime
// without copying it.
func (p *Packet) Bytes() []byte {
	return p.Data[:p.Len]
}
