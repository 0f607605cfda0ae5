// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
Packet layout (big-endian):

	|<- 4 ->|<--- 8 --->|<---- 12 ---->|<- 2 ->|<--- N * 4 --->|
	+-------+-----------+--------------+-------+---------------+
	|  seq  | timestamp | bass mid tre |   N   |  amplitudes   |
	|  u32  |    i64    |   3 * f32    |  u16  |    N * f32    |
	+-------+-----------+--------------+-------+---------------+

timestamp is nanoseconds since the Unix epoch; levels are the shaped
bass/mid/treble values and amplitudes are the smoothed band amplitudes in
band order.
*/

const headerSize = 4 + 8 + 3*4 + 2

// ErrShortPacket is returned by ParsePacket for truncated input.
var ErrShortPacket = errors.New("short UDP packet")

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	Levels     [3]float32
	Amplitudes []float32
}

// AppendPacket appends the wire form of p to dst.
func AppendPacket(dst []byte, p Packet) []byte {
	dst = binary.BigEndian.AppendUint32(dst, p.Sequence)
	dst = binary.BigEndian.AppendUint64(dst, uint64(p.Timestamp))
	for _, v := range p.Levels {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	n := min(len(p.Amplitudes), math.MaxUint16)
	dst = binary.BigEndian.AppendUint16(dst, uint16(n))
	for _, v := range p.Amplitudes[:n] {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// ParsePacket decodes one datagram.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	var p Packet
	p.Sequence = binary.BigEndian.Uint32(b[0:])
	p.Timestamp = int64(binary.BigEndian.Uint64(b[4:]))
	for i := range p.Levels {
		p.Levels[i] = math.Float32frombits(binary.BigEndian.Uint32(b[12+4*i:]))
	}
	n := int(binary.BigEndian.Uint16(b[24:]))
	body := b[headerSize:]
	if len(body) < 4*n {
		return Packet{}, fmt.Errorf("%w: want %d amplitudes, have %d bytes", ErrShortPacket, n, len(body))
	}
	p.Amplitudes = make([]float32, n)
	for i := range p.Amplitudes {
		p.Amplitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(body[4*i:]))
	}
	return p, nil
}
