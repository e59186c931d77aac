// Package bitstream provides a bit-addressable cursor over a byte buffer.
// It is the foundation the magstripe track decoder reads raw reader output
// through; the buffer grows on writes and never shrinks.
package bitstream

import "errors"

// ErrEndOfStream is returned by read operations once the cursor reaches the
// end of the buffer. Exhaustion is an expected condition for callers looping
// over reader output, so it is a sentinel value rather than a panic.
var ErrEndOfStream = errors.New("bitstream: end of stream")

// Order selects how bits are addressed within each byte.
type Order int

const (
	// MSBFirst addresses bit 0 as the most significant bit of a byte.
	MSBFirst Order = iota
	// LSBFirst addresses bit 0 as the least significant bit of a byte.
	LSBFirst
)

// Stream is a bit-level cursor over a growable byte buffer. The bit order is
// fixed for the lifetime of the instance. A Stream is not safe for
// concurrent use.
type Stream struct {
	data []byte
	pos  int // bit offset, 0 <= pos <= 8*len(data)
	ord  Order
}

// New creates a stream over a copy of data using MSB-first bit order.
func New(data []byte) *Stream {
	return NewWithOrder(data, MSBFirst)
}

// NewWithOrder creates a stream over a copy of data with the given bit order.
func NewWithOrder(data []byte, ord Order) *Stream {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Stream{data: buf, ord: ord}
}

// Rewind resets the cursor to the start of the stream.
func (s *Stream) Rewind() {
	s.pos = 0
}

// SeekBit moves the cursor to the given bit position. Positions past the end
// are allowed; the next read will report ErrEndOfStream and the next write
// will grow the buffer.
func (s *Stream) SeekBit(pos int) {
	if pos < 0 {
		pos = 0
	}
	s.pos = pos
}

// Tell returns the current bit position.
func (s *Stream) Tell() int {
	return s.pos
}

// Len returns the length of the stream in bits.
func (s *Stream) Len() int {
	return len(s.data) * 8
}

// Remaining returns the number of bits left between the cursor and the end.
func (s *Stream) Remaining() int {
	if r := len(s.data)*8 - s.pos; r > 0 {
		return r
	}
	return 0
}

// EOF reports whether the cursor is at or past the end of the stream.
func (s *Stream) EOF() bool {
	return s.pos >= len(s.data)*8
}

// ReadBit reads a single bit and advances the cursor.
func (s *Stream) ReadBit() (uint8, error) {
	if s.pos >= len(s.data)*8 {
		return 0, ErrEndOfStream
	}

	bytePos := s.pos / 8
	bitPos := s.pos % 8
	s.pos++

	if s.ord == MSBFirst {
		return (s.data[bytePos] >> (7 - bitPos)) & 1, nil
	}
	return (s.data[bytePos] >> bitPos) & 1, nil
}

// ReadBits reads count bits (at most 64) and composes them into an unsigned
// integer, first bit read ending up most significant.
func (s *Stream) ReadBits(count int) (uint64, error) {
	if count < 0 || count > 64 {
		return 0, errors.New("bitstream: bit count out of range [0,64]")
	}

	var result uint64
	for i := 0; i < count; i++ {
		bit, err := s.ReadBit()
		if err != nil {
			return 0, err
		}
		result = result<<1 | uint64(bit)
	}
	return result, nil
}

// ReadByte reads 8 bits as a byte.
func (s *Stream) ReadByte() (byte, error) {
	v, err := s.ReadBits(8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

// ReadBytes reads count bytes.
func (s *Stream) ReadBytes(count int) ([]byte, error) {
	out := make([]byte, 0, count)
	for i := 0; i < count; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// WriteBit writes a single bit at the cursor, growing the buffer one zero
// byte at a time as the cursor crosses byte boundaries. Writes do not fail.
func (s *Stream) WriteBit(bit uint8) {
	bytePos := s.pos / 8
	bitPos := s.pos % 8

	for bytePos >= len(s.data) {
		s.data = append(s.data, 0)
	}

	var mask byte
	if s.ord == MSBFirst {
		mask = 1 << (7 - bitPos)
	} else {
		mask = 1 << bitPos
	}

	if bit&1 == 1 {
		s.data[bytePos] |= mask
	} else {
		s.data[bytePos] &^= mask
	}
	s.pos++
}

// WriteBits writes the low count bits of value (at most 64), most
// significant first.
func (s *Stream) WriteBits(value uint64, count int) error {
	if count < 0 || count > 64 {
		return errors.New("bitstream: bit count out of range [0,64]")
	}
	for i := count - 1; i >= 0; i-- {
		s.WriteBit(uint8(value >> i))
	}
	return nil
}

// WriteByte writes a single byte. The error is always nil; the signature
// matches io.ByteWriter.
func (s *Stream) WriteByte(value byte) error {
	return s.WriteBits(uint64(value), 8)
}

// WriteBytes writes all given bytes.
func (s *Stream) WriteBytes(data []byte) {
	for _, b := range data {
		_ = s.WriteByte(b)
	}
}

// Bytes returns a copy of the underlying buffer.
func (s *Stream) Bytes() []byte {
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}
