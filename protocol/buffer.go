package protocol

import (
	"encoding/binary"
	"fmt"
)

// Buffer is the bounded output buffer the response payload is packed
// into. Writes append at a cursor; the capacity check can never trigger
// as long as every slot consumes exactly its fixed width.
type Buffer struct {
	data   [PayloadLen]byte
	cursor int
}

func (b *Buffer) ensure(width int) {
	if b.cursor+width > PayloadLen {
		panic(fmt.Sprintf("protocol: output buffer overflow: cursor %d, width %d", b.cursor, width))
	}
}

// PutWide appends a 16-bit reading, most-significant byte first.
func (b *Buffer) PutWide(value uint16) {
	b.ensure(2)
	binary.BigEndian.PutUint16(b.data[b.cursor:], value)
	b.cursor += 2
}

// PutTruncated appends a scalar reading as a single byte. The
// fractional part is discarded (truncation toward zero, no rounding)
// and out-of-range values wrap, matching a modular narrowing
// conversion.
func (b *Buffer) PutTruncated(value float64) {
	b.ensure(1)
	b.data[b.cursor] = uint8(int64(value))
	b.cursor++
}

// PutFiller appends width filler bytes.
func (b *Buffer) PutFiller(width int) {
	b.ensure(width)
	for range width {
		b.data[b.cursor] = Filler
		b.cursor++
	}
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	return b.cursor
}

// Bytes returns the written bytes.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.cursor]
}
