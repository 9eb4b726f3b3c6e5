// Package canbus defines the CAN frame type and the bus transports
// used by the responder.
package canbus

// MaxDataLen is the payload size limit of a classic CAN frame.
const MaxDataLen = 8

// Frame is a classic CAN 2.0 data frame with an 11-bit identifier.
type Frame struct {
	ID     uint32
	Length uint8
	Data   [MaxDataLen]byte
}

// NewFrame returns a frame with the given identifier and payload.
// Payloads longer than [MaxDataLen] are truncated.
func NewFrame(id uint32, data []byte) Frame {
	f := Frame{ID: id}

	n := len(data)
	if n > MaxDataLen {
		n = MaxDataLen
	}

	f.Length = uint8(n)
	copy(f.Data[:n], data[:n])

	return f
}

// Payload returns the valid bytes of the frame data.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Length]
}
