package protocol

import "github.com/envilink/canair/canbus"

type sample struct {
	present bool
	wide    uint16
	scalar  float64
}

// Response is the tagged per-slot outcome of serving one request.
// A slot either holds a sampled value or is absent; absent slots
// serialize as filler. Keeping the presence flag explicit here, and
// the serialization in a single place, is what separates "no value"
// from the 0xFF bytes on the wire.
type Response struct {
	samples [SlotCount]sample
}

// SetWide stores a sampled 16-bit reading for a two-byte slot.
func (r *Response) SetWide(slot Slot, value uint16) {
	r.samples[slot] = sample{present: true, wide: value}
}

// SetScalar stores a sampled scalar reading for a one-byte slot.
func (r *Response) SetScalar(slot Slot, value float64) {
	r.samples[slot] = sample{present: true, scalar: value}
}

// Sampled reports whether the slot holds a sampled value.
func (r *Response) Sampled(slot Slot) bool {
	return r.samples[slot].present
}

// Encode serializes the response into its fixed 9-byte payload.
// This is the only place the wire layout is produced.
func (r *Response) Encode() Payload {
	var buf Buffer

	for slot := SlotMethane; slot <= SlotPressure; slot++ {
		s := r.samples[slot]

		switch {
		case !s.present:
			buf.PutFiller(slot.Width())
		case slot.Width() == 2:
			buf.PutWide(s.wide)
		default:
			buf.PutTruncated(s.scalar)
		}
	}

	return Payload{data: buf.data}
}

// Payload is the serialized 9-byte form of a [Response].
type Payload struct {
	data [PayloadLen]byte
}

// Bytes returns the payload bytes.
func (p *Payload) Bytes() []byte {
	return p.data[:]
}

// PressureByte returns the final payload byte. The reference firmware
// uses it being non-zero as the "pressure was requested" signal, even
// though the filler of an un-requested pressure slot is non-zero too.
func (p *Payload) PressureByte() byte {
	return p.data[PayloadLen-1]
}

// Frame1 builds the mandatory first response frame from payload
// bytes 0..7.
func (p *Payload) Frame1() canbus.Frame {
	return canbus.NewFrame(Response1ID, p.data[:Frame1Len])
}

// Frame2 builds the conditional second response frame from payload
// byte 8.
func (p *Payload) Frame2() canbus.Frame {
	return canbus.NewFrame(Response2ID, p.data[Frame1Len:])
}
