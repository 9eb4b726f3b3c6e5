// Package protocol implements the selective-readout protocol of the
// sensor node.
//
// A requester sends a selector frame (ID 0x1A4) carrying one byte per
// measurement slot; a slot whose byte equals 0x11 is requested. The node
// replies with a mandatory 8-byte frame (ID 0x1A5) and a conditional
// 1-byte frame (ID 0x1A6), packed from a fixed 9-byte payload:
//
//	 ------------------------------------------------------------------
//	| Methane(2) | CO2(2) | CO(2) | Temp(1) | Humidity(1) | Pressure(1) |
//	 ------------------------------------------------------------------
//
// Two-byte slots are encoded most-significant byte first. One-byte slots
// carry the reading truncated toward zero. Slots that were not requested
// keep their full width, filled with 0xFF, so the payload layout never
// depends on the selection.
package protocol

const (
	// RequestID is the identifier of inbound selector frames.
	RequestID uint32 = 0x1A4
	// Response1ID is the identifier of the mandatory first response frame.
	Response1ID uint32 = 0x1A5
	// Response2ID is the identifier of the conditional second response frame.
	Response2ID uint32 = 0x1A6

	// SelectorRequested is the selector byte value marking a slot as
	// requested. Any other value means the slot is skipped.
	SelectorRequested byte = 0x11

	// Filler is the byte written in place of a reading for slots
	// without a sampled value.
	Filler byte = 0xFF

	// SlotCount is the number of measurement slots.
	SlotCount = 6

	// PayloadLen is the total encoded width of all slots.
	PayloadLen = 9

	// Frame1Len is the payload length of the first response frame.
	Frame1Len = 8
	// Frame2Len is the payload length of the second response frame.
	Frame2Len = 1
)

// Slot is one of the six measurement slots, in wire order.
type Slot int

const (
	SlotMethane Slot = iota
	SlotCO2
	SlotCO
	SlotTemperature
	SlotHumidity
	SlotPressure
)

func (s Slot) String() string {
	switch s {
	case SlotMethane:
		return "methane"
	case SlotCO2:
		return "co2"
	case SlotCO:
		return "co"
	case SlotTemperature:
		return "temperature"
	case SlotHumidity:
		return "humidity"
	case SlotPressure:
		return "pressure"
	default:
		return "unknown"
	}
}

// Width returns the encoded byte width of the slot. The width is
// consumed whether the slot carries a reading or filler.
func (s Slot) Width() int {
	if s <= SlotCO {
		return 2
	}
	return 1
}

// Offset returns the byte offset of the slot in the payload. Offsets
// are fixed because every slot consumes its width regardless of the
// selection.
func (s Slot) Offset() int {
	if s <= SlotCO {
		return int(s) * 2
	}
	return 6 + int(s-SlotTemperature)
}
