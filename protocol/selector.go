package protocol

// Selection is the decoded form of a selector frame payload.
// The zero value requests nothing.
type Selection struct {
	requested [SlotCount]bool
}

// NewSelection returns a [Selection] requesting the given slots.
func NewSelection(slots ...Slot) Selection {
	var sel Selection
	for _, slot := range slots {
		sel.requested[slot] = true
	}
	return sel
}

// DecodeSelector interprets the payload of a selector frame.
//
// Only the bytes actually present are examined: slots beyond the
// received length stay not requested. Malformed payloads are never
// rejected; a byte other than [SelectorRequested] simply skips the slot.
func DecodeSelector(data []byte) Selection {
	var sel Selection

	n := len(data)
	if n > SlotCount {
		n = SlotCount
	}

	for i := range n {
		sel.requested[i] = data[i] == SelectorRequested
	}

	return sel
}

// Requested reports whether the slot was requested.
func (s *Selection) Requested(slot Slot) bool {
	return s.requested[slot]
}

// Encode returns the 6-byte selector payload for the selection,
// using 0x00 for slots that are not requested.
func (s *Selection) Encode() []byte {
	buf := make([]byte, SlotCount)
	for i, requested := range s.requested {
		if requested {
			buf[i] = SelectorRequested
		}
	}
	return buf
}
