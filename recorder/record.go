// Package recorder provides the egress stages consuming served-request
// records: a QuestDB row writer and an MQTT JSON publisher.
package recorder

import (
	"encoding/binary"

	"github.com/envilink/canair/protocol"
	"github.com/envilink/canair/responder"
)

// slotReading extracts the sampled reading of a slot from a record
// payload. The second return value is false for slots that hold filler.
func slotReading(record *responder.Record, slot protocol.Slot) (float64, bool) {
	if !record.Sampled[slot] {
		return 0, false
	}

	offset := slot.Offset()

	if slot.Width() == 2 {
		return float64(binary.BigEndian.Uint16(record.Payload[offset:])), true
	}

	return float64(record.Payload[offset]), true
}
