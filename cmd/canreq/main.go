// Command canreq sends one readout request to a node over a cannelloni
// tunnel and prints the decoded response.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/envilink/canair/canbus"
	"github.com/envilink/canair/protocol"
)

func main() {
	localAddr := flag.String("local", "127.0.0.1:20001", "local UDP address of the tunnel")
	peerAddr := flag.String("peer", "127.0.0.1:20000", "UDP address of the node")
	slotList := flag.String("slots", "methane,co2,co,temperature,humidity,pressure", "comma-separated slots to request")
	timeout := flag.Duration("timeout", 2*time.Second, "how long to wait for the response")
	flag.Parse()

	sel, err := parseSlots(*slotList)
	if err != nil {
		log.Fatal(err)
	}

	bus, err := canbus.DialCannelloni(&canbus.CannelloniConfig{
		LocalAddr: *localAddr,
		PeerAddr:  *peerAddr,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	if err := bus.Transmit(canbus.NewFrame(protocol.RequestID, sel.Encode())); err != nil {
		log.Fatal(err)
	}

	payload, gotFrame2, err := awaitResponse(bus, *timeout)
	if err != nil {
		log.Fatal(err)
	}

	printReadout(sel, payload, gotFrame2)
}

func parseSlots(list string) (protocol.Selection, error) {
	byName := make(map[string]protocol.Slot, protocol.SlotCount)
	for slot := protocol.SlotMethane; slot <= protocol.SlotPressure; slot++ {
		byName[slot.String()] = slot
	}

	var slots []protocol.Slot
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}

		slot, ok := byName[name]
		if !ok {
			return protocol.Selection{}, &unknownSlotError{name: name}
		}

		slots = append(slots, slot)
	}

	return protocol.NewSelection(slots...), nil
}

type unknownSlotError struct {
	name string
}

func (e *unknownSlotError) Error() string {
	return "unknown slot: " + e.name
}

// awaitResponse polls the tunnel until the first response frame arrives,
// then keeps polling briefly for the pressure frame. It returns the
// reassembled payload buffer.
func awaitResponse(bus *canbus.Cannelloni, timeout time.Duration) ([protocol.PayloadLen]byte, bool, error) {
	var payload [protocol.PayloadLen]byte

	deadline := time.Now().Add(timeout)
	gotFrame1 := false
	gotFrame2 := false

	for time.Now().Before(deadline) {
		frame, ok, err := bus.TryReceive()
		if err != nil {
			return payload, false, err
		}
		if !ok {
			if gotFrame1 {
				// The pressure frame follows immediately or not at all
				if grace := time.Now().Add(50 * time.Millisecond); grace.Before(deadline) {
					deadline = grace
				}
			}
			time.Sleep(time.Millisecond)
			continue
		}

		switch frame.ID {
		case protocol.Response1ID:
			copy(payload[:protocol.Frame1Len], frame.Payload())
			gotFrame1 = true
		case protocol.Response2ID:
			payload[protocol.Frame1Len] = frame.Data[0]
			gotFrame2 = true
		}

		if gotFrame1 && gotFrame2 {
			return payload, true, nil
		}
	}

	if !gotFrame1 {
		return payload, false, &timeoutError{}
	}

	return payload, gotFrame2, nil
}

type timeoutError struct{}

func (*timeoutError) Error() string { return "timed out waiting for a response" }

func printReadout(sel protocol.Selection, payload [protocol.PayloadLen]byte, gotFrame2 bool) {
	log.Printf("payload: % X (pressure frame: %t)", payload, gotFrame2)

	for slot := protocol.SlotMethane; slot <= protocol.SlotPressure; slot++ {
		if !sel.Requested(slot) {
			continue
		}

		offset := slot.Offset()

		if slot.Width() == 2 {
			value := binary.BigEndian.Uint16(payload[offset : offset+2])
			log.Printf("%-12s %d %s", slot, value, slotUnit(slot))
			continue
		}

		if slot == protocol.SlotPressure && !gotFrame2 {
			log.Printf("%-12s (no pressure frame received)", slot)
			continue
		}

		log.Printf("%-12s %d %s", slot, payload[offset], slotUnit(slot))
	}
}

func slotUnit(slot protocol.Slot) string {
	switch slot {
	case protocol.SlotMethane, protocol.SlotCO2, protocol.SlotCO:
		return "ppm"
	case protocol.SlotTemperature:
		return "degC"
	case protocol.SlotHumidity:
		return "%RH"
	case protocol.SlotPressure:
		return "kPa"
	}

	return ""
}
