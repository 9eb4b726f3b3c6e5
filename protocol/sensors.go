package protocol

import (
	"context"
	"fmt"
)

// Sensors is the sensor access layer contract consumed by the
// [Assembler]. Implementations own latency and failure handling of the
// underlying drivers; every accessor is synchronous.
type Sensors interface {
	// Methane returns the instantaneous methane reading, already
	// scaled to the channel's configured measurement range.
	Methane(ctx context.Context) (uint16, error)

	// CO2 returns the CO2 concentration in ppm.
	CO2(ctx context.Context) (uint16, error)

	// CO returns the instantaneous carbon monoxide reading.
	CO(ctx context.Context) (uint16, error)

	// TemperaturePair returns the ambient sensor temperature and the
	// CO2 sensor onboard temperature, both in degrees Celsius.
	TemperaturePair(ctx context.Context) (ambient, co2Sensor float64, err error)

	// HumidityPair returns the ambient sensor humidity and the CO2
	// sensor onboard humidity, both in %RH.
	HumidityPair(ctx context.Context) (ambient, co2Sensor float64, err error)

	// Pressure returns the atmospheric pressure in pascals.
	Pressure(ctx context.Context) (float64, error)
}

// SlotError reports a failed sensor read for one slot.
type SlotError struct {
	Slot Slot
	Err  error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Slot, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}
