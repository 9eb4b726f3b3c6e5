package protocol

import "context"

// Assembler samples the requested slots of a [Selection] and produces
// the [Response]. Sensors are an injected dependency, so assembly is
// fully deterministic under test.
type Assembler struct {
	sensors Sensors
}

func NewAssembler(sensors Sensors) *Assembler {
	if sensors == nil {
		panic("protocol: nil sensors")
	}

	return &Assembler{
		sensors: sensors,
	}
}

// Assemble walks the six slots in wire order and samples every
// requested one, applying the per-slot derivation rules:
//
//   - methane, CO2, CO: raw reading as-is
//   - temperature, humidity: mean of the ambient and CO2 sensor readings
//   - pressure: pascals divided by 1000, giving kilopascals
//
// A failed read leaves its slot absent, so it serializes as filler
// instead of stalling the request. Failures are reported per slot.
func (a *Assembler) Assemble(ctx context.Context, sel Selection) (*Response, []*SlotError) {
	resp := &Response{}

	var errs []*SlotError
	fail := func(slot Slot, err error) {
		errs = append(errs, &SlotError{Slot: slot, Err: err})
	}

	if sel.Requested(SlotMethane) {
		if v, err := a.sensors.Methane(ctx); err != nil {
			fail(SlotMethane, err)
		} else {
			resp.SetWide(SlotMethane, v)
		}
	}

	if sel.Requested(SlotCO2) {
		if v, err := a.sensors.CO2(ctx); err != nil {
			fail(SlotCO2, err)
		} else {
			resp.SetWide(SlotCO2, v)
		}
	}

	if sel.Requested(SlotCO) {
		if v, err := a.sensors.CO(ctx); err != nil {
			fail(SlotCO, err)
		} else {
			resp.SetWide(SlotCO, v)
		}
	}

	if sel.Requested(SlotTemperature) {
		if ambient, co2Sensor, err := a.sensors.TemperaturePair(ctx); err != nil {
			fail(SlotTemperature, err)
		} else {
			resp.SetScalar(SlotTemperature, (ambient+co2Sensor)/2)
		}
	}

	if sel.Requested(SlotHumidity) {
		if ambient, co2Sensor, err := a.sensors.HumidityPair(ctx); err != nil {
			fail(SlotHumidity, err)
		} else {
			resp.SetScalar(SlotHumidity, (ambient+co2Sensor)/2)
		}
	}

	if sel.Requested(SlotPressure) {
		if pa, err := a.sensors.Pressure(ctx); err != nil {
			fail(SlotPressure, err)
		} else {
			resp.SetScalar(SlotPressure, pa/1000)
		}
	}

	return resp, errs
}
