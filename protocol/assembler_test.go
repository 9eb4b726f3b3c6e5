package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSensors struct {
	methane uint16
	co2     uint16
	co      uint16

	tempAmbient   float64
	tempCO2Sensor float64
	humAmbient    float64
	humCO2Sensor  float64
	pressurePa    float64

	failing map[Slot]error
}

func (m *mockSensors) failFor(slot Slot) error {
	if m.failing == nil {
		return nil
	}
	return m.failing[slot]
}

func (m *mockSensors) Methane(_ context.Context) (uint16, error) {
	return m.methane, m.failFor(SlotMethane)
}

func (m *mockSensors) CO2(_ context.Context) (uint16, error) {
	return m.co2, m.failFor(SlotCO2)
}

func (m *mockSensors) CO(_ context.Context) (uint16, error) {
	return m.co, m.failFor(SlotCO)
}

func (m *mockSensors) TemperaturePair(_ context.Context) (float64, float64, error) {
	return m.tempAmbient, m.tempCO2Sensor, m.failFor(SlotTemperature)
}

func (m *mockSensors) HumidityPair(_ context.Context) (float64, float64, error) {
	return m.humAmbient, m.humCO2Sensor, m.failFor(SlotHumidity)
}

func (m *mockSensors) Pressure(_ context.Context) (float64, error) {
	return m.pressurePa, m.failFor(SlotPressure)
}

func Test_Assemble_MethaneAndTemperature(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	asm := NewAssembler(&mockSensors{
		methane:       300,
		tempAmbient:   21.7,
		tempCO2Sensor: 21.7,
	})

	sel := DecodeSelector([]byte{0x11, 0x00, 0x00, 0x11, 0x00, 0x00})

	resp, errs := asm.Assemble(context.Background(), sel)
	require.Empty(errs)

	payload := resp.Encode()
	assert.Equal([]byte{0x01, 0x2C, 0xFF, 0xFF, 0xFF, 0xFF, 0x15, 0xFF, 0xFF}, payload.Bytes())

	frame1 := payload.Frame1()
	assert.Equal(Response1ID, frame1.ID)
	assert.Equal(uint8(Frame1Len), frame1.Length)
	assert.Equal([]byte{0x01, 0x2C, 0xFF, 0xFF, 0xFF, 0xFF, 0x15, 0xFF}, frame1.Payload())

	// The un-requested pressure slot leaves non-zero filler at byte 8
	assert.Equal(Filler, payload.PressureByte())
	assert.False(resp.Sampled(SlotPressure))
}

func Test_Assemble_PressureOnly(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	asm := NewAssembler(&mockSensors{pressurePa: 98_400})

	sel := DecodeSelector([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x11})

	resp, errs := asm.Assemble(context.Background(), sel)
	require.Empty(errs)
	assert.True(resp.Sampled(SlotPressure))

	payload := resp.Encode()
	assert.Equal(byte(0x62), payload.PressureByte())

	frame2 := payload.Frame2()
	assert.Equal(Response2ID, frame2.ID)
	assert.Equal(uint8(Frame2Len), frame2.Length)
	assert.Equal([]byte{0x62}, frame2.Payload())
}

func Test_Assemble_AllSkipped(t *testing.T) {
	assert := assert.New(t)

	asm := NewAssembler(&mockSensors{})

	resp, errs := asm.Assemble(context.Background(), DecodeSelector([]byte{0, 0, 0, 0, 0, 0}))
	assert.Empty(errs)

	payload := resp.Encode()
	assert.Equal([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, payload.Bytes())
	frame1 := payload.Frame1()
	assert.Equal([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, frame1.Payload())
}

func Test_Assemble_ShortSelector(t *testing.T) {
	assert := assert.New(t)

	asm := NewAssembler(&mockSensors{methane: 512, co: 77})

	resp, errs := asm.Assemble(context.Background(), DecodeSelector([]byte{0x11, 0x00, 0x11}))
	assert.Empty(errs)

	// Absent slots still fill their width, the payload is always 9 bytes
	payload := resp.Encode()
	assert.Equal([]byte{0x02, 0x00, 0xFF, 0xFF, 0x00, 0x4D, 0xFF, 0xFF, 0xFF}, payload.Bytes())
}

func Test_Assemble_Derivations(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	asm := NewAssembler(&mockSensors{
		tempAmbient:   20.0,
		tempCO2Sensor: 23.0,
		humAmbient:    40.0,
		humCO2Sensor:  51.0,
		pressurePa:    101_325,
	})

	sel := NewSelection(SlotTemperature, SlotHumidity, SlotPressure)

	resp, errs := asm.Assemble(context.Background(), sel)
	require.Empty(errs)

	payload := resp.Encode()

	// temperature: mean(20, 23) = 21.5 -> 21
	assert.Equal(byte(0x15), payload.Bytes()[6])
	// humidity: mean(40, 51) = 45.5 -> 45
	assert.Equal(byte(0x2D), payload.Bytes()[7])
	// pressure: 101325 Pa / 1000 = 101.325 kPa -> 101
	assert.Equal(byte(0x65), payload.Bytes()[8])
}

func Test_Assemble_SensorFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	readErr := errors.New("i2c timeout")

	asm := NewAssembler(&mockSensors{
		methane: 300,
		failing: map[Slot]error{SlotCO2: readErr},
	})

	sel := NewSelection(SlotMethane, SlotCO2)

	resp, errs := asm.Assemble(context.Background(), sel)

	require.Len(errs, 1)
	assert.Equal(SlotCO2, errs[0].Slot)
	assert.ErrorIs(errs[0], readErr)

	// The failed slot falls back to filler instead of stalling
	payload := resp.Encode()
	assert.Equal([]byte{0x01, 0x2C, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, payload.Bytes())
}

func Test_Assemble_LayoutInvariant(t *testing.T) {
	assert := assert.New(t)

	sensors := &mockSensors{
		methane:       300,
		co2:           1_200,
		co:            45,
		tempAmbient:   21.0,
		tempCO2Sensor: 21.0,
		humAmbient:    50.0,
		humCO2Sensor:  50.0,
		pressurePa:    98_400,
	}
	asm := NewAssembler(sensors)

	slotOffsets := [SlotCount]int{0, 2, 4, 6, 7, 8}
	slotValues := [SlotCount][]byte{
		{0x01, 0x2C},
		{0x04, 0xB0},
		{0x00, 0x2D},
		{0x15},
		{0x32},
		{0x62},
	}

	// Every selection bitmap yields the same 9-byte layout, with each
	// slot carrying either its encoding or its filler at a fixed offset
	for mask := range 1 << SlotCount {
		selector := make([]byte, SlotCount)
		for i := range SlotCount {
			if mask&(1<<i) != 0 {
				selector[i] = SelectorRequested
			}
		}

		resp, errs := asm.Assemble(context.Background(), DecodeSelector(selector))
		assert.Empty(errs)

		payload := resp.Encode()
		raw := payload.Bytes()
		assert.Len(raw, PayloadLen)

		for slot := SlotMethane; slot <= SlotPressure; slot++ {
			offset := slotOffsets[slot]
			got := raw[offset : offset+slot.Width()]

			if mask&(1<<slot) != 0 {
				assert.Equal(slotValues[slot], got, "mask %06b slot %s", mask, slot)
			} else {
				for _, b := range got {
					assert.Equal(Filler, b, "mask %06b slot %s", mask, slot)
				}
			}
		}
	}
}
