package enervent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func TestDecodeTemperature(t *testing.T) {
	assert.Equal(t, 17.1, DecodeTemperature(171))
	assert.Equal(t, -5.0, DecodeTemperature(65486))
	assert.Equal(t, 0.0, DecodeTemperature(0))
	assert.Equal(t, 6000.0, DecodeTemperature(60000))
	assert.Equal(t, -0.1, DecodeTemperature(65535))
}

func TestDecodeTemperatureSign(t *testing.T) {
	for raw := 0; raw <= 65535; raw++ {
		v := DecodeTemperature(uint16(raw))
		if raw <= 60000 {
			require.GreaterOrEqual(t, v, 0.0, "raw %d", raw)
		} else {
			require.Less(t, v, 0.0, "raw %d", raw)
		}
	}
}

func TestEncodeSigned(t *testing.T) {
	assert.Equal(t, uint16(225), EncodeSigned(225))
	assert.Equal(t, uint16(65486), EncodeSigned(-50))
	assert.Equal(t, -5.0, DecodeTemperature(EncodeSigned(-50)))
}

func TestDecodeDeviceState(t *testing.T) {
	assert.Equal(t, DeviceState{Normal: true}, DecodeDeviceState(0))
	assert.Equal(t, DeviceState{Away: true}, DecodeDeviceState(16))

	state := DecodeDeviceState(1 + 4 + 16 + 64 + 256 + 1024 + 4096 + 16384)
	assert.Equal(t, DeviceState{
		MaxCooling:           true,
		EmergencyStop:        true,
		Away:                 true,
		TemperatureBoost:     true,
		HumidityBoost:        true,
		OverPressure:         true,
		CentralVacuumCleaner: true,
		SummerNightCooling:   true,
	}, state)

	all := DecodeDeviceState(65535)
	assert.False(t, all.Normal)
	assert.True(t, all.Defrosting)
	assert.True(t, all.HeaterCooldown)
	assert.True(t, all.CO2Boost)
}

func TestComposeModelName(t *testing.T) {
	tests := []struct {
		name string
		info DeviceInformation
		want string
	}{
		{
			name: "eco with heating",
			info: DeviceInformation{ModelType: "Pingvin", FanType: FanTypeEC, HeatingTypeInstalled: strPtr("EDE")},
			want: "Pingvin eco EDE",
		},
		{
			name: "bare",
			info: DeviceInformation{ModelType: "Pandion", FanType: FanTypeAC},
			want: "Pandion",
		},
		{
			name: "everything",
			info: DeviceInformation{ModelType: "LTR-3", FanType: FanTypeEC, HeatingTypeInstalled: strPtr(HeatingTypeEDE), CoolingTypeInstalled: strPtr("CG")},
			want: "LTR-3 eco EDE/MDE - CG",
		},
		{
			name: "cooling only",
			info: DeviceInformation{ModelType: "Pelican", FanType: FanTypeAC, CoolingTypeInstalled: strPtr("HP")},
			want: "Pelican - HP",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeModelName(tt.info))
		})
	}
}

func TestDecodeAlarmTimestamp(t *testing.T) {
	ts, err := DecodeAlarmTimestamp([]uint16{10, 2, 22, 1, 21, 13, 45})
	require.NoError(t, err)
	assert.Equal(t, 2022, ts.Year())
	assert.Equal(t, time.January, ts.Month())
	assert.Equal(t, 21, ts.Day())
	assert.Equal(t, 13, ts.Hour())
	assert.Equal(t, 45, ts.Minute())
	assert.Equal(t, 0, ts.Second())
	assert.Equal(t, time.Local, ts.Location())

	_, err = DecodeAlarmTimestamp([]uint16{10, 2})
	assert.Error(t, err)
}

func TestDecodeAnalogSensors(t *testing.T) {
	assert.Empty(t, DecodeAnalogSensors(make([]uint16, 6), []uint16{1, 2, 3, 4, 5, 6}))

	readings := DecodeAnalogSensors(
		[]uint16{1, 0, 5, 9, 7, 42},
		[]uint16{650, 99, 45, 215, 11, 12},
	)
	assert.Equal(t, map[string]float64{
		"analogInputCo21":             650,
		"analogInputHumidity2":        45,
		"analogInputRoomTemperature2": 21.5,
	}, readings)
}

func TestHasRoomTemperatureSensor(t *testing.T) {
	assert.False(t, HasRoomTemperatureSensor([]uint16{0, 1, 4, 0, 0, 0}))
	assert.True(t, HasRoomTemperatureSensor([]uint16{0, 0, 0, 0, 0, 10}))
}

func TestDetermineAutomationType(t *testing.T) {
	assert.Equal(t, AutomationTypeMD, DetermineAutomationType(189))
	assert.Equal(t, AutomationTypeEDA, DetermineAutomationType(190))
	assert.Equal(t, AutomationTypeLegacyEDA, DetermineAutomationType(191))
	assert.Equal(t, AutomationTypeLegacyEDA, DetermineAutomationType(201))
	assert.Equal(t, AutomationTypeEDA, DetermineAutomationType(202))
}

func TestDeviceIdentifier(t *testing.T) {
	assert.Equal(t, "enervent-pingvin-ec", DeviceIdentifier(DeviceInformation{ModelType: "Pingvin", FanType: FanTypeEC}))
	assert.Equal(t, "enervent-pegasos_xl-ac", DeviceIdentifier(DeviceInformation{ModelType: "Pegasos XL", FanType: FanTypeAC}))
}
