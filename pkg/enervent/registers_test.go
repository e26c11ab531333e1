package enervent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMode(t *testing.T) {
	m, err := ResolveMode("away")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), m.Coil)
	assert.True(t, m.MutuallyExclusive)

	m, err = ResolveMode("cookerHood")
	require.NoError(t, err)
	assert.False(t, m.MutuallyExclusive)

	_, err = ResolveMode("turbo")
	assert.True(t, errors.Is(err, ErrUnknownMode))
}

func TestModesAreUnique(t *testing.T) {
	coils := map[uint16]Mode{}
	for _, m := range Modes {
		_, dup := coils[m.Coil]
		assert.False(t, dup, "coil %d", m.Coil)
		coils[m.Coil] = m.Mode
	}
}

func TestResolveSetting(t *testing.T) {
	s, err := ResolveSetting("temperatureTarget")
	require.NoError(t, err)
	assert.Equal(t, uint16(135), s.Address)
	assert.Equal(t, HoldingRegister, s.Kind)
	assert.Equal(t, 1, s.Decimals)
	assert.Equal(t, 10.0, s.RegisterScale())
	assert.Equal(t, 10.0, *s.Min)
	assert.Equal(t, 30.0, *s.Max)

	s, err = ResolveSetting("defrostingAllowed")
	require.NoError(t, err)
	assert.Equal(t, Coil, s.Kind)
	assert.Nil(t, s.Min)
	assert.Equal(t, 1.0, s.RegisterScale())

	_, err = ResolveSetting("bogus")
	assert.True(t, errors.Is(err, ErrUnknownSetting))
}

func TestCoilSettingsCarryNoNumericMetadata(t *testing.T) {
	for _, s := range SettingRegisters {
		if s.Kind != Coil {
			continue
		}
		assert.Zero(t, s.Decimals, s.Setting)
		assert.Zero(t, s.Scale, s.Setting)
		assert.Nil(t, s.Min, s.Setting)
		assert.Nil(t, s.Max, s.Setting)
	}
}

func TestResolveAlarm(t *testing.T) {
	a, ok := ResolveAlarm(16)
	require.True(t, ok)
	assert.Equal(t, "SupplyFilterDirty", a.Name)

	_, ok = ResolveAlarm(18)
	assert.False(t, ok)
	assert.Len(t, Alarms, 19)
}

func TestResolveAnalogSensorType(t *testing.T) {
	_, ok := ResolveAnalogSensorType(0)
	assert.False(t, ok)
	_, ok = ResolveAnalogSensorType(7)
	assert.False(t, ok)

	st, ok := ResolveAnalogSensorType(8)
	require.True(t, ok)
	assert.Equal(t, SensorRoomTemperature, st.Kind)
}

func TestLookupNames(t *testing.T) {
	assert.Equal(t, "Pegasos XL", DeviceFamilyName(4))
	assert.Equal(t, Unknown, DeviceFamilyName(9))
	assert.Nil(t, CoolingTypeName(0))
	assert.Equal(t, "CX_INV", *CoolingTypeName(5))
	assert.Nil(t, CoolingTypeName(99))
	assert.Equal(t, HeatingTypeEDW, HeatingTypeName(1))
	assert.Equal(t, Unknown, HeatingTypeName(4))
}

func TestRegisterKindJSON(t *testing.T) {
	b, err := json.Marshal(HoldingRegister)
	require.NoError(t, err)
	assert.Equal(t, `"holding"`, string(b))

	var rk RegisterKind
	require.NoError(t, json.Unmarshal([]byte(`"coil"`), &rk))
	assert.Equal(t, Coil, rk)
	assert.Error(t, json.Unmarshal([]byte(`"input"`), &rk))
}

func TestRangeError(t *testing.T) {
	err := error(&RangeError{Setting: SettingTemperatureTarget, Value: 5, Bound: BoundMinimum, Limit: 10})
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Contains(t, err.Error(), "minimum of 10")
	assert.Contains(t, err.Error(), "5")
}

func TestReadingsMarshal(t *testing.T) {
	avg := 21.5
	r := Readings{FreshAirTemperature: -3.2, RoomTemperatureAvg: &avg, AnalogInputs: map[string]float64{"analogInputCo21": 600}}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	m := map[string]float64{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, -3.2, m["freshAirTemperature"])
	assert.Equal(t, 21.5, m["roomTemperatureAvg"])
	assert.Equal(t, 600.0, m["analogInputCo21"])
	_, ok := m["returnWaterTemperature"]
	assert.False(t, ok)
}

func TestSettingsMap(t *testing.T) {
	allowed := true
	s := Settings{TemperatureTarget: 21.5, CoolingAllowed: &allowed}
	m := s.Map()
	assert.Equal(t, 21.5, m[SettingTemperatureTarget])
	assert.Equal(t, true, m[SettingCoolingAllowed])
	assert.Equal(t, false, m[SettingDefrostingAllowed])
	_, ok := m[SettingHeatingAllowed]
	assert.False(t, ok)
}

func TestSettingsMapCoversSettingRegisters(t *testing.T) {
	allowed := false
	s := Settings{
		CoolingAllowed:         &allowed,
		HeatingAllowed:         &allowed,
		AwayCoolingAllowed:     &allowed,
		AwayHeatingAllowed:     &allowed,
		LongAwayCoolingAllowed: &allowed,
		LongAwayHeatingAllowed: &allowed,
	}
	m := s.Map()
	assert.Len(t, m, len(SettingRegisters))
	for _, r := range SettingRegisters {
		_, ok := m[r.Setting]
		assert.True(t, ok, r.Setting)
	}
}
