package enervent

import (
	"fmt"
	"strings"
	"time"
)

// negativeThreshold marks the start of the negative temperature range; the unit stores
// negative tenths as 65536 - |value|.
const negativeThreshold = 60000

// DecodeTemperature converts a raw register word holding tenths of a degree.
func DecodeTemperature(raw uint16) float64 {
	v := int(raw)
	if v > negativeThreshold {
		v = (65536 - v) * -1
	}
	return float64(v) / 10
}

// EncodeSigned converts a signed register value to its 16-bit wire representation.
func EncodeSigned(v int) uint16 {
	if v < 0 {
		return uint16(65536 + v)
	}
	return uint16(v)
}

func DecodeDeviceState(word uint16) DeviceState {
	return DeviceState{
		Normal:               word == 0,
		MaxCooling:           word&1 != 0,
		MaxHeating:           word&2 != 0,
		EmergencyStop:        word&4 != 0,
		Stop:                 word&8 != 0,
		Away:                 word&16 != 0,
		LongAway:             word&32 != 0,
		TemperatureBoost:     word&64 != 0,
		CO2Boost:             word&128 != 0,
		HumidityBoost:        word&256 != 0,
		ManualBoost:          word&512 != 0,
		OverPressure:         word&1024 != 0,
		CookerHood:           word&2048 != 0,
		CentralVacuumCleaner: word&4096 != 0,
		HeaterCooldown:       word&8192 != 0,
		SummerNightCooling:   word&16384 != 0,
		Defrosting:           word&32768 != 0,
	}
}

// DecodeAnalogSensors maps each configured analog input slot to its reading. Unconfigured
// slots produce no key at all.
func DecodeAnalogSensors(types, values []uint16) map[string]float64 {
	readings := make(map[string]float64)
	for i := 0; i < AnalogInputCount && i < len(types) && i < len(values); i++ {
		sensor, ok := ResolveAnalogSensorType(types[i])
		if !ok {
			continue
		}
		switch sensor.Kind {
		case SensorCO2, SensorRH:
			readings[sensor.Name] = float64(values[i])
		case SensorRoomTemperature:
			readings[sensor.Name] = DecodeTemperature(values[i])
		}
	}
	return readings
}

func HasRoomTemperatureSensor(types []uint16) bool {
	for i := 0; i < AnalogInputCount && i < len(types); i++ {
		if sensor, ok := ResolveAnalogSensorType(types[i]); ok && sensor.Kind == SensorRoomTemperature {
			return true
		}
	}
	return false
}

// ComposeModelName builds e.g. "LTR-3 eco EDE/MDE - CG".
func ComposeModelName(info DeviceInformation) string {
	var b strings.Builder
	b.WriteString(info.ModelType)
	if info.FanType == FanTypeEC {
		b.WriteString(" eco")
	}
	if info.HeatingTypeInstalled != nil {
		b.WriteString(" ")
		b.WriteString(*info.HeatingTypeInstalled)
	}
	if info.CoolingTypeInstalled != nil {
		b.WriteString(" - ")
		b.WriteString(*info.CoolingTypeInstalled)
	}
	return b.String()
}

// DecodeAlarmTimestamp reads year offset, month, day, hour and minute from an alarm slot. The
// unit has no notion of time zones so the host's local zone is assumed.
func DecodeAlarmTimestamp(slot []uint16) (time.Time, error) {
	if len(slot) < AlarmSlotLength {
		return time.Time{}, fmt.Errorf("alarm slot holds %d registers, want %d", len(slot), AlarmSlotLength)
	}
	return time.Date(int(slot[2])+2000, time.Month(slot[3]), int(slot[4]), int(slot[5]), int(slot[6]), 0, 0, time.Local), nil
}

func DetermineAutomationType(version uint16) AutomationType {
	switch {
	case version > 190 && version <= 201:
		return AutomationTypeLegacyEDA
	case version < 190:
		return AutomationTypeMD
	default:
		return AutomationTypeEDA
	}
}

// DeviceIdentifier is used as node id in Home Assistant discovery topics and must match [a-zA-Z0-9_-].
func DeviceIdentifier(info DeviceInformation) string {
	id := strings.ToLower(fmt.Sprintf("enervent-%s-%s", info.ModelType, info.FanType))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
