package enervent

import (
	"github.com/pkg/errors"
)

type Mode string

const (
	ModeAway                 Mode = "away"
	ModeLongAway             Mode = "longAway"
	ModeOverPressure         Mode = "overPressure"
	ModeCookerHood           Mode = "cookerHood"
	ModeCentralVacuumCleaner Mode = "centralVacuumCleaner"
	ModeMaxHeating           Mode = "maxHeating"
	ModeMaxCooling           Mode = "maxCooling"
	ModeManualBoost          Mode = "manualBoost"
	ModeSummerNightCooling   Mode = "summerNightCooling"
	ModeEco                  Mode = "eco"
)

type ModeRegister struct {
	Mode              Mode   `json:"mode"`
	Coil              uint16 `json:"coil"`
	MutuallyExclusive bool   `json:"mutuallyExclusive"`
}

// Modes is ordered by coil address.
var Modes = []ModeRegister{
	{Mode: ModeAway, Coil: 1, MutuallyExclusive: true},
	{Mode: ModeLongAway, Coil: 2, MutuallyExclusive: true},
	{Mode: ModeOverPressure, Coil: 3, MutuallyExclusive: true},
	{Mode: ModeCookerHood, Coil: 4},
	{Mode: ModeCentralVacuumCleaner, Coil: 5},
	{Mode: ModeMaxHeating, Coil: 6, MutuallyExclusive: true},
	{Mode: ModeMaxCooling, Coil: 7, MutuallyExclusive: true},
	{Mode: ModeManualBoost, Coil: 10, MutuallyExclusive: true},
	{Mode: ModeSummerNightCooling, Coil: 12},
	{Mode: ModeEco, Coil: 40, MutuallyExclusive: true},
}

type Setting string

const (
	SettingOverPressureDelay            Setting = "overPressureDelay"
	SettingAwayVentilationLevel         Setting = "awayVentilationLevel"
	SettingAwayTemperatureReduction     Setting = "awayTemperatureReduction"
	SettingLongAwayVentilationLevel     Setting = "longAwayVentilationLevel"
	SettingLongAwayTemperatureReduction Setting = "longAwayTemperatureReduction"
	SettingTemperatureControlMode       Setting = "temperatureControlMode"
	SettingTemperatureTarget            Setting = "temperatureTarget"
	SettingSupplyFanOverPressure        Setting = "supplyFanOverPressure"
	SettingExhaustFanOverPressure       Setting = "exhaustFanOverPressure"
	SettingCoolingAllowed               Setting = "coolingAllowed"
	SettingHeatingAllowed               Setting = "heatingAllowed"
	SettingAwayCoolingAllowed           Setting = "awayCoolingAllowed"
	SettingAwayHeatingAllowed           Setting = "awayHeatingAllowed"
	SettingLongAwayCoolingAllowed       Setting = "longAwayCoolingAllowed"
	SettingLongAwayHeatingAllowed       Setting = "longAwayHeatingAllowed"
	SettingDefrostingAllowed            Setting = "defrostingAllowed"
)

// SettingRegister describes where a setting lives. Coil settings never carry decimals, scale or bounds.
type SettingRegister struct {
	Setting  Setting      `json:"setting"`
	Address  uint16       `json:"address"`
	Kind     RegisterKind `json:"kind"`
	Decimals int          `json:"decimals,omitempty"`
	Scale    float64      `json:"scale,omitempty"`
	Min      *float64     `json:"min,omitempty"`
	Max      *float64     `json:"max,omitempty"`
}

// RegisterScale returns the multiplier applied before writing, defaulting to 1.
func (sr SettingRegister) RegisterScale() float64 {
	if sr.Scale == 0 {
		return 1
	}
	return sr.Scale
}

func bound(v float64) *float64 {
	return &v
}

var SettingRegisters = []SettingRegister{
	{Setting: SettingOverPressureDelay, Address: 57, Kind: HoldingRegister, Min: bound(0), Max: bound(60)},
	{Setting: SettingAwayVentilationLevel, Address: 100, Kind: HoldingRegister, Min: bound(20), Max: bound(100)},
	{Setting: SettingAwayTemperatureReduction, Address: 101, Kind: HoldingRegister, Scale: 10},
	{Setting: SettingLongAwayVentilationLevel, Address: 102, Kind: HoldingRegister, Min: bound(20), Max: bound(100)},
	{Setting: SettingLongAwayTemperatureReduction, Address: 103, Kind: HoldingRegister, Scale: 10},
	{Setting: SettingTemperatureTarget, Address: 135, Kind: HoldingRegister, Decimals: 1, Scale: 10, Min: bound(10), Max: bound(30)},
	{Setting: SettingTemperatureControlMode, Address: 136, Kind: HoldingRegister},
	{Setting: SettingSupplyFanOverPressure, Address: 54, Kind: HoldingRegister, Min: bound(20), Max: bound(100)},
	{Setting: SettingExhaustFanOverPressure, Address: 55, Kind: HoldingRegister, Min: bound(20), Max: bound(100)},
	{Setting: SettingCoolingAllowed, Address: 52, Kind: Coil},
	{Setting: SettingHeatingAllowed, Address: 54, Kind: Coil},
	{Setting: SettingAwayCoolingAllowed, Address: 19, Kind: Coil},
	{Setting: SettingAwayHeatingAllowed, Address: 18, Kind: Coil},
	{Setting: SettingLongAwayCoolingAllowed, Address: 21, Kind: Coil},
	{Setting: SettingLongAwayHeatingAllowed, Address: 20, Kind: Coil},
	{Setting: SettingDefrostingAllowed, Address: 55, Kind: Coil},
}

type Alarm struct {
	Type        uint16 `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Alarms = []Alarm{
	{Type: 1, Name: "TE5SupplyAirAfterHRCold", Description: "TE5 Supply air after heat recovery cold"},
	{Type: 2, Name: "TE10SupplyAirAfterHeaterCold", Description: "TE10 Supply air after heater cold"},
	{Type: 3, Name: "TE10SupplyAirAfterHeaterHot", Description: "TE10 Supply air after heater hot"},
	{Type: 4, Name: "TE20RoomTempHot", Description: "TE20 Room temperature hot"},
	{Type: 5, Name: "TE30ExtractAirCold", Description: "TE30 Extract air cold"},
	{Type: 6, Name: "TE30ExtractAirHot", Description: "TE30 Extract air hot"},
	{Type: 7, Name: "HPError", Description: "Heatpump"},
	{Type: 8, Name: "EHError", Description: "Electrical heater"},
	{Type: 9, Name: "ReturnWaterCold", Description: "Return water cold"},
	{Type: 10, Name: "HRError", Description: "Heat recovery"},
	{Type: 11, Name: "CoolingError", Description: "Cooling"},
	{Type: 12, Name: "EmergencyStop", Description: "Emergency stop"},
	{Type: 13, Name: "FireRisk", Description: "Fire risk"},
	{Type: 14, Name: "ServiceReminder", Description: "Service reminder"},
	{Type: 15, Name: "EHPDA", Description: "Electrical heater pressure switch"},
	{Type: 16, Name: "SupplyFilterDirty", Description: "Supply filter dirty"},
	{Type: 17, Name: "ExtractFilterDirty", Description: "Waste filter dirty"},
	{Type: 20, Name: "SupplyFanPressureError", Description: "Supply fan pressure"},
	{Type: 21, Name: "ExtractFanPressureError", Description: "Waste fan pressure"},
}

type AnalogSensorType struct {
	Code        uint16     `json:"code"`
	Kind        SensorKind `json:"-"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

var AnalogSensorTypes = []AnalogSensorType{
	{Code: 0, Kind: SensorNone},
	{Code: 1, Kind: SensorCO2, Name: "analogInputCo21", Description: "CO2 #1"},
	{Code: 2, Kind: SensorCO2, Name: "analogInputCo22", Description: "CO2 #2"},
	{Code: 3, Kind: SensorCO2, Name: "analogInputCo23", Description: "CO2 #3"},
	{Code: 4, Kind: SensorRH, Name: "analogInputHumidity1", Description: "RH #1"},
	{Code: 5, Kind: SensorRH, Name: "analogInputHumidity2", Description: "RH #2"},
	{Code: 6, Kind: SensorRH, Name: "analogInputHumidity3", Description: "RH #3"},
	{Code: 8, Kind: SensorRoomTemperature, Name: "analogInputRoomTemperature1", Description: "Room temperature #1"},
	{Code: 9, Kind: SensorRoomTemperature, Name: "analogInputRoomTemperature2", Description: "Room temperature #2"},
	{Code: 10, Kind: SensorRoomTemperature, Name: "analogInputRoomTemperature3", Description: "Room temperature #3"},
}

// Fixed register layout.
const (
	RegisterDeviceState       uint16 = 44
	RegisterNewestAlarm       uint16 = 385
	RegisterAlarmAcknowledge  uint16 = 386
	RegisterSoftwareVersion   uint16 = 599
	RegisterCoolingType       uint16 = 154
	RegisterHeatingType       uint16 = 171
	RegisterModelInformation  uint16 = 596
	RegisterModbusAddress     uint16 = 640
	RegisterAnalogInputTypes  uint16 = 104
	RegisterAnalogInputValues uint16 = 23
	RegisterRoomTemperature   uint16 = 46
	CoilFanType               uint16 = 16

	AlarmAcknowledgeValue uint16 = 1
	AlarmSlotLength              = 7
	AlarmHistorySlots            = 19
	AnalogInputCount             = 6

	// AlarmStateActive is the only alarm state with a defined meaning.
	AlarmStateActive uint16 = 2
)

var (
	modeIndex    = make(map[Mode]ModeRegister, len(Modes))
	settingIndex = make(map[Setting]SettingRegister, len(SettingRegisters))
	alarmIndex   = make(map[uint16]Alarm, len(Alarms))
	sensorIndex  = make(map[uint16]AnalogSensorType, len(AnalogSensorTypes))
)

func init() {
	for _, m := range Modes {
		modeIndex[m.Mode] = m
	}
	for _, s := range SettingRegisters {
		settingIndex[s.Setting] = s
	}
	for _, a := range Alarms {
		alarmIndex[a.Type] = a
	}
	for _, st := range AnalogSensorTypes {
		sensorIndex[st.Code] = st
	}
}

func ResolveMode(name string) (ModeRegister, error) {
	m, ok := modeIndex[Mode(name)]
	if !ok {
		return ModeRegister{}, errors.Wrapf(ErrUnknownMode, "mode %q", name)
	}
	return m, nil
}

func ResolveSetting(name string) (SettingRegister, error) {
	s, ok := settingIndex[Setting(name)]
	if !ok {
		return SettingRegister{}, errors.Wrapf(ErrUnknownSetting, "setting %q", name)
	}
	return s, nil
}

func ResolveAlarm(code uint16) (Alarm, bool) {
	a, ok := alarmIndex[code]
	return a, ok
}

// ResolveAnalogSensorType returns false for unconfigured or unsupported slots.
func ResolveAnalogSensorType(code uint16) (AnalogSensorType, bool) {
	st, ok := sensorIndex[code]
	if !ok || st.Kind == SensorNone {
		return AnalogSensorType{}, false
	}
	return st, true
}

var deviceFamilies = []string{
	"Pingvin",
	"Pandion",
	"Pelican",
	"Pegasos",
	"Pegasos XL",
	"LTR-3",
	"LTR-6",
	"LTR-7",
	"LTR-7 XL",
}

var coolingTypes = []string{
	"",
	"CW",
	"HP",
	"CG",
	"CX",
	"CX_INV",
	"X2CX",
	"CXBIN",
	"Cooler",
}

var heatingTypes = []string{
	HeatingTypeED,
	HeatingTypeEDW,
	HeatingTypeEDX,
	HeatingTypeEDE,
}

func DeviceFamilyName(code uint16) string {
	if int(code) < len(deviceFamilies) {
		return deviceFamilies[code]
	}
	return Unknown
}

// CoolingTypeName returns nil when no cooler is installed or the code is unknown.
func CoolingTypeName(code uint16) *string {
	if code == 0 || int(code) >= len(coolingTypes) {
		return nil
	}
	name := coolingTypes[code]
	return &name
}

func HeatingTypeName(code uint16) string {
	if int(code) < len(heatingTypes) {
		return heatingTypes[code]
	}
	return Unknown
}
