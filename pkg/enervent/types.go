package enervent

import (
	"encoding/json"
	"time"
)

type DeviceInformation struct {
	SoftwareVersion      float64        `json:"softwareVersion"`
	AutomationType       AutomationType `json:"automationType"`
	FanType              FanType        `json:"fanType"`
	CoolingTypeInstalled *string        `json:"coolingTypeInstalled"`
	HeatingTypeInstalled *string        `json:"heatingTypeInstalled"`
	ModelType            string         `json:"modelType"`
	SerialNumber         uint16         `json:"serialNumber"`
	ModelName            string         `json:"modelName"`
	ModbusAddress        uint16         `json:"modbusAddress"`
}

type ModeSummary map[Mode]bool

type AlarmStatus struct {
	Alarm
	State uint16 `json:"state"`
}

type AlarmIncident struct {
	Alarm
	State     uint16    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

func (ai *AlarmIncident) Active() bool {
	return ai != nil && ai.State == AlarmStateActive
}

type DeviceState struct {
	Normal               bool `json:"normal"`
	MaxCooling           bool `json:"maxCooling"`
	MaxHeating           bool `json:"maxHeating"`
	EmergencyStop        bool `json:"emergencyStop"`
	Stop                 bool `json:"stop"`
	Away                 bool `json:"away"`
	LongAway             bool `json:"longAway"`
	TemperatureBoost     bool `json:"temperatureBoost"`
	CO2Boost             bool `json:"co2Boost"`
	HumidityBoost        bool `json:"humidityBoost"`
	ManualBoost          bool `json:"manualBoost"`
	OverPressure         bool `json:"overPressure"`
	CookerHood           bool `json:"cookerHood"`
	CentralVacuumCleaner bool `json:"centralVacuumCleaner"`
	HeaterCooldown       bool `json:"heaterCooldown"`
	SummerNightCooling   bool `json:"summerNightCooling"`
	Defrosting           bool `json:"defrosting"`
}

// Readings are decoded fresh on every query. Optional readings are nil when the unit does not provide them.
type Readings struct {
	FreshAirTemperature                          float64
	SupplyAirTemperatureAfterHeatRecovery        float64
	SupplyAirTemperature                         float64
	WasteAirTemperature                          float64
	ExhaustAirTemperature                        float64
	ExhaustAirHumidity                           float64
	HeatRecoverySupplySide                       float64
	HeatRecoveryExhaustSide                      float64
	HeatRecoveryTemperatureDifferenceSupplySide  float64
	HeatRecoveryTemperatureDifferenceExhaustSide float64
	Mean48HourExhaustHumidity                    float64
	CascadeSp                                    float64
	CascadeP                                     float64
	CascadeI                                     float64
	OverPressureTimeLeft                         float64
	VentilationLevelActual                       float64
	VentilationLevelTarget                       float64

	RoomTemperatureAvg                      *float64
	ControlPanel1Temperature                *float64
	ControlPanel2Temperature                *float64
	SupplyFanSpeed                          *float64
	ExhaustFanSpeed                         *float64
	ReturnWaterTemperature                  *float64
	ExhaustAirTemperatureBeforeHeatRecovery *float64

	AnalogInputs map[string]float64
}

// Map flattens the readings, analog inputs included, keyed by reading name.
func (r Readings) Map() map[string]float64 {
	m := map[string]float64{
		"freshAirTemperature":                          r.FreshAirTemperature,
		"supplyAirTemperatureAfterHeatRecovery":        r.SupplyAirTemperatureAfterHeatRecovery,
		"supplyAirTemperature":                         r.SupplyAirTemperature,
		"wasteAirTemperature":                          r.WasteAirTemperature,
		"exhaustAirTemperature":                        r.ExhaustAirTemperature,
		"exhaustAirHumidity":                           r.ExhaustAirHumidity,
		"heatRecoverySupplySide":                       r.HeatRecoverySupplySide,
		"heatRecoveryExhaustSide":                      r.HeatRecoveryExhaustSide,
		"heatRecoveryTemperatureDifferenceSupplySide":  r.HeatRecoveryTemperatureDifferenceSupplySide,
		"heatRecoveryTemperatureDifferenceExhaustSide": r.HeatRecoveryTemperatureDifferenceExhaustSide,
		"mean48HourExhaustHumidity":                    r.Mean48HourExhaustHumidity,
		"cascadeSp":                                    r.CascadeSp,
		"cascadeP":                                     r.CascadeP,
		"cascadeI":                                     r.CascadeI,
		"overPressureTimeLeft":                         r.OverPressureTimeLeft,
		"ventilationLevelActual":                       r.VentilationLevelActual,
		"ventilationLevelTarget":                       r.VentilationLevelTarget,
	}
	optional := map[string]*float64{
		"roomTemperatureAvg":                      r.RoomTemperatureAvg,
		"controlPanel1Temperature":                r.ControlPanel1Temperature,
		"controlPanel2Temperature":                r.ControlPanel2Temperature,
		"supplyFanSpeed":                          r.SupplyFanSpeed,
		"exhaustFanSpeed":                         r.ExhaustFanSpeed,
		"returnWaterTemperature":                  r.ReturnWaterTemperature,
		"exhaustAirTemperatureBeforeHeatRecovery": r.ExhaustAirTemperatureBeforeHeatRecovery,
	}
	for k, v := range optional {
		if v != nil {
			m[k] = *v
		}
	}
	for k, v := range r.AnalogInputs {
		m[k] = v
	}
	return m
}

func (r Readings) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Settings hold the current value of every setting the unit exposes. Coil settings the firmware
// lacks are nil.
type Settings struct {
	OverPressureDelay            float64
	AwayVentilationLevel         float64
	AwayTemperatureReduction     float64
	LongAwayVentilationLevel     float64
	LongAwayTemperatureReduction float64
	TemperatureTarget            float64
	TemperatureControlMode       float64
	SupplyFanOverPressure        float64
	ExhaustFanOverPressure       float64

	CoolingAllowed         *bool
	HeatingAllowed         *bool
	AwayCoolingAllowed     *bool
	AwayHeatingAllowed     *bool
	LongAwayCoolingAllowed *bool
	LongAwayHeatingAllowed *bool
	DefrostingAllowed      bool
}

// Map returns the settings keyed by name; values are float64 or bool.
func (s Settings) Map() map[Setting]interface{} {
	m := map[Setting]interface{}{
		SettingOverPressureDelay:            s.OverPressureDelay,
		SettingAwayVentilationLevel:         s.AwayVentilationLevel,
		SettingAwayTemperatureReduction:     s.AwayTemperatureReduction,
		SettingLongAwayVentilationLevel:     s.LongAwayVentilationLevel,
		SettingLongAwayTemperatureReduction: s.LongAwayTemperatureReduction,
		SettingTemperatureTarget:            s.TemperatureTarget,
		SettingTemperatureControlMode:       s.TemperatureControlMode,
		SettingSupplyFanOverPressure:        s.SupplyFanOverPressure,
		SettingExhaustFanOverPressure:       s.ExhaustFanOverPressure,
		SettingDefrostingAllowed:            s.DefrostingAllowed,
	}
	optional := map[Setting]*bool{
		SettingCoolingAllowed:         s.CoolingAllowed,
		SettingHeatingAllowed:         s.HeatingAllowed,
		SettingAwayCoolingAllowed:     s.AwayCoolingAllowed,
		SettingAwayHeatingAllowed:     s.AwayHeatingAllowed,
		SettingLongAwayCoolingAllowed: s.LongAwayCoolingAllowed,
		SettingLongAwayHeatingAllowed: s.LongAwayHeatingAllowed,
	}
	for k, v := range optional {
		if v != nil {
			m[k] = *v
		}
	}
	return m
}

func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}
