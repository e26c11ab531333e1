package enervent

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownMode      = errors.New("unknown mode")
	ErrUnknownSetting   = errors.New("unknown setting")
	ErrUnsupported      = errors.New("not supported by the unit firmware")
	ErrInvalidValueType = errors.New("invalid value type")
	ErrOutOfRange       = errors.New("value out of range")
)

// RangeError names the offending value and the bound it violated.
type RangeError struct {
	Setting Setting
	Value   float64
	Bound   string
	Limit   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s out of range: %v violates the %s of %v", e.Setting, e.Value, e.Bound, e.Limit)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

const (
	BoundMinimum = "minimum"
	BoundMaximum = "maximum"
)

type RegisterKind int8

const (
	Coil RegisterKind = iota
	HoldingRegister
)

var RegisterKindToString = map[RegisterKind]string{
	Coil:            "coil",
	HoldingRegister: "holding",
}

var StringToRegisterKind = map[string]RegisterKind{
	"coil":    Coil,
	"holding": HoldingRegister,
}

func (rk RegisterKind) String() string {
	return RegisterKindToString[rk]
}

func (rk RegisterKind) MarshalJSON() ([]byte, error) {
	if s, ok := RegisterKindToString[rk]; ok {
		return json.Marshal(s)
	}
	return nil, fmt.Errorf("unknown register kind %d", rk)
}

func (rk *RegisterKind) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}

	v, ok := StringToRegisterKind[s]
	if !ok {
		return fmt.Errorf("unknown register kind %s", s)
	}
	*rk = v
	return nil
}

type AutomationType string

const (
	AutomationTypeLegacyEDA AutomationType = "LEGACY_EDA"
	AutomationTypeEDA       AutomationType = "EDA"
	AutomationTypeMD        AutomationType = "MD"
)

type FanType string

const (
	FanTypeAC FanType = "AC"
	FanTypeEC FanType = "EC"
)

type SensorKind int8

const (
	SensorNone SensorKind = iota
	SensorCO2
	SensorRH
	SensorRoomTemperature
)

var SensorKindToString = map[SensorKind]string{
	SensorNone:            "NONE",
	SensorCO2:             "CO2",
	SensorRH:              "RH",
	SensorRoomTemperature: "ROOM_TEMP",
}

func (sk SensorKind) String() string {
	return SensorKindToString[sk]
}

// Heating types reported by register 171. The E prefix is used by EDA automation, M by MD automation.
const (
	HeatingTypeED  = "ED/MD"
	HeatingTypeEDW = "EDW/MDW"
	HeatingTypeEDX = "EDX/MDX"
	HeatingTypeEDE = "EDE/MDE"
)

const Unknown = "unknown"
