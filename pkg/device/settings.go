package device

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"edabridge/pkg/enervent"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

func boolPtr(v bool) *bool {
	return &v
}

func (m *Manager) GetSettings(ctx context.Context) (enervent.Settings, error) {
	klog.V(4).InfoS("Retrieving device settings")
	s := enervent.Settings{}

	regs, err := m.gateway.ReadHoldingRegisters(ctx, 57, 1)
	if err != nil {
		return s, err
	}
	s.OverPressureDelay = f64(regs[0])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 100, 4); err != nil {
		return s, err
	}
	s.AwayVentilationLevel = f64(regs[0])
	s.AwayTemperatureReduction = enervent.DecodeTemperature(regs[1])
	s.LongAwayVentilationLevel = f64(regs[2])
	s.LongAwayTemperatureReduction = enervent.DecodeTemperature(regs[3])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 135, 2); err != nil {
		return s, err
	}
	s.TemperatureTarget = enervent.DecodeTemperature(regs[0])
	s.TemperatureControlMode = f64(regs[1])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 54, 2); err != nil {
		return s, err
	}
	s.SupplyFanOverPressure = f64(regs[0])
	s.ExhaustFanOverPressure = f64(regs[1])

	profile, err := m.Profile(ctx)
	if err != nil {
		return s, err
	}
	if profile.AllowedCoils() {
		coils, err := m.gateway.ReadCoils(ctx, 52, 3)
		if err != nil {
			return s, err
		}
		s.CoolingAllowed = boolPtr(coils[0])
		s.HeatingAllowed = boolPtr(coils[2])

		// Heating comes before cooling in this block, unlike 52-54.
		if coils, err = m.gateway.ReadCoils(ctx, 18, 4); err != nil {
			return s, err
		}
		s.AwayHeatingAllowed = boolPtr(coils[0])
		s.AwayCoolingAllowed = boolPtr(coils[1])
		s.LongAwayHeatingAllowed = boolPtr(coils[2])
		s.LongAwayCoolingAllowed = boolPtr(coils[3])
	}

	coils, err := m.gateway.ReadCoils(ctx, 55, 1)
	if err != nil {
		return s, err
	}
	s.DefrostingAllowed = coils[0]
	return s, nil
}

// SetSetting validates value against the setting's register description and writes it.
// Numeric settings accept numbers or numeric strings; coil settings accept booleans or
// strings understood by strconv.ParseBool.
func (m *Manager) SetSetting(ctx context.Context, name string, value interface{}) error {
	if _, err := enervent.ResolveSetting(name); err != nil {
		return err
	}
	profile, err := m.Profile(ctx)
	if err != nil {
		return err
	}
	setting, err := profile.ResolveSetting(name)
	if err != nil {
		return err
	}

	if setting.Kind == enervent.Coil {
		b, err := toBool(value)
		if err != nil {
			return errors.Wrapf(err, "setting %s", name)
		}
		return m.gateway.WriteCoil(ctx, setting.Address, b)
	}

	raw, err := EncodeSettingValue(setting, value)
	if err != nil {
		return err
	}
	return m.gateway.WriteRegister(ctx, setting.Address, raw)
}

// EncodeSettingValue rounds value to the setting's decimals, checks its bounds and scales it to
// the register representation.
func EncodeSettingValue(setting enervent.SettingRegister, value interface{}) (uint16, error) {
	f, err := toFloat(value)
	if err != nil {
		return 0, errors.Wrapf(err, "setting %s", setting.Setting)
	}

	pow := math.Pow10(setting.Decimals)
	f = math.Round(f*pow) / pow

	if setting.Min != nil && f < *setting.Min {
		return 0, &enervent.RangeError{Setting: setting.Setting, Value: f, Bound: enervent.BoundMinimum, Limit: *setting.Min}
	}
	if setting.Max != nil && f > *setting.Max {
		return 0, &enervent.RangeError{Setting: setting.Setting, Value: f, Bound: enervent.BoundMaximum, Limit: *setting.Max}
	}

	scaled := math.Round(f * setting.RegisterScale())
	if scaled < math.MinInt16 {
		return 0, &enervent.RangeError{Setting: setting.Setting, Value: f, Bound: enervent.BoundMinimum, Limit: math.MinInt16 / setting.RegisterScale()}
	}
	if scaled > math.MaxUint16 {
		return 0, &enervent.RangeError{Setting: setting.Setting, Value: f, Bound: enervent.BoundMaximum, Limit: math.MaxUint16 / setting.RegisterScale()}
	}
	return enervent.EncodeSigned(int(scaled)), nil
}

func toFloat(value interface{}) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case uint16:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, errors.Wrapf(enervent.ErrInvalidValueType, "%q is not a number", v.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.Wrapf(enervent.ErrInvalidValueType, "%q is not a number", v)
		}
		f = parsed
	default:
		return 0, errors.Wrapf(enervent.ErrInvalidValueType, "%T is not a number", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Wrapf(enervent.ErrInvalidValueType, "%v is not a finite number", f)
	}
	return f, nil
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, errors.Wrapf(enervent.ErrInvalidValueType, "%q is not a boolean", v)
		}
		return b, nil
	default:
		return false, errors.Wrapf(enervent.ErrInvalidValueType, "%T is not a boolean", value)
	}
}
