package device

import (
	"context"

	"edabridge/pkg/enervent"
	"k8s.io/klog/v2"
)

func f64(v uint16) float64 {
	return float64(v)
}

func ptr(v float64) *float64 {
	return &v
}

// GetReadings reads every measurement block in turn. Nothing is cached.
func (m *Manager) GetReadings(ctx context.Context) (enervent.Readings, error) {
	klog.V(4).InfoS("Retrieving device readings")
	r := enervent.Readings{}

	regs, err := m.gateway.ReadHoldingRegisters(ctx, 6, 8)
	if err != nil {
		return r, err
	}
	r.FreshAirTemperature = enervent.DecodeTemperature(regs[0])
	r.SupplyAirTemperatureAfterHeatRecovery = enervent.DecodeTemperature(regs[1])
	r.SupplyAirTemperature = enervent.DecodeTemperature(regs[2])
	r.WasteAirTemperature = enervent.DecodeTemperature(regs[3])
	r.ExhaustAirTemperature = enervent.DecodeTemperature(regs[4])
	r.ExhaustAirHumidity = f64(regs[7])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 29, 7); err != nil {
		return r, err
	}
	r.HeatRecoverySupplySide = f64(regs[0])
	r.HeatRecoveryExhaustSide = f64(regs[1])
	r.HeatRecoveryTemperatureDifferenceSupplySide = enervent.DecodeTemperature(regs[2])
	r.HeatRecoveryTemperatureDifferenceExhaustSide = enervent.DecodeTemperature(regs[3])
	r.Mean48HourExhaustHumidity = f64(regs[6])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 47, 3); err != nil {
		return r, err
	}
	r.CascadeSp = f64(regs[0])
	r.CascadeP = f64(regs[1])
	r.CascadeI = f64(regs[2])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 56, 1); err != nil {
		return r, err
	}
	r.OverPressureTimeLeft = f64(regs[0])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 50, 4); err != nil {
		return r, err
	}
	r.VentilationLevelActual = f64(regs[0])
	r.VentilationLevelTarget = f64(regs[3])

	// Analog inputs are decoded according to the sensor type configured for each slot.
	types, err := m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterAnalogInputTypes, enervent.AnalogInputCount)
	if err != nil {
		return r, err
	}
	values, err := m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterAnalogInputValues, enervent.AnalogInputCount)
	if err != nil {
		return r, err
	}
	r.AnalogInputs = enervent.DecodeAnalogSensors(types, values)

	// The average is always zero unless a room temperature sensor is configured.
	if enervent.HasRoomTemperatureSensor(types) {
		if regs, err = m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterRoomTemperature, 1); err != nil {
			return r, err
		}
		r.RoomTemperatureAvg = ptr(enervent.DecodeTemperature(regs[0]))
	}

	info, err := m.GetDeviceInformation(ctx)
	if err != nil {
		return r, err
	}
	if enervent.ProfileFor(info.AutomationType).ControlPanelReadings {
		if regs, err = m.gateway.ReadHoldingRegisters(ctx, 1, 4); err != nil {
			return r, err
		}
		r.ControlPanel1Temperature = ptr(enervent.DecodeTemperature(regs[0]))
		r.ControlPanel2Temperature = ptr(enervent.DecodeTemperature(regs[1]))
		r.SupplyFanSpeed = ptr(f64(regs[2]))
		r.ExhaustFanSpeed = ptr(f64(regs[3]))
	}

	// Registers 11 and 12 hold the same value; which one is meaningful depends on the heater.
	if regs, err = m.gateway.ReadHoldingRegisters(ctx, 11, 2); err != nil {
		return r, err
	}
	if info.HeatingTypeInstalled != nil && *info.HeatingTypeInstalled == enervent.HeatingTypeEDW {
		r.ReturnWaterTemperature = ptr(enervent.DecodeTemperature(regs[1]))
	} else {
		r.ExhaustAirTemperatureBeforeHeatRecovery = ptr(enervent.DecodeTemperature(regs[0]))
	}

	observeReadings(r)
	return r, nil
}
