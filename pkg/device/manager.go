package device

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"edabridge/pkg/enervent"
	"edabridge/pkg/protocol/modbus"
	"edabridge/pkg/runtime"
	"k8s.io/klog/v2"
)

type Option func(*Manager)

func WithCloser(label string, closer func(context.Context) error) Option {
	return func(m *Manager) {
		m.closers = append(m.closers, runtime.LabeledCloser{Label: label, Closer: closer})
	}
}

// Manager exposes the unit's modes, settings, readings and alarms on top of a Gateway.
// Device information is read on first use and kept for the lifetime of the Manager.
type Manager struct {
	gateway *modbus.Gateway
	infoMu  sync.Mutex
	info    *enervent.DeviceInformation
	closers []runtime.LabeledCloser
}

func NewManager(gateway *modbus.Gateway, opts ...Option) *Manager {
	registerMetrics()
	m := &Manager{gateway: gateway}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Profile returns the firmware profile of the connected unit.
func (m *Manager) Profile(ctx context.Context) (*enervent.FirmwareProfile, error) {
	info, err := m.GetDeviceInformation(ctx)
	if err != nil {
		return nil, err
	}
	return enervent.ProfileFor(info.AutomationType), nil
}

func (m *Manager) GetDeviceInformation(ctx context.Context) (enervent.DeviceInformation, error) {
	m.infoMu.Lock()
	defer m.infoMu.Unlock()
	if m.info != nil {
		return *m.info, nil
	}

	klog.V(4).InfoS("Retrieving device information")
	info := enervent.DeviceInformation{}

	regs, err := m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterSoftwareVersion, 1)
	if err != nil {
		return info, err
	}
	info.SoftwareVersion = float64(regs[0]) / 100
	info.AutomationType = enervent.DetermineAutomationType(regs[0])

	coils, err := m.gateway.ReadCoils(ctx, enervent.CoilFanType, 1)
	if err != nil {
		return info, err
	}
	// EC means DC motors
	info.FanType = enervent.FanTypeAC
	if coils[0] {
		info.FanType = enervent.FanTypeEC
	}

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterCoolingType, 1); err != nil {
		return info, err
	}
	info.CoolingTypeInstalled = enervent.CoolingTypeName(regs[0])

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterHeatingType, 1); err != nil {
		return info, err
	}
	heating := enervent.HeatingTypeName(regs[0])
	info.HeatingTypeInstalled = &heating

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterModelInformation, 3); err != nil {
		return info, err
	}
	info.ModelType = enervent.DeviceFamilyName(regs[1])
	info.SerialNumber = regs[2]
	info.ModelName = enervent.ComposeModelName(info)

	if regs, err = m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterModbusAddress, 1); err != nil {
		return info, err
	}
	info.ModbusAddress = regs[0]

	m.info = &info
	klog.V(2).InfoS("Identified ventilation unit", "model", info.ModelName, "automationType", info.AutomationType, "softwareVersion", info.SoftwareVersion)
	return info, nil
}

// modeSummaryCoils is the contiguous coil block covering every mode below it.
const modeSummaryCoils = 13

func (m *Manager) GetModeSummary(ctx context.Context) (enervent.ModeSummary, error) {
	profile, err := m.Profile(ctx)
	if err != nil {
		return nil, err
	}

	block, err := m.gateway.ReadCoils(ctx, 0, modeSummaryCoils)
	if err != nil {
		return nil, err
	}

	summary := enervent.ModeSummary{}
	for _, mode := range profile.Modes() {
		if mode.Coil < modeSummaryCoils {
			summary[mode.Mode] = block[mode.Coil]
			continue
		}
		coils, err := m.gateway.ReadCoils(ctx, mode.Coil, 1)
		if err != nil {
			return nil, err
		}
		summary[mode.Mode] = coils[0]
	}
	return summary, nil
}

func (m *Manager) resolveMode(ctx context.Context, name string) (enervent.ModeRegister, error) {
	if _, err := enervent.ResolveMode(name); err != nil {
		return enervent.ModeRegister{}, err
	}
	profile, err := m.Profile(ctx)
	if err != nil {
		return enervent.ModeRegister{}, err
	}
	return profile.ResolveMode(name)
}

func (m *Manager) GetMode(ctx context.Context, name string) (bool, error) {
	mode, err := m.resolveMode(ctx, name)
	if err != nil {
		return false, err
	}
	coils, err := m.gateway.ReadCoils(ctx, mode.Coil, 1)
	if err != nil {
		return false, err
	}
	return coils[0], nil
}

// SetMode writes the mode coil. Enabling a mutually exclusive mode then clears every other
// exclusive mode, one transaction each; readers may observe the intermediate state.
func (m *Manager) SetMode(ctx context.Context, name string, value bool) error {
	mode, err := m.resolveMode(ctx, name)
	if err != nil {
		return err
	}
	if err := m.gateway.WriteCoil(ctx, mode.Coil, value); err != nil {
		return err
	}
	if !value {
		return nil
	}

	profile, err := m.Profile(ctx)
	if err != nil {
		return err
	}
	for _, other := range profile.ExclusiveModes() {
		if other.Mode == mode.Mode {
			continue
		}
		if err := m.gateway.WriteCoil(ctx, other.Coil, false); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) GetDeviceState(ctx context.Context) (enervent.DeviceState, error) {
	regs, err := m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterDeviceState, 1)
	if err != nil {
		return enervent.DeviceState{}, err
	}
	return enervent.DecodeDeviceState(regs[0]), nil
}

// Shutdown runs registered closers in reverse order.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []string
	for i := len(m.closers); i > 0; i-- {
		lc := m.closers[i-1]
		if err := lc.Closer(ctx); err != nil {
			klog.V(2).InfoS("Failed to stop dependency", "service", lc.Label, "err", err)
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to shutdown device manager: [%s]", strings.Join(errs, ","))
	}
	return nil
}
