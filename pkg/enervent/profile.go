package enervent

import (
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
)

// FirmwareProfile captures what one automation generation exposes. It is selected once from the
// detected automation type so callers never branch on the generation themselves.
type FirmwareProfile struct {
	AutomationType AutomationType
	modes          sets.Set[Mode]
	settings       sets.Set[Setting]
	// ControlPanelReadings reports whether control panel temperatures and fan speeds are reliable.
	ControlPanelReadings bool
}

var allowedCoilSettings = []Setting{
	SettingCoolingAllowed,
	SettingHeatingAllowed,
	SettingAwayCoolingAllowed,
	SettingAwayHeatingAllowed,
	SettingLongAwayCoolingAllowed,
	SettingLongAwayHeatingAllowed,
}

func allModes() sets.Set[Mode] {
	s := sets.New[Mode]()
	for _, m := range Modes {
		s.Insert(m.Mode)
	}
	return s
}

func allSettings() sets.Set[Setting] {
	s := sets.New[Setting]()
	for _, st := range SettingRegisters {
		s.Insert(st.Setting)
	}
	return s
}

var profiles = map[AutomationType]*FirmwareProfile{
	AutomationTypeMD: {
		AutomationType:       AutomationTypeMD,
		modes:                allModes(),
		settings:             allSettings(),
		ControlPanelReadings: true,
	},
	AutomationTypeEDA: {
		AutomationType: AutomationTypeEDA,
		modes:          allModes().Delete(ModeEco),
		settings:       allSettings(),
	},
	AutomationTypeLegacyEDA: {
		AutomationType: AutomationTypeLegacyEDA,
		modes:          allModes().Delete(ModeEco),
		settings:       allSettings().Delete(allowedCoilSettings...),
	},
}

// ProfileFor falls back to the EDA profile for unrecognised automation types.
func ProfileFor(t AutomationType) *FirmwareProfile {
	if p, ok := profiles[t]; ok {
		return p
	}
	return profiles[AutomationTypeEDA]
}

func (p *FirmwareProfile) SupportsMode(m Mode) bool {
	return p.modes.Has(m)
}

func (p *FirmwareProfile) SupportsSetting(s Setting) bool {
	return p.settings.Has(s)
}

// Modes returns the supported mode registers ordered by coil.
func (p *FirmwareProfile) Modes() []ModeRegister {
	ret := make([]ModeRegister, 0, len(Modes))
	for _, m := range Modes {
		if p.modes.Has(m.Mode) {
			ret = append(ret, m)
		}
	}
	return ret
}

func (p *FirmwareProfile) ExclusiveModes() []ModeRegister {
	ret := make([]ModeRegister, 0, len(Modes))
	for _, m := range p.Modes() {
		if m.MutuallyExclusive {
			ret = append(ret, m)
		}
	}
	return ret
}

func (p *FirmwareProfile) Settings() []SettingRegister {
	ret := make([]SettingRegister, 0, len(SettingRegisters))
	for _, s := range SettingRegisters {
		if p.settings.Has(s.Setting) {
			ret = append(ret, s)
		}
	}
	return ret
}

// AllowedCoils reports whether the heating/cooling allowed coils exist on this generation.
func (p *FirmwareProfile) AllowedCoils() bool {
	return p.settings.HasAll(allowedCoilSettings...)
}

func (p *FirmwareProfile) ResolveMode(name string) (ModeRegister, error) {
	m, err := ResolveMode(name)
	if err != nil {
		return ModeRegister{}, err
	}
	if !p.SupportsMode(m.Mode) {
		return ModeRegister{}, errors.Wrapf(ErrUnsupported, "mode %q on %s automation", name, p.AutomationType)
	}
	return m, nil
}

func (p *FirmwareProfile) ResolveSetting(name string) (SettingRegister, error) {
	s, err := ResolveSetting(name)
	if err != nil {
		return SettingRegister{}, err
	}
	if !p.SupportsSetting(s.Setting) {
		return SettingRegister{}, errors.Wrapf(ErrUnsupported, "setting %q on %s automation", name, p.AutomationType)
	}
	return s, nil
}
