package device

import (
	"context"

	"edabridge/pkg/enervent"
)

// Summary aggregates every piece of device state served at once.
type Summary struct {
	Modes             enervent.ModeSummary       `json:"modes"`
	Readings          enervent.Readings          `json:"readings"`
	Settings          enervent.Settings          `json:"settings"`
	DeviceInformation enervent.DeviceInformation `json:"deviceInformation"`
	DeviceState       enervent.DeviceState       `json:"deviceState"`
	AlarmSummary      []enervent.AlarmStatus     `json:"alarmSummary"`
	ActiveAlarm       *enervent.AlarmIncident    `json:"activeAlarm"`
}

// GetSummary reads each part in sequence and fails on the first error.
func (m *Manager) GetSummary(ctx context.Context) (*Summary, error) {
	var (
		s   Summary
		err error
	)
	if s.Modes, err = m.GetModeSummary(ctx); err != nil {
		return nil, err
	}
	if s.Readings, err = m.GetReadings(ctx); err != nil {
		return nil, err
	}
	if s.Settings, err = m.GetSettings(ctx); err != nil {
		return nil, err
	}
	if s.DeviceInformation, err = m.GetDeviceInformation(ctx); err != nil {
		return nil, err
	}
	if s.DeviceState, err = m.GetDeviceState(ctx); err != nil {
		return nil, err
	}
	if s.AlarmSummary, err = m.GetAlarmSummary(ctx); err != nil {
		return nil, err
	}
	if s.ActiveAlarm, err = m.GetActiveAlarm(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}
