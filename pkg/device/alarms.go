package device

import (
	"context"

	"edabridge/pkg/enervent"
	"k8s.io/klog/v2"
)

// maxRegistersPerRead is the protocol limit for a single holding register read.
const maxRegistersPerRead = 125

func decodeAlarmSlot(slot []uint16) (*enervent.AlarmIncident, error) {
	alarm, ok := enervent.ResolveAlarm(slot[0])
	if !ok {
		return nil, nil
	}
	ts, err := enervent.DecodeAlarmTimestamp(slot)
	if err != nil {
		return nil, err
	}
	return &enervent.AlarmIncident{Alarm: alarm, State: slot[1], Timestamp: ts}, nil
}

// GetNewestAlarm returns nil when the newest slot holds an unrecognised code.
func (m *Manager) GetNewestAlarm(ctx context.Context) (*enervent.AlarmIncident, error) {
	regs, err := m.gateway.ReadHoldingRegisters(ctx, enervent.RegisterNewestAlarm, enervent.AlarmSlotLength)
	if err != nil {
		return nil, err
	}
	return decodeAlarmSlot(regs)
}

// GetActiveAlarm returns the newest alarm if it is active, nil otherwise.
func (m *Manager) GetActiveAlarm(ctx context.Context) (*enervent.AlarmIncident, error) {
	newest, err := m.GetNewestAlarm(ctx)
	if err != nil {
		return nil, err
	}
	if !newest.Active() {
		return nil, nil
	}
	return newest, nil
}

// GetAlarmSummary lists every known alarm. Only the newest incident carries its state; all
// other alarms report 0.
func (m *Manager) GetAlarmSummary(ctx context.Context) ([]enervent.AlarmStatus, error) {
	newest, err := m.GetNewestAlarm(ctx)
	if err != nil {
		return nil, err
	}
	summary := make([]enervent.AlarmStatus, 0, len(enervent.Alarms))
	for _, alarm := range enervent.Alarms {
		status := enervent.AlarmStatus{Alarm: alarm}
		if newest != nil && newest.Type == alarm.Type {
			status.State = newest.State
		}
		summary = append(summary, status)
	}
	return summary, nil
}

// GetAlarmHistory scans the history slots stored on the unit, newest first. Slots holding
// unrecognised codes are skipped.
func (m *Manager) GetAlarmHistory(ctx context.Context) ([]enervent.AlarmIncident, error) {
	slotsPerRead := maxRegistersPerRead / enervent.AlarmSlotLength
	history := make([]enervent.AlarmIncident, 0, enervent.AlarmHistorySlots)

	for first := 0; first < enervent.AlarmHistorySlots; first += slotsPerRead {
		count := slotsPerRead
		if first+count > enervent.AlarmHistorySlots {
			count = enervent.AlarmHistorySlots - first
		}
		address := enervent.RegisterNewestAlarm + uint16(first*enervent.AlarmSlotLength)
		regs, err := m.gateway.ReadHoldingRegisters(ctx, address, uint16(count*enervent.AlarmSlotLength))
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			slot := regs[i*enervent.AlarmSlotLength : (i+1)*enervent.AlarmSlotLength]
			incident, err := decodeAlarmSlot(slot)
			if err != nil {
				return nil, err
			}
			if incident == nil {
				continue
			}
			history = append(history, *incident)
		}
	}
	return history, nil
}

// AcknowledgeAlarm acknowledges the newest alarm. The write is not read back.
func (m *Manager) AcknowledgeAlarm(ctx context.Context) error {
	klog.V(2).InfoS("Acknowledging newest alarm")
	return m.gateway.WriteRegister(ctx, enervent.RegisterAlarmAcknowledge, enervent.AlarmAcknowledgeValue)
}
