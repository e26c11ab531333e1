package config

import (
	"edabridge/pkg/broker"
	"edabridge/pkg/device"
	"edabridge/pkg/generic"
	"edabridge/pkg/protocol/modbus"
	"edabridge/pkg/protocol/modbus/runtime"
)

// Config holds everything run needs. Broker and Server are nil when disabled.
type Config struct {
	Device  *runtime.Device
	Gateway *modbus.Gateway
	Manager *device.Manager
	Broker  *broker.Broker
	Server  *generic.Server
}
