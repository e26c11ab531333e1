package runtime

import "errors"

var (
	ErrInvalidDevice = errors.New("invalid modbus device, expected a serial path such as /dev/ttyUSB0 or tcp://host:port")
	ErrShortResponse = errors.New("modbus response shorter than requested")
)

// Operation names used in logs and metrics.
const (
	OperationReadCoils            = "readCoils"
	OperationWriteCoil            = "writeCoil"
	OperationReadHoldingRegisters = "readHoldingRegisters"
	OperationWriteRegister        = "writeRegister"
)

const (
	DefaultBaudRate uint  = 19200
	DefaultDataBits uint  = 8
	DefaultUnitID   uint8 = 1
)
