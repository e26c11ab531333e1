package runtime

import (
	"time"

	"github.com/simonvetter/modbus"
	"go.bug.st/serial"
	"k8s.io/klog/v2"
)

var _ Transport = (*Client)(nil)

// Transport is a single half-duplex modbus link. Implementations need not be safe for concurrent use.
type Transport interface {
	Open() error
	Close() error
	ReadCoils(address, quantity uint16) ([]bool, error)
	WriteCoil(address uint16, value bool) error
	ReadHoldingRegisters(address, quantity uint16) ([]uint16, error)
	WriteRegister(address, value uint16) error
}

type ClientConfig struct {
	Device   *Device
	UnitID   uint8
	Timeout  time.Duration
	BaudRate uint
}

// Client drives a serial (RTU, 8N1) or TCP link through simonvetter/modbus.
type Client struct {
	device *Device
	unitID uint8
	client *modbus.ModbusClient
}

func NewClient(c ClientConfig) (*Client, error) {
	if c.Device == nil {
		return nil, ErrInvalidDevice
	}
	conf := &modbus.ClientConfiguration{
		URL:     c.Device.URL(),
		Timeout: c.Timeout,
	}
	if c.Device.Type == RTU {
		baudRate := c.BaudRate
		if baudRate == 0 {
			baudRate = DefaultBaudRate
		}
		conf.Speed = baudRate
		conf.DataBits = DefaultDataBits
		conf.Parity = modbus.PARITY_NONE
		conf.StopBits = 1
	}

	client, err := modbus.NewClient(conf)
	if err != nil {
		return nil, err
	}
	unitID := c.UnitID
	if unitID == 0 {
		unitID = DefaultUnitID
	}
	if err := client.SetUnitId(unitID); err != nil {
		return nil, err
	}
	return &Client{device: c.Device, unitID: unitID, client: client}, nil
}

func (c *Client) Open() error {
	if err := c.client.Open(); err != nil {
		if c.device.Type == RTU {
			ports, _ := ListSerialPorts()
			klog.ErrorS(err, "Failed to open serial port", "device", c.device.Path, "availablePorts", ports)
		}
		return err
	}
	klog.V(1).InfoS("Opened modbus connection", "device", c.device, "unitId", c.unitID)
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) ReadCoils(address, quantity uint16) ([]bool, error) {
	return c.client.ReadCoils(address, quantity)
}

func (c *Client) WriteCoil(address uint16, value bool) error {
	return c.client.WriteCoil(address, value)
}

func (c *Client) ReadHoldingRegisters(address, quantity uint16) ([]uint16, error) {
	return c.client.ReadRegisters(address, quantity, modbus.HOLDING_REGISTER)
}

func (c *Client) WriteRegister(address, value uint16) error {
	return c.client.WriteRegister(address, value)
}

// ListSerialPorts reports the serial ports present on the host, used to help diagnose a wrong device path.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
