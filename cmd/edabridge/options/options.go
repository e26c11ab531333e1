package options

import (
	"context"
	"time"

	"edabridge/cmd/edabridge/config"
	"edabridge/pkg/broker"
	"edabridge/pkg/device"
	"edabridge/pkg/generic"
	baseoptions "edabridge/pkg/generic/options"
	"edabridge/pkg/protocol/modbus"
	"edabridge/pkg/protocol/modbus/runtime"
	"github.com/spf13/pflag"
)

type Options struct {
	Device         string        `json:"device"`
	ModbusSlave    uint8         `json:"modbus-slave"`
	ModbusTimeout  time.Duration `json:"modbus-timeout"`
	SerialBaudRate uint          `json:"serial-baud-rate"`

	HTTP              bool          `json:"http"`
	HTTPListenAddress string        `json:"http-listen-address"`
	HTTPPort          int           `json:"http-port"`
	Wait              time.Duration `json:"graceful-timeout"`
	CertFile          string        `json:"tls-cert-file"`
	KeyFile           string        `json:"tls-key-file"`

	MQTTBrokerURL           string        `json:"mqtt-broker-url"`
	MQTTUsername            string        `json:"mqtt-username"`
	MQTTPassword            string        `json:"mqtt-password"`
	MQTTPublishInterval     time.Duration `json:"mqtt-publish-interval"`
	MQTTDiscovery           bool          `json:"mqtt-discovery"`
	MQTTMaxSubsequentErrors int           `json:"mqtt-max-subsequent-errors"`

	baseoptions.BaseOptions
}

const (
	_defaultListenAddress       = "0.0.0.0"
	_defaultPort                = 8080
	_defaultWait                = 15 * time.Second
	_defaultModbusTimeout       = 5 * time.Second
	_defaultPublishInterval     = 10 * time.Second
	_defaultMaxSubsequentErrors = 5
)

func NewDefaultOptions() *Options {
	return &Options{
		ModbusSlave:             runtime.DefaultUnitID,
		ModbusTimeout:           _defaultModbusTimeout,
		SerialBaudRate:          runtime.DefaultBaudRate,
		HTTP:                    true,
		HTTPListenAddress:       _defaultListenAddress,
		HTTPPort:                _defaultPort,
		Wait:                    _defaultWait,
		MQTTPublishInterval:     _defaultPublishInterval,
		MQTTDiscovery:           true,
		MQTTMaxSubsequentErrors: _defaultMaxSubsequentErrors,
		BaseOptions:             baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Device, "device", "d", o.Device, "The Modbus device to use, e.g. /dev/ttyUSB0 or tcp://192.168.1.40:502")
	fs.Uint8VarP(&o.ModbusSlave, "modbus-slave", "s", o.ModbusSlave, "The Modbus slave address of the ventilation unit")
	fs.DurationVar(&o.ModbusTimeout, "modbus-timeout", o.ModbusTimeout, "The timeout of a single Modbus transaction")
	fs.UintVar(&o.SerialBaudRate, "serial-baud-rate", o.SerialBaudRate, "The baud rate of a serial device, framing is always 8N1")

	fs.BoolVar(&o.HTTP, "http", o.HTTP, "Whether to enable the HTTP server")
	fs.StringVarP(&o.HTTPListenAddress, "http-listen-address", "a", o.HTTPListenAddress, "The address the HTTP server listens on")
	fs.IntVarP(&o.HTTPPort, "http-port", "p", o.HTTPPort, "The port the HTTP server listens on")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully waits for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.CertFile, "tls-cert-file", o.CertFile, "Serve HTTPS with this certificate, requires --tls-key-file")
	fs.StringVar(&o.KeyFile, "tls-key-file", o.KeyFile, "The private key matching --tls-cert-file")

	fs.StringVarP(&o.MQTTBrokerURL, "mqtt-broker-url", "m", o.MQTTBrokerURL, "The URL of the MQTT broker, e.g. mqtt://localhost:1883. MQTT is disabled when empty")
	fs.StringVar(&o.MQTTUsername, "mqtt-username", o.MQTTUsername, "The username for the MQTT broker")
	fs.StringVar(&o.MQTTPassword, "mqtt-password", o.MQTTPassword, "The password for the MQTT broker")
	fs.DurationVarP(&o.MQTTPublishInterval, "mqtt-publish-interval", "i", o.MQTTPublishInterval, "How often values are published to MQTT")
	fs.BoolVar(&o.MQTTDiscovery, "mqtt-discovery", o.MQTTDiscovery, "Whether to publish Home Assistant MQTT discovery configuration")
	fs.IntVar(&o.MQTTMaxSubsequentErrors, "mqtt-max-subsequent-errors", o.MQTTMaxSubsequentErrors, "How many publish cycles in a row may fail before the bridge exits")
}

// Config builds the runtime objects. Nothing is opened yet.
func (o *Options) Config() (*config.Config, error) {
	dev, err := runtime.ParseDevice(o.Device)
	if err != nil {
		return nil, err
	}
	client, err := runtime.NewClient(runtime.ClientConfig{
		Device:   dev,
		UnitID:   o.ModbusSlave,
		Timeout:  o.ModbusTimeout,
		BaudRate: o.SerialBaudRate,
	})
	if err != nil {
		return nil, err
	}

	c := &config.Config{
		Device:  dev,
		Gateway: modbus.NewGateway(client),
	}

	// closers run in reverse order, so MQTT goes offline before the bus is released
	opts := []device.Option{device.WithCloser("modbus", c.Gateway.Close)}
	if o.MQTTEnabled() {
		opts = append(opts, device.WithCloser("mqtt", func(ctx context.Context) error {
			return c.Broker.Close(ctx)
		}))
	}
	c.Manager = device.NewManager(c.Gateway, opts...)

	if o.MQTTEnabled() {
		c.Broker = broker.NewBroker(c.Manager, broker.Options{
			BrokerURL:           o.MQTTBrokerURL,
			Username:            o.MQTTUsername,
			Password:            o.MQTTPassword,
			PublishInterval:     o.MQTTPublishInterval,
			Discovery:           o.MQTTDiscovery,
			MaxSubsequentErrors: o.MQTTMaxSubsequentErrors,
		})
	}

	if o.HTTP {
		c.Server = &generic.Server{
			Address:  o.HTTPListenAddress,
			Port:     o.HTTPPort,
			CertFile: o.CertFile,
			KeyFile:  o.KeyFile,
		}
	}
	return c, nil
}

func (o *Options) MQTTEnabled() bool {
	return len(o.MQTTBrokerURL) != 0
}
