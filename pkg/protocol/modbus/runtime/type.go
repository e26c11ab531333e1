package runtime

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type DeviceType int8

const (
	RTU DeviceType = iota
	TCP
)

var DeviceTypeToString = map[DeviceType]string{
	RTU: "rtu",
	TCP: "tcp",
}

func (dt DeviceType) String() string {
	return DeviceTypeToString[dt]
}

const tcpScheme = "tcp://"

// Device is a parsed connection string. RTU devices carry a serial path, TCP devices a host and port.
type Device struct {
	Type DeviceType
	Path string
	Host string
	Port int
}

// ParseDevice accepts "/dev/ttyUSB0" style serial paths and "tcp://host:port" endpoints.
func ParseDevice(s string) (*Device, error) {
	switch {
	case strings.HasPrefix(s, "/"):
		return &Device{Type: RTU, Path: s}, nil
	case strings.HasPrefix(s, tcpScheme):
		host, port, err := net.SplitHostPort(strings.TrimPrefix(s, tcpScheme))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidDevice, "%q: %v", s, err)
		}
		if len(host) == 0 {
			return nil, errors.Wrapf(ErrInvalidDevice, "%q: missing host", s)
		}
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, errors.Wrapf(ErrInvalidDevice, "%q: invalid port %q", s, port)
		}
		return &Device{Type: TCP, Host: host, Port: p}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidDevice, "%q", s)
	}
}

// URL renders the device in the scheme understood by the modbus client library.
func (d *Device) URL() string {
	if d.Type == RTU {
		return "rtu://" + d.Path
	}
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
}

func (d *Device) String() string {
	if d.Type == RTU {
		return d.Path
	}
	return tcpScheme + net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}
