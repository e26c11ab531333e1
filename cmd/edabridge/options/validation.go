package options

import (
	"strings"

	"edabridge/pkg/protocol/modbus/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

var brokerSchemes = []string{"mqtt://", "mqtts://"}

// Validate checks the options without side effects. Logging is applied separately by the caller.
func Validate(o *Options) []error {
	var allErrs field.ErrorList
	allErrs = append(allErrs, validateModbus(o)...)
	allErrs = append(allErrs, validateHTTP(o)...)
	allErrs = append(allErrs, validateMQTT(o)...)

	errs := make([]error, 0, len(allErrs))
	for _, err := range allErrs {
		errs = append(errs, err)
	}
	return errs
}

func validateModbus(o *Options) field.ErrorList {
	var allErrs field.ErrorList
	if len(o.Device) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("device"), "e.g. /dev/ttyUSB0 or tcp://192.168.1.40:502"))
	} else if _, err := runtime.ParseDevice(o.Device); err != nil {
		allErrs = append(allErrs, field.Invalid(field.NewPath("device"), o.Device, err.Error()))
	}
	if o.ModbusSlave == 0 || o.ModbusSlave > 247 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("modbus-slave"), o.ModbusSlave, "must be between 1 and 247"))
	}
	if o.ModbusTimeout <= 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("modbus-timeout"), o.ModbusTimeout.String(), "must be positive"))
	}
	if o.SerialBaudRate == 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("serial-baud-rate"), o.SerialBaudRate, "must be positive"))
	}
	return allErrs
}

func validateHTTP(o *Options) field.ErrorList {
	var allErrs field.ErrorList
	if !o.HTTP {
		return allErrs
	}
	if o.HTTPPort <= 0 || o.HTTPPort > 65535 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("http-port"), o.HTTPPort, "must be between 1 and 65535"))
	}
	if o.Wait <= 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("graceful-timeout"), o.Wait.String(), "must be positive"))
	}
	if (len(o.CertFile) == 0) != (len(o.KeyFile) == 0) {
		allErrs = append(allErrs, field.Required(field.NewPath("tls-key-file"), "--tls-cert-file and --tls-key-file must be given together"))
	}
	return allErrs
}

func validateMQTT(o *Options) field.ErrorList {
	var allErrs field.ErrorList
	if !o.MQTTEnabled() {
		return allErrs
	}
	if !hasAnyPrefix(o.MQTTBrokerURL, brokerSchemes) {
		allErrs = append(allErrs, field.Invalid(field.NewPath("mqtt-broker-url"), o.MQTTBrokerURL, "must start with mqtt:// or mqtts://"))
	}
	if len(o.MQTTUsername) != 0 && len(o.MQTTPassword) == 0 {
		allErrs = append(allErrs, field.Required(field.NewPath("mqtt-password"), "required when --mqtt-username is set"))
	}
	if o.MQTTPublishInterval <= 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("mqtt-publish-interval"), o.MQTTPublishInterval.String(), "must be positive"))
	}
	if o.MQTTMaxSubsequentErrors < 0 {
		allErrs = append(allErrs, field.Invalid(field.NewPath("mqtt-max-subsequent-errors"), o.MQTTMaxSubsequentErrors, "must not be negative"))
	}
	return allErrs
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
