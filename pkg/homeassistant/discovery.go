// Package homeassistant builds the MQTT discovery configuration that lets Home Assistant create
// entities for the ventilation unit automatically.
package homeassistant

import (
	"encoding/json"
	"fmt"
	"math"

	"edabridge/pkg/apis"
	"edabridge/pkg/enervent"
	jsonpatch "github.com/evanphx/json-patch"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

type Component string

const (
	ComponentSensor       Component = "sensor"
	ComponentNumber       Component = "number"
	ComponentSwitch       Component = "switch"
	ComponentBinarySensor Component = "binary_sensor"
	ComponentButton       Component = "button"
	ComponentSelect       Component = "select"
)

// Configuration is one layer of an entity configuration. Layers are combined with JSON merge
// patches, later layers winning.
type Configuration map[string]interface{}

type Entity struct {
	Component Component
	Name      string
	Payload   []byte
}

// Topic returns the retained discovery topic, homeassistant/<component>/<node id>/<entity>/config.
func (e Entity) Topic(deviceIdentifier string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", apis.DiscoveryPrefix, e.Component, deviceIdentifier, e.Name)
}

// DeviceBlock is the "device" object shared by every entity of the unit.
func DeviceBlock(info enervent.DeviceInformation) Configuration {
	return Configuration{
		"identifiers":  enervent.DeviceIdentifier(info),
		"name":         "Enervent " + info.ModelName,
		"sw_version":   info.SoftwareVersion,
		"model":        info.ModelName,
		"manufacturer": "Enervent",
	}
}

type builder struct {
	base     []byte
	entities []Entity
	errs     []error
}

func newBuilder(info enervent.DeviceInformation) (*builder, error) {
	base, err := json.Marshal(Configuration{
		"platform":           "mqtt",
		"availability_topic": apis.TopicStatus,
		"device":             DeviceBlock(info),
	})
	if err != nil {
		return nil, err
	}
	return &builder{base: base}, nil
}

func (b *builder) add(component Component, name string, layers ...Configuration) {
	doc := b.base
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		patch, err := json.Marshal(layer)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("%s %s: %w", component, name, err))
			return
		}
		if doc, err = jsonpatch.MergePatch(doc, patch); err != nil {
			b.errs = append(b.errs, fmt.Errorf("%s %s: %w", component, name, err))
			return
		}
	}
	b.entities = append(b.entities, Entity{Component: component, Name: name, Payload: doc})
}

var (
	temperature = Configuration{"device_class": "temperature", "unit_of_measurement": "°C"}
	humidity    = Configuration{"device_class": "humidity", "unit_of_measurement": "%"}
	percent     = Configuration{"unit_of_measurement": "%"}
)

func enabled(v bool) Configuration {
	return Configuration{"enabled_by_default": v}
}

func sensorConfiguration(reading, name string) Configuration {
	return Configuration{
		"state_class": "measurement",
		"name":        name,
		"object_id":   "eda_" + reading,
		"state_topic": apis.TopicPrefixReadings + "/" + reading,
		"unique_id":   "eda-" + reading,
	}
}

func numberConfiguration(setting, name string) Configuration {
	return Configuration{
		"command_topic":   apis.TopicPrefixSettings + "/" + setting + apis.TopicSuffixSet,
		"state_topic":     apis.TopicPrefixSettings + "/" + setting,
		"unique_id":       "eda-" + setting,
		"entity_category": "config",
		"name":            name,
		"object_id":       "eda_" + setting,
	}
}

func switchConfiguration(topicPrefix, name, entityName string) Configuration {
	return Configuration{
		"unique_id":     "eda-" + name,
		"name":          entityName,
		"object_id":     "eda_" + name,
		"state_topic":   topicPrefix + "/" + name,
		"command_topic": topicPrefix + "/" + name + apis.TopicSuffixSet,
	}
}

// numberRange advertises the register bounds, falling back to fallback for unbounded settings.
func numberRange(setting enervent.Setting, fallbackMin, fallbackMax float64) Configuration {
	c := Configuration{"min": fallbackMin, "max": fallbackMax}
	register, err := enervent.ResolveSetting(string(setting))
	if err != nil {
		return c
	}
	if register.Min != nil {
		c["min"] = *register.Min
	}
	if register.Max != nil {
		c["max"] = *register.Max
	}
	if register.Decimals > 0 {
		c["step"] = math.Pow10(-register.Decimals)
	}
	return c
}

// TemperatureControlModes are the select options, in register value order starting at 1.
var TemperatureControlModes = []string{"Supply control", "Exhaust control", "Room control"}

var deviceStateNames = []struct {
	state, name string
}{
	{"normal", "Normal"},
	{"maxCooling", "Max cooling"},
	{"maxHeating", "Max heating"},
	{"emergencyStop", "Emergency stop"},
	{"stop", "Stopped"},
	{"away", "Away"},
	{"longAway", "Long away"},
	{"temperatureBoost", "Temperature boost"},
	{"co2Boost", "CO2 boost"},
	{"humidityBoost", "Humidity boost"},
	{"manualBoost", "Manual boost"},
	{"overPressure", "Overpressure"},
	{"cookerHood", "Cooker hood"},
	{"centralVacuumCleaner", "Central vacuum cleaner"},
	{"heaterCooldown", "Heater cooldown"},
	{"summerNightCooling", "Summer night cooling"},
	{"defrosting", "Defrosting"},
}

// Entities returns every discovery configuration for the unit described by info. Entities the
// unit is unlikely to support are still announced but disabled by default.
func Entities(info enervent.DeviceInformation) ([]Entity, error) {
	b, err := newBuilder(info)
	if err != nil {
		return nil, err
	}
	profile := enervent.ProfileFor(info.AutomationType)
	edw := info.HeatingTypeInstalled != nil && *info.HeatingTypeInstalled == enervent.HeatingTypeEDW

	addSensors(b, profile, edw)
	addNumbers(b)
	addSwitches(b, profile)
	addBinarySensors(b)

	b.add(ComponentButton, "acknowledgeAlarm", Configuration{
		"unique_id":     "eda-button-acknowledgeAlarm",
		"name":          "Acknowledge newest alarm",
		"object_id":     "eda_button_acknowledgeAlarm",
		"command_topic": apis.TopicAlarmAcknowledge,
	})

	setting := string(enervent.SettingTemperatureControlMode)
	b.add(ComponentSelect, setting, Configuration{
		"unique_id":        "eda-select-" + setting,
		"name":             "Temperature control mode",
		"object_id":        "eda_select_" + setting,
		"options":          TemperatureControlModes,
		"state_topic":      apis.TopicPrefixSettings + "/" + setting,
		"command_topic":    apis.TopicPrefixSettings + "/" + setting + apis.TopicSuffixSet,
		"command_template": "{{ this.attributes.options.index(value) + 1 }}",
		"value_template":   "{{ this.attributes.options[(value | int) - 1] }}",
	})

	if len(b.errs) > 0 {
		return nil, utilerrors.NewAggregate(b.errs)
	}
	return b.entities, nil
}

func addSensors(b *builder, profile *enervent.FirmwareProfile, edw bool) {
	sensor := func(reading, name string, extra ...Configuration) {
		b.add(ComponentSensor, reading, append([]Configuration{sensorConfiguration(reading, name)}, extra...)...)
	}

	sensor("freshAirTemperature", "Outside temperature", temperature)
	sensor("supplyAirTemperature", "Supply air temperature", temperature)
	sensor("supplyAirTemperatureAfterHeatRecovery", "Supply air temperature (after heat recovery)", temperature)
	sensor("exhaustAirTemperature", "Exhaust air temperature", temperature)
	sensor("exhaustAirTemperatureBeforeHeatRecovery", "Exhaust air temperature (before heat recovery)", temperature, enabled(!edw))
	sensor("returnWaterTemperature", "Return water temperature", temperature, enabled(edw))
	sensor("wasteAirTemperature", "Waste air temperature", temperature)

	sensor("exhaustAirHumidity", "Exhaust air humidity", humidity)
	sensor("mean48HourExhaustHumidity", "Exhaust air humidity (48h mean)", humidity)

	sensor("heatRecoverySupplySide", "Heat recovery (supply)", percent)
	sensor("heatRecoveryExhaustSide", "Heat recovery (exhaust)", percent)
	sensor("cascadeSp", "Cascade setpoint")
	sensor("cascadeP", "Cascade P-value")
	sensor("cascadeI", "Cascade I-value")
	sensor("overPressureTimeLeft", "Overpressure time left", Configuration{"unit_of_measurement": "minutes"})
	sensor("ventilationLevelTarget", "Ventilation level (target)", percent)
	sensor("ventilationLevelActual", "Ventilation level (actual)", percent)

	// Optional sensors depend on the unit's analog inputs.
	sensor("roomTemperatureAvg", "Room temperature (average)", temperature, enabled(false))
	for _, st := range enervent.AnalogSensorTypes {
		switch st.Kind {
		case enervent.SensorCO2:
			sensor(st.Name, st.Description, enabled(false))
		case enervent.SensorRH:
			sensor(st.Name, st.Description, humidity, enabled(false))
		case enervent.SensorRoomTemperature:
			sensor(st.Name, st.Description, temperature, enabled(false))
		}
	}

	panel := enabled(profile.ControlPanelReadings)
	sensor("controlPanel1Temperature", "Control panel #1 temperature", temperature, panel)
	sensor("controlPanel2Temperature", "Control panel #2 temperature", temperature, panel)
	sensor("supplyFanSpeed", "Supply fan speed", percent, panel)
	sensor("exhaustFanSpeed", "Exhaust fan speed", percent, panel)
}

func addNumbers(b *builder) {
	number := func(setting enervent.Setting, name, unit string, fallbackMin, fallbackMax float64) {
		b.add(ComponentNumber, string(setting),
			numberConfiguration(string(setting), name),
			numberRange(setting, fallbackMin, fallbackMax),
			Configuration{"unit_of_measurement": unit},
		)
	}

	number(enervent.SettingOverPressureDelay, "Overpressure delay", "minutes", 0, 60)
	number(enervent.SettingAwayVentilationLevel, "Away ventilation level", "%", 20, 100)
	number(enervent.SettingAwayTemperatureReduction, "Away temperature reduction", "°C", 0, 20)
	number(enervent.SettingLongAwayVentilationLevel, "Long away ventilation level", "%", 20, 100)
	number(enervent.SettingLongAwayTemperatureReduction, "Long away temperature reduction", "°C", 0, 20)
	number(enervent.SettingTemperatureTarget, "Temperature target", "°C", 10, 30)
	number(enervent.SettingSupplyFanOverPressure, "Supply fan speed (during overpressure)", "%", 20, 100)
	number(enervent.SettingExhaustFanOverPressure, "Exhaust fan speed (during overpressure)", "%", 20, 100)
}

func addSwitches(b *builder, profile *enervent.FirmwareProfile) {
	mode := func(m enervent.Mode, name string) {
		b.add(ComponentSwitch, string(m),
			switchConfiguration(apis.TopicPrefixMode, string(m), name),
			Configuration{"icon": "mdi:fan"},
			enabled(profile.SupportsMode(m)),
		)
	}
	mode(enervent.ModeAway, "Away")
	mode(enervent.ModeLongAway, "Long away")
	mode(enervent.ModeOverPressure, "Overpressure")
	mode(enervent.ModeMaxHeating, "Max heating")
	mode(enervent.ModeMaxCooling, "Max cooling")
	mode(enervent.ModeManualBoost, "Manual boost")
	mode(enervent.ModeSummerNightCooling, "Summer night cooling")
	mode(enervent.ModeEco, "Eco")

	setting := func(s enervent.Setting, name string) {
		b.add(ComponentSwitch, string(s),
			switchConfiguration(apis.TopicPrefixSettings, string(s), name),
			enabled(profile.SupportsSetting(s)),
		)
	}
	setting(enervent.SettingCoolingAllowed, "Cooling allowed")
	setting(enervent.SettingHeatingAllowed, "Heating allowed")
	setting(enervent.SettingAwayCoolingAllowed, "Cooling allowed (away mode)")
	setting(enervent.SettingAwayHeatingAllowed, "Heating allowed (away mode)")
	setting(enervent.SettingLongAwayCoolingAllowed, "Cooling allowed (long away mode)")
	setting(enervent.SettingLongAwayHeatingAllowed, "Heating allowed (long away mode)")
	setting(enervent.SettingDefrostingAllowed, "Defrosting allowed")
}

func addBinarySensors(b *builder) {
	for _, alarm := range enervent.Alarms {
		b.add(ComponentBinarySensor, alarm.Name, Configuration{
			"unique_id":       "eda-" + alarm.Name,
			"name":            alarm.Description,
			"object_id":       "eda_" + alarm.Name,
			"icon":            "mdi:alarm-bell",
			"state_topic":     apis.TopicPrefixAlarm + "/" + alarm.Name,
			"entity_category": "diagnostic",
		})
	}

	// Device state entities must not collide with the mode switches of the same name.
	for _, ds := range deviceStateNames {
		b.add(ComponentBinarySensor, ds.state, Configuration{
			"unique_id":       "eda-state-" + ds.state,
			"name":            ds.name,
			"object_id":       "eda_state_" + ds.state,
			"state_topic":     apis.TopicPrefixDeviceState + "/" + ds.state,
			"entity_category": "diagnostic",
		})
	}
}
