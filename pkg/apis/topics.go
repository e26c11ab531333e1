package apis

// MQTT topics
const (
	TopicPrefix                  = "eda"
	TopicPrefixMode              = TopicPrefix + "/mode"
	TopicPrefixReadings          = TopicPrefix + "/readings"
	TopicPrefixSettings          = TopicPrefix + "/settings"
	TopicPrefixAlarm             = TopicPrefix + "/alarm"
	TopicPrefixDeviceInformation = TopicPrefix + "/deviceInformation"
	TopicPrefixDeviceState       = TopicPrefix + "/deviceState"
	TopicStatus                  = TopicPrefix + "/status"
	TopicAlarmAcknowledge        = TopicPrefixAlarm + "/acknowledge"

	// TopicSuffixSet marks command topics.
	TopicSuffixSet = "/set"

	PayloadOnline  = "online"
	PayloadOffline = "offline"
	PayloadOn      = "ON"
	PayloadOff     = "OFF"

	DiscoveryPrefix = "homeassistant"
)
