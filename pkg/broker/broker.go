package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"edabridge/pkg/apis"
	"edabridge/pkg/enervent"
	"edabridge/pkg/homeassistant"
	"edabridge/pkg/runtime"
	"edabridge/pkg/utils/uuidutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

const (
	qos                  = 0
	mqttTimeout          = 5 * time.Second
	commandTimeout       = 30 * time.Second
	disconnectQuiesce    = 250
	initialRetryInterval = 5 * time.Second
)

// Device is the part of the domain the broker publishes and controls.
type Device interface {
	GetDeviceInformation(ctx context.Context) (enervent.DeviceInformation, error)
	GetModeSummary(ctx context.Context) (enervent.ModeSummary, error)
	GetReadings(ctx context.Context) (enervent.Readings, error)
	GetSettings(ctx context.Context) (enervent.Settings, error)
	GetAlarmSummary(ctx context.Context) ([]enervent.AlarmStatus, error)
	GetDeviceState(ctx context.Context) (enervent.DeviceState, error)
	SetMode(ctx context.Context, name string, value bool) error
	SetSetting(ctx context.Context, name string, value interface{}) error
	AcknowledgeAlarm(ctx context.Context) error
}

type Options struct {
	BrokerURL           string
	Username            string
	Password            string
	PublishInterval     time.Duration
	Discovery           bool
	MaxSubsequentErrors int
}

// Broker publishes the unit's state to MQTT at a fixed interval and applies commands received on
// the /set topics.
type Broker struct {
	client  mqtt.Client
	device  Device
	options Options
	errors  *runtime.ErrorHandler

	// announced is set once device information and discovery configuration have been published.
	mu        sync.Mutex
	announced bool
}

func NewBroker(device Device, o Options) *Broker {
	registerMetrics()
	b := newBroker(nil, device, o)
	b.client = mqtt.NewClient(b.clientOptions())
	return b
}

func newBroker(client mqtt.Client, device Device, o Options) *Broker {
	return &Broker{
		client:  client,
		device:  device,
		options: o,
		errors:  runtime.NewErrorHandler(o.MaxSubsequentErrors),
	}
}

func (b *Broker) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(b.options.BrokerURL).
		SetClientID("edabridge-"+uuidutil.ShortUUID()).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetWill(apis.TopicStatus, apis.PayloadOffline, qos, true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			klog.ErrorS(err, "Lost connection to MQTT broker", "broker", b.options.BrokerURL)
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			klog.V(2).InfoS("Attempting to reconnect to MQTT broker", "broker", b.options.BrokerURL)
		})
	if len(b.options.Username) != 0 && len(b.options.Password) != 0 {
		klog.V(2).InfoS("Using MQTT broker authentication", "username", b.options.Username)
		opts.SetUsername(b.options.Username)
		opts.SetPassword(b.options.Password)
	}
	return opts
}

// onConnect runs after every successful (re)connection. Subscriptions do not survive a clean
// session so they are renewed here.
func (b *Broker) onConnect(client mqtt.Client) {
	klog.V(1).InfoS("Connected to MQTT broker", "broker", b.options.BrokerURL)
	if err := b.publishTopics(map[string]string{apis.TopicStatus: apis.PayloadOnline}, true); err != nil {
		klog.ErrorS(err, "Failed to publish availability")
	}
	for _, topic := range SubscriptionTopics {
		klog.V(2).InfoS("Subscribing to topic", "topic", topic)
		token := client.Subscribe(topic, qos, b.handleMessage)
		if !token.WaitTimeout(mqttTimeout) {
			klog.ErrorS(nil, "Timed out subscribing to topic", "topic", topic)
			continue
		}
		if err := token.Error(); err != nil {
			klog.ErrorS(err, "Failed to subscribe to topic", "topic", topic)
		}
	}
}

var SubscriptionTopics = []string{
	apis.TopicPrefixMode + "/+" + apis.TopicSuffixSet,
	apis.TopicPrefixSettings + "/+" + apis.TopicSuffixSet,
	apis.TopicAlarmAcknowledge,
}

// Connect blocks until the first connection to the broker succeeds, retrying at a fixed
// interval. Later disconnects are handled by the client's own reconnect logic.
func (b *Broker) Connect(ctx context.Context) error {
	klog.V(1).InfoS("Connecting to MQTT broker", "broker", b.options.BrokerURL)
	return wait.PollUntilContextCancel(ctx, initialRetryInterval, true, func(context.Context) (bool, error) {
		token := b.client.Connect()
		if !token.WaitTimeout(mqttTimeout) {
			klog.ErrorS(nil, "Timed out connecting to MQTT broker", "retryIn", initialRetryInterval)
			return false, nil
		}
		if err := token.Error(); err != nil {
			klog.ErrorS(err, "Failed to connect to MQTT broker", "retryIn", initialRetryInterval)
			return false, nil
		}
		return true, nil
	})
}

// Run connects and publishes until ctx is done. It returns an error only once more than the
// configured number of subsequent publish cycles failed.
func (b *Broker) Run(ctx context.Context) error {
	if err := b.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	klog.V(1).InfoS("MQTT scheduler started", "interval", b.options.PublishInterval)
	err := wait.PollUntilContextCancel(ctx, b.options.PublishInterval, true, func(ctx context.Context) (bool, error) {
		if err := b.publishCycle(ctx); err != nil {
			return false, b.errors.Handle(err)
		}
		b.errors.Reset()
		return false, nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *Broker) publishCycle(ctx context.Context) error {
	b.mu.Lock()
	announced := b.announced
	b.mu.Unlock()

	if !announced {
		if err := b.PublishDeviceInformation(ctx); err != nil {
			return err
		}
		if b.options.Discovery {
			if err := b.PublishDiscovery(ctx); err != nil {
				return err
			}
			klog.V(1).InfoS("Finished configuring Home Assistant MQTT discovery")
		}
		b.mu.Lock()
		b.announced = true
		b.mu.Unlock()
	}
	return b.PublishValues(ctx)
}

// Close marks the bridge offline and disconnects.
func (b *Broker) Close(context.Context) error {
	if !b.client.IsConnected() {
		return nil
	}
	err := b.publishTopics(map[string]string{apis.TopicStatus: apis.PayloadOffline}, true)
	b.client.Disconnect(disconnectQuiesce)
	return err
}

// PublishValues publishes modes, readings, settings, alarms and device state.
func (b *Broker) PublishValues(ctx context.Context) error {
	topics := map[string]string{
		apis.TopicStatus: apis.PayloadOnline,
	}

	if err := b.PublishModes(ctx); err != nil {
		return err
	}

	readings, err := b.device.GetReadings(ctx)
	if err != nil {
		return err
	}
	for name, value := range readings.Map() {
		if topics[apis.TopicPrefixReadings+"/"+name], err = encodeValue(value); err != nil {
			return err
		}
	}

	if err := b.PublishSettings(ctx); err != nil {
		return err
	}

	alarms, err := b.device.GetAlarmSummary(ctx)
	if err != nil {
		return err
	}
	for _, alarm := range alarms {
		topics[apis.TopicPrefixAlarm+"/"+alarm.Name] = binaryValue(alarm.State == enervent.AlarmStateActive)
	}

	state, err := b.device.GetDeviceState(ctx)
	if err != nil {
		return err
	}
	flags := map[string]bool{}
	if err := remarshal(state, &flags); err != nil {
		return err
	}
	for name, value := range flags {
		topics[apis.TopicPrefixDeviceState+"/"+name] = binaryValue(value)
	}

	return b.publishTopics(topics, true)
}

func (b *Broker) PublishModes(ctx context.Context) error {
	modes, err := b.device.GetModeSummary(ctx)
	if err != nil {
		return err
	}
	topics := make(map[string]string, len(modes))
	for mode, active := range modes {
		topics[apis.TopicPrefixMode+"/"+string(mode)] = binaryValue(active)
	}
	return b.publishTopics(topics, false)
}

func (b *Broker) PublishSettings(ctx context.Context) error {
	settings, err := b.device.GetSettings(ctx)
	if err != nil {
		return err
	}
	topics := make(map[string]string)
	for setting, value := range settings.Map() {
		if topics[apis.TopicPrefixSettings+"/"+string(setting)], err = encodeValue(value); err != nil {
			return err
		}
	}
	return b.publishTopics(topics, false)
}

// PublishDeviceInformation publishes retained values since they never change.
func (b *Broker) PublishDeviceInformation(ctx context.Context) error {
	info, err := b.device.GetDeviceInformation(ctx)
	if err != nil {
		return err
	}
	fields := map[string]json.RawMessage{}
	if err := remarshal(info, &fields); err != nil {
		return err
	}
	topics := make(map[string]string, len(fields))
	for name, value := range fields {
		topics[apis.TopicPrefixDeviceInformation+"/"+name] = string(value)
	}
	klog.V(2).InfoS("Publishing device information")
	return b.publishTopics(topics, true)
}

// PublishDiscovery publishes retained Home Assistant configuration so that entities are available
// right after a Home Assistant restart.
func (b *Broker) PublishDiscovery(ctx context.Context) error {
	info, err := b.device.GetDeviceInformation(ctx)
	if err != nil {
		return err
	}
	entities, err := homeassistant.Entities(info)
	if err != nil {
		return err
	}
	id := enervent.DeviceIdentifier(info)
	topics := make(map[string]string, len(entities))
	for _, e := range entities {
		topics[e.Topic(id)] = string(e.Payload)
	}
	return b.publishTopics(topics, true)
}

func (b *Broker) publishTopics(topics map[string]string, retained bool) error {
	tokens := make(map[string]mqtt.Token, len(topics))
	for topic, payload := range topics {
		klog.V(5).InfoS("Publishing MQTT message", "topic", topic, "payload", payload, "retained", retained)
		tokens[topic] = b.client.Publish(topic, qos, retained, payload)
	}

	var errs []error
	for topic, token := range tokens {
		if !token.WaitTimeout(mqttTimeout) {
			observePublish(false)
			errs = append(errs, fmt.Errorf("publishing to %s timed out", topic))
			continue
		}
		if err := token.Error(); err != nil {
			observePublish(false)
			errs = append(errs, errors.Wrapf(err, "publishing to %s", topic))
			continue
		}
		observePublish(true)
	}
	return utilerrors.NewAggregate(errs)
}

func (b *Broker) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := b.HandleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
		klog.ErrorS(err, "Failed to handle MQTT message", "topic", msg.Topic(), "payload", string(msg.Payload()))
	}
}

// HandleMessage applies a command received on one of the subscribed topics and republishes the
// affected state.
func (b *Broker) HandleMessage(ctx context.Context, topic string, raw []byte) error {
	klog.V(2).InfoS("Received MQTT message", "topic", topic, "payload", string(raw))
	payload := parsePayload(raw)

	switch {
	case topic == apis.TopicAlarmAcknowledge:
		klog.V(2).InfoS("Acknowledging newest alarm")
		return b.device.AcknowledgeAlarm(ctx)

	case isCommandTopic(topic, apis.TopicPrefixSettings):
		setting := commandName(topic, apis.TopicPrefixSettings)
		klog.V(2).InfoS("Updating setting", "setting", setting, "value", payload)
		if err := b.device.SetSetting(ctx, setting, payload); err != nil {
			return err
		}
		return b.PublishSettings(ctx)

	case isCommandTopic(topic, apis.TopicPrefixMode):
		mode := commandName(topic, apis.TopicPrefixMode)
		active, err := toBool(payload)
		if err != nil {
			return errors.Wrapf(err, "mode %s", mode)
		}
		klog.V(2).InfoS("Updating mode", "mode", mode, "active", active)
		if err := b.device.SetMode(ctx, mode, active); err != nil {
			return err
		}
		return b.PublishModes(ctx)
	}

	klog.V(4).InfoS("Ignoring message on unhandled topic", "topic", topic)
	return nil
}

func isCommandTopic(topic, prefix string) bool {
	return strings.HasPrefix(topic, prefix+"/") && strings.HasSuffix(topic, apis.TopicSuffixSet) &&
		len(topic) > len(prefix)+1+len(apis.TopicSuffixSet)
}

func commandName(topic, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(topic, prefix+"/"), apis.TopicSuffixSet)
}

// parsePayload turns ON/OFF into booleans and leaves anything else as a string.
func parsePayload(raw []byte) interface{} {
	switch s := string(raw); s {
	case apis.PayloadOn:
		return true
	case apis.PayloadOff:
		return false
	default:
		return s
	}
}

func toBool(payload interface{}) (bool, error) {
	switch v := payload.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, errors.Wrapf(enervent.ErrInvalidValueType, "%q is not ON or OFF", v)
		}
		return b, nil
	}
	return false, errors.Wrapf(enervent.ErrInvalidValueType, "%T is not a boolean", payload)
}

// binaryValue uses the defaults of Home Assistant's MQTT binary sensors.
func binaryValue(v bool) string {
	if v {
		return apis.PayloadOn
	}
	return apis.PayloadOff
}

func encodeValue(v interface{}) (string, error) {
	if b, ok := v.(bool); ok {
		return binaryValue(b), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func remarshal(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
