package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"edabridge/pkg/apis"
	"edabridge/pkg/device"
	"edabridge/pkg/enervent"
	"edabridge/pkg/protocol/modbus"
	"edabridge/pkg/protocol/modbus/modbustest"
	"edabridge/pkg/protocol/modbus/runtime"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	payload  string
	retained bool
}

type fakeClient struct {
	mu            sync.Mutex
	connected     bool
	connectErr    error
	publishErr    error
	messages      map[string]message
	subscriptions map[string]mqtt.MessageHandler
	disconnected  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages:      make(map[string]message),
		subscriptions: make(map[string]mqtt.MessageHandler),
	}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return &fakeToken{err: c.connectErr}
	}
	c.connected = true
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return &fakeToken{err: c.publishErr}
	}
	c.messages[topic] = message{payload: payload.(string), retained: retained}
	return &fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[topic] = callback
	return &fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic, q := range filters {
		c.Subscribe(topic, q, callback)
	}
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.subscriptions, topic)
	}
	return &fakeToken{}
}

func (c *fakeClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader { return mqtt.ClientOptionsReader{} }

func (c *fakeClient) message(topic string) (message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.messages[topic]
	return m, ok
}

func (c *fakeClient) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make(map[string]message)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// newUnit returns a broker for a simulated LTR-3 running MD firmware.
func newUnit(t *testing.T, o Options) (*Broker, *fakeClient, *modbustest.Simulator) {
	t.Helper()
	sim := modbustest.NewSimulator()
	sim.SetRegisters(enervent.RegisterSoftwareVersion, 185)
	sim.SetCoils(enervent.CoilFanType, true)
	sim.SetRegisters(enervent.RegisterModelInformation, 0, 5, 1234)
	client := newFakeClient()
	return newBroker(client, device.NewManager(modbus.NewGateway(sim)), o), client, sim
}

func TestPublishValues(t *testing.T) {
	b, client, sim := newUnit(t, Options{})
	sim.SetCoils(1, true)
	sim.SetRegisters(6, 123)
	sim.SetRegisters(135, 225)
	sim.SetRegisters(enervent.RegisterNewestAlarm, 12, 2, 24, 3, 17, 8, 45)

	require.NoError(t, b.PublishValues(context.Background()))

	tests := []struct {
		topic    string
		payload  string
		retained bool
	}{
		{topic: "eda/status", payload: "online", retained: true},
		{topic: "eda/mode/away", payload: "ON"},
		{topic: "eda/mode/longAway", payload: "OFF"},
		{topic: "eda/readings/freshAirTemperature", payload: "12.3", retained: true},
		{topic: "eda/settings/temperatureTarget", payload: "22.5"},
		{topic: "eda/settings/defrostingAllowed", payload: "OFF"},
		{topic: "eda/alarm/EmergencyStop", payload: "ON", retained: true},
		{topic: "eda/alarm/FireRisk", payload: "OFF", retained: true},
		{topic: "eda/deviceState/normal", payload: "ON", retained: true},
		{topic: "eda/deviceState/away", payload: "OFF", retained: true},
	}
	for _, tt := range tests {
		m, ok := client.message(tt.topic)
		require.True(t, ok, tt.topic)
		assert.Equal(t, tt.payload, m.payload, tt.topic)
		assert.Equal(t, tt.retained, m.retained, tt.topic)
	}
}

func TestPublishValuesStopsOnBusError(t *testing.T) {
	b, client, sim := newUnit(t, Options{})
	errTimeout := errors.New("request timed out")
	sim.Fail(runtime.OperationReadCoils, errTimeout)

	assert.ErrorIs(t, b.PublishValues(context.Background()), errTimeout)
	_, ok := client.message("eda/status")
	assert.False(t, ok)
}

func TestPublishAggregatesErrors(t *testing.T) {
	b, client, _ := newUnit(t, Options{})
	client.publishErr = errors.New("not connected")
	err := b.PublishModes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing to eda/mode/away")
}

func TestPublishDeviceInformation(t *testing.T) {
	b, client, _ := newUnit(t, Options{})
	require.NoError(t, b.PublishDeviceInformation(context.Background()))

	m, ok := client.message("eda/deviceInformation/modelType")
	require.True(t, ok)
	assert.Equal(t, `"LTR-3"`, m.payload)
	assert.True(t, m.retained)

	m, _ = client.message("eda/deviceInformation/softwareVersion")
	assert.Equal(t, "1.85", m.payload)
	m, _ = client.message("eda/deviceInformation/coolingTypeInstalled")
	assert.Equal(t, "null", m.payload)
}

func TestPublishDiscovery(t *testing.T) {
	b, client, _ := newUnit(t, Options{})
	ctx := context.Background()
	require.NoError(t, b.PublishDiscovery(ctx))

	info, err := b.device.GetDeviceInformation(ctx)
	require.NoError(t, err)
	id := enervent.DeviceIdentifier(info)

	m, ok := client.message("homeassistant/sensor/" + id + "/freshAirTemperature/config")
	require.True(t, ok)
	assert.True(t, m.retained)
	assert.Contains(t, m.payload, `"state_topic":"eda/readings/freshAirTemperature"`)

	_, ok = client.message("homeassistant/button/" + id + "/acknowledgeAlarm/config")
	assert.True(t, ok)
}

func TestHandleMessage(t *testing.T) {
	b, client, sim := newUnit(t, Options{})
	ctx := context.Background()

	require.NoError(t, b.HandleMessage(ctx, "eda/settings/temperatureTarget/set", []byte("21.5")))
	assert.Equal(t, uint16(215), sim.Register(135))
	m, ok := client.message("eda/settings/temperatureTarget")
	require.True(t, ok)
	assert.Equal(t, "21.5", m.payload)

	require.NoError(t, b.HandleMessage(ctx, "eda/settings/coolingAllowed/set", []byte("ON")))
	assert.True(t, sim.Coil(52))

	client.reset()
	require.NoError(t, b.HandleMessage(ctx, "eda/mode/away/set", []byte("ON")))
	assert.True(t, sim.Coil(1))
	m, ok = client.message("eda/mode/away")
	require.True(t, ok)
	assert.Equal(t, "ON", m.payload)

	require.NoError(t, b.HandleMessage(ctx, "eda/mode/away/set", []byte("false")))
	assert.False(t, sim.Coil(1))

	require.NoError(t, b.HandleMessage(ctx, "eda/alarm/acknowledge", nil))
	assert.Equal(t, uint16(1), sim.Register(enervent.RegisterAlarmAcknowledge))

	assert.ErrorIs(t, b.HandleMessage(ctx, "eda/mode/away/set", []byte("maybe")), enervent.ErrInvalidValueType)
	assert.ErrorIs(t, b.HandleMessage(ctx, "eda/mode/turbo/set", []byte("ON")), enervent.ErrUnknownMode)
	assert.ErrorIs(t, b.HandleMessage(ctx, "eda/settings/temperatureTarget/set", []byte("45")), enervent.ErrOutOfRange)
	assert.NoError(t, b.HandleMessage(ctx, "eda/mode//set", []byte("ON")))
	assert.NoError(t, b.HandleMessage(ctx, "eda/readings/freshAirTemperature", []byte("1")))
}

func TestOnConnect(t *testing.T) {
	b, client, sim := newUnit(t, Options{})
	b.onConnect(client)

	m, ok := client.message("eda/status")
	require.True(t, ok)
	assert.Equal(t, "online", m.payload)
	assert.True(t, m.retained)

	require.Len(t, client.subscriptions, 3)
	handler := client.subscriptions["eda/mode/+/set"]
	require.NotNil(t, handler)
	handler(client, &fakeMessage{topic: "eda/mode/longAway/set", payload: []byte("ON")})
	assert.True(t, sim.Coil(2))
	assert.Contains(t, client.subscriptions, "eda/settings/+/set")
	assert.Contains(t, client.subscriptions, "eda/alarm/acknowledge")
}

func TestRun(t *testing.T) {
	b, client, _ := newUnit(t, Options{PublishInterval: 10 * time.Millisecond, Discovery: true, MaxSubsequentErrors: 2})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		_, ok := client.message("eda/readings/freshAirTemperature")
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	_, ok := client.message("eda/deviceInformation/modelName")
	assert.True(t, ok)
	_, ok = client.message("homeassistant/select/enervent-ltr-3-ec/temperatureControlMode/config")
	assert.True(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("broker did not stop")
	}
}

func TestRunGivesUpAfterSubsequentErrors(t *testing.T) {
	b, _, sim := newUnit(t, Options{PublishInterval: 10 * time.Millisecond, MaxSubsequentErrors: 2})
	errTimeout := errors.New("request timed out")
	sim.Fail(runtime.OperationReadHoldingRegisters, errTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, b.Run(ctx), errTimeout)
	assert.Equal(t, 3, b.errors.Count())
}

func TestRunWithoutBroker(t *testing.T) {
	b, client, _ := newUnit(t, Options{PublishInterval: time.Second})
	client.connectErr = errors.New("connection refused")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, b.Connect(ctx))
	assert.NoError(t, b.Run(ctx))
}

func TestClose(t *testing.T) {
	b, client, _ := newUnit(t, Options{})
	require.NoError(t, b.Close(context.Background()))
	assert.False(t, client.disconnected)

	require.NoError(t, b.Connect(context.Background()))
	require.NoError(t, b.Close(context.Background()))
	m, ok := client.message("eda/status")
	require.True(t, ok)
	assert.Equal(t, "offline", m.payload)
	assert.True(t, client.disconnected)
}

func TestParsePayload(t *testing.T) {
	assert.Equal(t, true, parsePayload([]byte("ON")))
	assert.Equal(t, false, parsePayload([]byte("OFF")))
	assert.Equal(t, "on", parsePayload([]byte("on")))
	assert.Equal(t, "21.5", parsePayload([]byte("21.5")))
}

func TestClientOptions(t *testing.T) {
	b, _, _ := newUnit(t, Options{BrokerURL: "mqtt://localhost:1883", Username: "user"})
	opts := b.clientOptions()
	assert.Regexp(t, "^edabridge-[0-9A-Za-z]+$", opts.ClientID)
	assert.NotEqual(t, opts.ClientID, b.clientOptions().ClientID)
	assert.True(t, opts.WillEnabled)
	assert.True(t, opts.WillRetained)
	assert.Equal(t, apis.TopicStatus, opts.WillTopic)
	assert.Equal(t, apis.PayloadOffline, string(opts.WillPayload))
	assert.Empty(t, opts.Username, "credentials need both username and password")

	b.options.Password = "secret"
	opts = b.clientOptions()
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "secret", opts.Password)
}
