package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/homedash/internal/pkg/model"
)

type mockToken struct {
	err error
}

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Error() error                   { return t.err }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type MockClient struct {
	paho_mqtt.Client
	mu        sync.Mutex
	published []published
}

func (m *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &mockToken{}
}

func TestRegisterWidget(t *testing.T) {
	client := &MockClient{}
	svc := New(client, "")
	name := "Living Room"
	w := model.DashboardWidget{ID: "W1", Name: &name, Widget: model.Widget{Component: "SwitchWidget"}}

	require.NoError(t, svc.RegisterWidget(w))
	require.NoError(t, svc.RegisterWidget(w))
	require.Len(t, client.published, 1, "discovery is sent once per widget")

	p := client.published[0]
	assert.Equal(t, "homeassistant/binary_sensor/living-room-w1/config", p.topic)
	assert.True(t, p.retained)

	var msg model.RegisterMessage
	require.NoError(t, json.Unmarshal(p.payload, &msg))
	assert.Equal(t, "homedash/binary_sensor/living-room-w1", msg.Tilda)
	assert.Equal(t, "~/state", msg.StateTopic)
	assert.Equal(t, "ON", msg.PayloadOn)
	assert.Equal(t, "SwitchWidget", msg.Device.Model)
}

func TestWrite(t *testing.T) {
	client := &MockClient{}
	svc := New(client, "home")

	err := svc.Write(context.Background(), []model.WidgetState{
		{WidgetID: "w1", Name: "Kitchen", AnyOn: true, Devices: make([]model.DeviceState, 2)},
		{WidgetID: "w2", Name: "Porch", Warning: "live update failed: timeout"},
	})
	require.NoError(t, err)
	require.Len(t, client.published, 2)

	assert.Equal(t, "home/binary_sensor/kitchen-w1/state", client.published[0].topic)
	assert.JSONEq(t, `{"state":"ON","devices":2}`, string(client.published[0].payload))
	assert.JSONEq(t, `{"state":"OFF","devices":0,"warning":"live update failed: timeout"}`, string(client.published[1].payload))
}
