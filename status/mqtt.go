package status

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher is an optional secondary status-report sink: the spec only
// requires reports be observable, not that they go out one specific wire,
// so a machine can run the serial SerialSink and this one side by side.
type MQTTPublisher struct {
	Client mqtt.Client
	Topic  string
	QoS    byte
}

// NewMQTTPublisher connects a paho client to broker using the given client
// ID and returns a publisher bound to topic.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTPublisher{Client: client, Topic: topic, QoS: 0}, nil
}

// Publish encodes the sample as the same "token:value" line SerialSink
// uses and publishes it, fire-and-forget, to Topic.
func (m *MQTTPublisher) Publish(sample Sample) {
	if m.Client == nil || !m.Client.IsConnected() {
		return
	}
	m.Client.Publish(m.Topic, m.QoS, false, formatSample(sample))
}

// Close disconnects the underlying client, waiting up to waitMs for
// in-flight publishes to drain.
func (m *MQTTPublisher) Close(waitMs uint) {
	if m.Client == nil {
		return
	}
	m.Client.Disconnect(waitMs)
}
