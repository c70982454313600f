// Package mqtt publishes readings to an mqtt broker.
package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"saunamon/pkg/measurement"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/womat/debug"
)

const (
	// quiesce is the specified number of milliseconds to wait for existing work to be completed.
	quiesce = 250
	// connectTimeout limits the wait for the broker on (re)connect.
	connectTimeout = 10 * time.Second

	name = "mqtt"
)

// Handler contains the client of the mqtt broker.
type Handler struct {
	client mqttlib.Client
	// C is the channel to service the mqtt messages.
	// Sending a message to channel C publishes the message.
	C chan Message

	closeOnce sync.Once
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New generates a new mqtt handler.
func New() *Handler {
	return &Handler{
		C: make(chan Message),
	}
}

// Connect connects to the mqtt broker, e.g. tcp://127.0.0.1:1883.
// If no broker is defined, no mqtt messages are sent.
func (m *Handler) Connect(broker, clientID string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout)
	m.client = mqttlib.NewClient(opts)
	return m.reconnect()
}

// reconnect reconnects to the defined mqtt broker.
func (m *Handler) reconnect() error {
	t := m.client.Connect()
	if !t.WaitTimeout(connectTimeout) {
		return errors.New("mqtt connect timeout")
	}
	return t.Error()
}

// Disconnect ends the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.client == nil {
		return nil
	}

	m.client.Disconnect(quiesce)
	return nil
}

// Close closes channel C, which ends Service, and disconnects the broker.
// Nothing may be sent to C afterwards.
func (m *Handler) Close() error {
	m.closeOnce.Do(func() { close(m.C) })
	return m.Disconnect()
}

// Service listens to messages on channel C and publishes them.
// If no client or topic is defined, the message is dropped.
// Service returns when C is closed.
func (m *Handler) Service() {
	for msg := range m.C {
		if m.client == nil || msg.Topic == "" {
			continue
		}

		if !m.client.IsConnected() {
			debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

			if err := m.reconnect(); err != nil {
				debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
				continue
			}
		}

		debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
		t := m.client.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

		go func(topic string) {
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
			}
		}(msg.Topic)
	}
}

// Sink hands readings as json to the Service of a handler.
type Sink struct {
	h     *Handler
	topic string
}

// NewSink returns a sink publishing to topic.
func NewSink(h *Handler, topic string) *Sink {
	return &Sink{h: h, topic: topic}
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return name
}

// Send queues the reading. Publishing is asynchronous, broker errors are logged by Service.
func (s *Sink) Send(ctx context.Context, r measurement.Reading) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "mqtt marshal")
	}

	select {
	case s.h.C <- Message{Qos: 0, Retained: true, Topic: s.topic, Payload: b}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
