// Package mirror publishes keystrokes typed on the terminal to an MQTT
// broker, so a remote console can follow what is on the LCD.
package mirror

import (
	"encoding/json"
	"errors"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/harveysanders/ps2lcd/ps2"
)

// DefaultTopic is used when Forwarder is given an empty topic.
const DefaultTopic = "atterm/keys"

var ErrDisconnected = errors.New("mirror: not connected")

// Keystroke is the JSON payload of one published message.
type Keystroke struct {
	Char        string        `json:"char"`
	Clear       bool          `json:"clear,omitempty"`
	SinceBootNS time.Duration `json:"sinceBootNS"`
}

// NewKeystroke builds the payload for a character read from the keyboard.
func NewKeystroke(c byte, sinceBoot time.Duration) Keystroke {
	if c == ps2.ClearScreen {
		return Keystroke{Clear: true, SinceBootNS: sinceBoot}
	}
	return Keystroke{Char: string([]byte{c}), SinceBootNS: sinceBoot}
}

// Publisher is the part of *mqtt.Client the forwarder needs.
type Publisher interface {
	IsConnected() bool
	PublishPayload(flags mqtt.PacketFlags, vp mqtt.VariablesPublish, payload []byte) error
}

// Forwarder publishes keystrokes at QoS 0.
type Forwarder struct {
	pub    Publisher
	flags  mqtt.PacketFlags
	vars   mqtt.VariablesPublish
	nextID func() uint16
}

// NewForwarder returns a forwarder publishing to topic. nextID supplies
// packet identifiers.
func NewForwarder(pub Publisher, topic string, nextID func() uint16) (*Forwarder, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return nil, err
	}
	return &Forwarder{
		pub:    pub,
		flags:  flags,
		vars:   mqtt.VariablesPublish{TopicName: []byte(topic)},
		nextID: nextID,
	}, nil
}

// Publish sends k.
func (f *Forwarder) Publish(k Keystroke) error {
	if !f.pub.IsConnected() {
		return ErrDisconnected
	}
	payload, err := json.Marshal(k)
	if err != nil {
		return errors.New("mirror: marshal:" + err.Error())
	}
	f.vars.PacketIdentifier = f.nextID()
	if err := f.pub.PublishPayload(f.flags, f.vars, payload); err != nil {
		return errors.New("mirror: publish:" + err.Error())
	}
	return nil
}
