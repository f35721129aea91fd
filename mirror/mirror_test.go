package mirror

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"
)

type published struct {
	topic   string
	id      uint16
	payload []byte
}

type fakePublisher struct {
	connected bool
	sent      []published
	err       error
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

func (p *fakePublisher) PublishPayload(flags mqtt.PacketFlags, vp mqtt.VariablesPublish, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{
		topic:   string(vp.TopicName),
		id:      vp.PacketIdentifier,
		payload: append([]byte(nil), payload...),
	})
	return nil
}

func counter() func() uint16 {
	var n uint16
	return func() uint16 {
		n++
		return n
	}
}

func TestPublishKeystroke(t *testing.T) {
	pub := &fakePublisher{connected: true}
	f, err := NewForwarder(pub, "", counter())
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}

	if err := f.Publish(NewKeystroke('A', 2*time.Second)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := f.Publish(NewKeystroke(0, 3*time.Second)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(pub.sent) != 2 {
		t.Fatalf("sent: expected 2, got %d", len(pub.sent))
	}
	if pub.sent[0].topic != DefaultTopic {
		t.Errorf("topic: expected %q, got %q", DefaultTopic, pub.sent[0].topic)
	}
	if pub.sent[0].id != 1 || pub.sent[1].id != 2 {
		t.Errorf("packet IDs: got %d, %d", pub.sent[0].id, pub.sent[1].id)
	}

	var k Keystroke
	if err := json.Unmarshal(pub.sent[0].payload, &k); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if k.Char != "A" || k.Clear || k.SinceBootNS != 2*time.Second {
		t.Errorf("first payload: got %+v", k)
	}

	k = Keystroke{}
	if err := json.Unmarshal(pub.sent[1].payload, &k); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if !k.Clear || k.Char != "" {
		t.Errorf("clear payload: got %+v", k)
	}
}

func TestPublishDisconnected(t *testing.T) {
	pub := &fakePublisher{}
	f, _ := NewForwarder(pub, "term/1", counter())

	if err := f.Publish(NewKeystroke('x', 0)); !errors.Is(err, ErrDisconnected) {
		t.Errorf("expected ErrDisconnected, got %v", err)
	}
	if len(pub.sent) != 0 {
		t.Errorf("nothing should be sent while disconnected")
	}
}

func TestPublishError(t *testing.T) {
	pub := &fakePublisher{connected: true, err: errors.New("tcp closed")}
	f, _ := NewForwarder(pub, "term/1", counter())

	if err := f.Publish(NewKeystroke('x', 0)); err == nil {
		t.Error("expected error")
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr       string
		host, port string
		wantErr    bool
	}{
		{"10.0.0.9:1883", "10.0.0.9", "1883", false},
		{"broker.local:8883", "broker.local", "8883", false},
		{"broker.local", "", "", true},
		{":1883", "", "", true},
		{"broker:", "", "", true},
	}
	for _, tt := range tests {
		host, port, err := splitHostPort(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("splitHostPort(%q): err=%v, wantErr=%v", tt.addr, err, tt.wantErr)
			continue
		}
		if host != tt.host || port != tt.port {
			t.Errorf("splitHostPort(%q): got %q %q", tt.addr, host, port)
		}
	}
}
