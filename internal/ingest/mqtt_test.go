package ingest

import (
	"errors"
	"testing"

	"github.com/smartegg/smartegg-core/internal/infrastructure/mqtt"
)

type fakeSubscriber struct {
	topic   string
	qos     byte
	handler mqtt.MessageHandler
	err     error
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.topic, f.qos, f.handler = topic, qos, handler
	return f.err
}

func TestSubscribeMQTT(t *testing.T) {
	f := setup(t)
	sub := &fakeSubscriber{}

	if err := f.pipeline.SubscribeMQTT(sub, 1); err != nil {
		t.Fatalf("SubscribeMQTT() error = %v", err)
	}
	if sub.topic != "smartegg/sensor/+/reading" || sub.qos != 1 {
		t.Errorf("subscribed to %q qos %d", sub.topic, sub.qos)
	}

	payload := []byte(`{"temperature": 38.5, "humidity": 55, "apiKey": "board-secret"}`)
	if err := sub.handler("smartegg/sensor/inc-1/reading", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(f.notifier.alerts) != 1 {
		t.Errorf("mqtt reading raised %d alerts, want 1", len(f.notifier.alerts))
	}
}

func TestSubscribeMQTT_Error(t *testing.T) {
	f := setup(t)
	if err := f.pipeline.SubscribeMQTT(&fakeSubscriber{err: mqtt.ErrNotConnected}, 1); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("SubscribeMQTT() error = %v, want ErrNotConnected", err)
	}
}

func TestHandleMQTT_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"bad topic", "smartegg/sensor/reading", `{}`, ErrInvalidReading},
		{"bad json", "smartegg/sensor/inc-1/reading", `{`, ErrInvalidReading},
		{"topic mismatch", "smartegg/sensor/inc-1/reading", `{"incubationId":"inc-2","temperature":37,"humidity":50,"apiKey":"board-secret"}`, ErrInvalidReading},
		{"wrong key", "smartegg/sensor/inc-1/reading", `{"temperature":37,"humidity":50,"apiKey":"x"}`, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if err := f.pipeline.handleMQTT(tt.topic, []byte(tt.payload)); !errors.Is(err, tt.wantErr) {
				t.Errorf("handleMQTT() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
