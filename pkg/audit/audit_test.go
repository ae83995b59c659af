package audit

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(ActionMask, "sess-1")

	if event.ID == "" {
		t.Error("event.ID is empty")
	}
	if event.Action != ActionMask {
		t.Errorf("event.Action = %q, want mask", event.Action)
	}
	if event.SessionID != "sess-1" {
		t.Errorf("event.SessionID = %q", event.SessionID)
	}
	if event.Timestamp.IsZero() {
		t.Error("event.Timestamp is zero")
	}

	other := NewEvent(ActionDelete, "sess-1")
	if other.ID == event.ID {
		t.Error("two events share an id")
	}
}

func TestLocalEmitter(t *testing.T) {
	emitter := NewLocalEmitter()

	var received []Event
	emitter.OnEvent(func(event Event) {
		received = append(received, event)
	})

	var alsoReceived int
	emitter.OnEvent(func(Event) {
		alsoReceived++
	})

	emitter.Emit(NewEvent(ActionMask, "sess-1"))
	emitter.Emit(NewEvent(ActionResolve, "sess-1"))

	if len(received) != 2 {
		t.Fatalf("first callback saw %d events, want 2", len(received))
	}
	if alsoReceived != 2 {
		t.Errorf("second callback saw %d events, want 2", alsoReceived)
	}
	if received[0].Action != ActionMask || received[1].Action != ActionResolve {
		t.Errorf("actions = %q, %q", received[0].Action, received[1].Action)
	}
}

func TestLocalEmitter_ClosedDropsEvents(t *testing.T) {
	emitter := NewLocalEmitter()

	var count int
	emitter.OnEvent(func(Event) { count++ })

	if err := emitter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	emitter.Emit(NewEvent(ActionMask, "sess-1"))

	if count != 0 {
		t.Errorf("closed emitter delivered %d events, want 0", count)
	}
}

func TestKafkaEmitter_PublishesEvents(t *testing.T) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer := mocks.NewAsyncProducer(t, config)
	producer.ExpectInputAndSucceed()

	emitter := NewKafkaEmitterWithProducer(producer, &KafkaEmitterConfig{
		Topic: "test.audit",
	})

	event := NewEvent(ActionMask, "sess-kafka")
	event.TokenCount = 3
	emitter.Emit(event)

	if err := emitter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaEmitter_PublishFailureIsSwallowed(t *testing.T) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer := mocks.NewAsyncProducer(t, config)
	producer.ExpectInputAndFail(sarama.ErrBrokerNotAvailable)

	emitter := NewKafkaEmitterWithProducer(producer, nil)

	// Emit must not panic or block; the failure is drained internally.
	emitter.Emit(NewEvent(ActionDelete, "sess-kafka"))

	if err := emitter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaEmitter_ClosedDropsEvents(t *testing.T) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer := mocks.NewAsyncProducer(t, config)

	emitter := NewKafkaEmitterWithProducer(producer, nil)
	if err := emitter.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// No expectation registered: emitting after close must not reach
	// the producer.
	emitter.Emit(NewEvent(ActionMask, "sess-kafka"))

	if err := emitter.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNewKafkaEmitter_RequiresBrokers(t *testing.T) {
	if _, err := NewKafkaEmitter(&KafkaEmitterConfig{Topic: "t"}); err == nil {
		t.Error("expected error for empty broker list")
	}
}
