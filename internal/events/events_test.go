package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func sampleEvent() Event {
	return Event{
		Type:       TypeBookingCreated,
		OccurredAt: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		RoomID:     "room-1",
		CompanyID:  "company-1",
		BookingID:  "booking-1",
		UserID:     "user-1",
		Title:      "Standup",
		Start:      "2024-03-04 10:00",
		End:        "2024-03-04 10:15",
		Recurrence: &Recurrence{Type: "weekly", Days: "0,2,4", Until: "2024-06-30"},
	}
}

func TestEvent_JSON(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(sampleEvent())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	text := string(body)
	for _, fragment := range []string{`"type":"booking.created"`, `"room_id":"room-1"`, `"days":"0,2,4"`, `"start":"2024-03-04 10:00"`} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("payload %s missing %s", text, fragment)
		}
	}
	if strings.Contains(text, "cancelled_bookings") {
		t.Fatalf("booking events should omit cancelled_bookings: %s", text)
	}

	roomEvent, _ := json.Marshal(Event{Type: TypeRoomDeleted, RoomID: "r", CompanyID: "c", CancelledBookings: 3})
	if strings.Contains(string(roomEvent), "booking_id") || !strings.Contains(string(roomEvent), `"cancelled_bookings":3`) {
		t.Fatalf("unexpected room event payload: %s", roomEvent)
	}
}

func TestLogPublisher(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	publisher := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))
	if err := publisher.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"type":"booking.created"`) || !strings.Contains(buf.String(), `"key":"room-1"`) {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestKafkaMessage(t *testing.T) {
	t.Parallel()

	message, err := kafkaMessage(sampleEvent())
	if err != nil {
		t.Fatalf("kafkaMessage failed: %v", err)
	}
	if string(message.Key) != "room-1" {
		t.Fatalf("expected room id key, got %q", message.Key)
	}
	if len(message.Headers) != 1 || string(message.Headers[0].Value) != TypeBookingCreated {
		t.Fatalf("unexpected headers: %#v", message.Headers)
	}

	var decoded Event
	if err := json.Unmarshal(message.Value, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.BookingID != "booking-1" || decoded.Recurrence == nil || decoded.Recurrence.Until != "2024-06-30" {
		t.Fatalf("unexpected decoded event: %#v", decoded)
	}
}

func TestNewKafkaPublisher_RequiresSettings(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaPublisher(KafkaConfig{Topic: "bookings"}, nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil); err == nil {
		t.Fatalf("expected error without topic")
	}

	publisher, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "bookings"}, nil)
	if err != nil {
		t.Fatalf("NewKafkaPublisher failed: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestAMQPPublishing(t *testing.T) {
	t.Parallel()

	publishing, err := amqpPublishing(sampleEvent())
	if err != nil {
		t.Fatalf("amqpPublishing failed: %v", err)
	}
	if publishing.DeliveryMode != amqp.Persistent || publishing.ContentType != "application/json" || publishing.Type != TypeBookingCreated {
		t.Fatalf("unexpected publishing: %#v", publishing)
	}

	if _, err := NewAMQPPublisher("", "q"); err == nil {
		t.Fatalf("expected error without url")
	}
}
