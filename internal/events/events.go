package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated = "booking_created"
	EventBookingArrived = "booking_arrived"
	EventBookingNoShow  = "booking_no_show"
	EventBookingDeleted = "booking_deleted"
	EventBookingEdited  = "booking_edited"
	EventShiftArchived  = "shift_archived"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	ChatID      int64  `json:"chat_id"`
	BookingID   int64  `json:"booking_id"`
	Time        string `json:"time"`
	Descriptor  string `json:"descriptor"`
	DurationSec int    `json:"duration_sec"`
	Status      string `json:"status"`
	AuthorID    int64  `json:"author_id"`
}

// ShiftEventPayload describes an archived shift for event consumers.
type ShiftEventPayload struct {
	ChatID       int64  `json:"chat_id"`
	BusinessDate string `json:"business_date"`
	Title        string `json:"title"`
	Bookings     int    `json:"bookings"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
