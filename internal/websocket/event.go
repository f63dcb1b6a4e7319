package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeCreated     EventType = "created"
	EventTypeUpdated     EventType = "updated"
	EventTypeApplied     EventType = "applied"
	EventTypeGenerated   EventType = "generated"
	EventTypeSwept       EventType = "swept"
	EventTypeDeactivated EventType = "deactivated"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeSale        EntityType = "sale"
	EntityTypePayment     EntityType = "payment"
	EntityTypeInstallment EntityType = "installment"
	EntityTypeRecord      EntityType = "record"
	EntityTypeTemplate    EntityType = "template"
)

// Event is a message pushed to operator dashboards.
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // Combined type e.g. "payment.applied"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SaleCreated creates a sale.created event
func SaleCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeSale, payload)
}

// PaymentApplied creates a payment.applied event
func PaymentApplied(payload interface{}) Event {
	return NewEvent(EventTypeApplied, EntityTypePayment, payload)
}

// InstallmentsSwept creates an installment.swept event
func InstallmentsSwept(payload interface{}) Event {
	return NewEvent(EventTypeSwept, EntityTypeInstallment, payload)
}

// RecordGenerated creates a record.generated event
func RecordGenerated(payload interface{}) Event {
	return NewEvent(EventTypeGenerated, EntityTypeRecord, payload)
}

// TemplateUpdated creates a template.updated event
func TemplateUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeTemplate, payload)
}

// TemplateDeactivated creates a template.deactivated event
func TemplateDeactivated(payload interface{}) Event {
	return NewEvent(EventTypeDeactivated, EntityTypeTemplate, payload)
}
