package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names what happened to an expense. It doubles as the routing key
// suffix on the topic exchange.
type EventType string

const (
	EventExpenseAdded   EventType = "expense.added"
	EventExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is a lightweight notification that an expense changed.
// Consumers read the record itself from the store if they need it.
type ExpenseEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Type      EventType `json:"type"`
	ExpenseID int64     `json:"expense_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event with a fresh id and the current time.
func NewExpenseEvent(typ EventType, expenseID int64) *ExpenseEvent {
	return &ExpenseEvent{
		EventID:   uuid.New(),
		Type:      typ,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON decodes an event and rejects unknown types.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var e ExpenseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventExpenseAdded, EventExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
