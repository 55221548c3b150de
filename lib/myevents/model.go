package myevents

import (
	"encoding/json"
	"time"
)

// Event is implemented by every domain event. The aggregate name groups the events of one
// authorization attempt or credential.
type Event interface {
	GetEventTypeName() string
	GetAggregateName() string
}

type EventEnvelope struct {
	UID           string          `json:"uid"`
	CreatedAt     time.Time       `json:"createdAt"`
	Topic         string          `json:"topic"`
	AggregateUID  string          `json:"aggregateUid"`
	EventTypeName string          `json:"eventTypeName"`
	EventPayload  json.RawMessage `json:"payload"`
}

func (e EventEnvelope) String() string {
	return e.Topic + "/" + e.EventTypeName + "/" + e.AggregateUID
}
