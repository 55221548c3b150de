package mypublisher

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/MarcGrol/poststudio/lib/myevents"
	"github.com/MarcGrol/poststudio/lib/mytime"
)

type enveloper struct {
	nower mytime.Nower
}

func newEnveloper(nower mytime.Nower) enveloper {
	return enveloper{
		nower: nower,
	}
}

// wrap puts the event in an envelope whose uid is derived from its content, so publishing the
// same event twice overwrites a single outbox entry.
func (e enveloper) wrap(topic string, event myevents.Event) (myevents.EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return myevents.EventEnvelope{}, fmt.Errorf("error marshalling event %s: %w", event.GetEventTypeName(), err)
	}

	return myevents.EventEnvelope{
		UID:           contentUID(topic, event.GetEventTypeName(), event.GetAggregateName(), payload),
		CreatedAt:     e.nower.Now(),
		Topic:         topic,
		AggregateUID:  event.GetAggregateName(),
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  payload,
	}, nil
}

func contentUID(topic string, eventTypeName string, aggregateUID string, payload []byte) string {
	h := sha256.New()
	for _, part := range []string{topic, eventTypeName, aggregateUID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(payload)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
