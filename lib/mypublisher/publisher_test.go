package mypublisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/poststudio/lib/myevents"
	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/lib/mytime"
)

type somethingHappened struct {
	UID  string
	What string
}

func (e somethingHappened) GetEventTypeName() string { return "something.happened" }
func (e somethingHappened) GetAggregateName() string { return e.UID }

func TestPublish(t *testing.T) {
	c := context.TODO()
	nower := mytime.FixedNower{Instant: mytime.ExampleTime}
	outbox, _, err := mystore.NewInMemoryStore[myevents.EventEnvelope](c, nower)
	require.NoError(t, err)

	publisher := New(outbox, nower, time.Hour)

	t.Run("publish twice is idempotent", func(t *testing.T) {
		event := somethingHappened{UID: "abc", What: "login"}
		require.NoError(t, publisher.Publish(c, "oauth", event))
		require.NoError(t, publisher.Publish(c, "oauth", event))

		envelopes, err := publisher.Recent(c)
		require.NoError(t, err)
		require.Len(t, envelopes, 1)
		assert.Equal(t, "oauth", envelopes[0].Topic)
		assert.Equal(t, "abc", envelopes[0].AggregateUID)
		assert.Equal(t, "something.happened", envelopes[0].EventTypeName)
		assert.JSONEq(t, `{"UID":"abc","What":"login"}`, string(envelopes[0].EventPayload))
		assert.Equal(t, mytime.ExampleTime, envelopes[0].CreatedAt)
	})

	t.Run("different payload is a different event", func(t *testing.T) {
		require.NoError(t, publisher.Publish(c, "oauth", somethingHappened{UID: "abc", What: "logout"}))

		envelopes, err := publisher.Recent(c)
		require.NoError(t, err)
		assert.Len(t, envelopes, 2)
	})

	t.Run("list over http", func(t *testing.T) {
		router := mux.NewRouter()
		publisher.RegisterEndpoints(c, router)

		request, err := http.NewRequest(http.MethodGet, "/api/events", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		assert.Equal(t, http.StatusOK, response.Code)
		envelopes := []myevents.EventEnvelope{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &envelopes))
		assert.Len(t, envelopes, 2)
	})
}

type steppingNower struct {
	next time.Time
}

func (n *steppingNower) Now() time.Time {
	now := n.next
	n.next = n.next.Add(time.Minute)
	return now
}

func TestRecentNewestFirst(t *testing.T) {
	c := context.TODO()
	nower := &steppingNower{next: mytime.ExampleTime}
	outbox, _, err := mystore.NewInMemoryStore[myevents.EventEnvelope](c, mytime.FixedNower{Instant: mytime.ExampleTime})
	require.NoError(t, err)

	publisher := New(outbox, nower, time.Hour)
	require.NoError(t, publisher.Publish(c, "oauth", somethingHappened{UID: "first"}))
	require.NoError(t, publisher.Publish(c, "oauth", somethingHappened{UID: "second"}))

	envelopes, err := publisher.Recent(c)
	require.NoError(t, err)
	require.Len(t, envelopes, 2)
	assert.Equal(t, "second", envelopes[0].AggregateUID)
	assert.Equal(t, "first", envelopes[1].AggregateUID)
}
