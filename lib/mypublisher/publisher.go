package mypublisher

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/poststudio/lib/mycontext"
	"github.com/MarcGrol/poststudio/lib/myevents"
	"github.com/MarcGrol/poststudio/lib/myhttp"
	"github.com/MarcGrol/poststudio/lib/mylog"
	"github.com/MarcGrol/poststudio/lib/mystore"
	"github.com/MarcGrol/poststudio/lib/mytime"
)

// DefaultRetention is how long published events remain readable in the outbox.
const DefaultRetention = 24 * time.Hour

type outboxPublisher struct {
	outbox    mystore.Store[myevents.EventEnvelope]
	enveloper enveloper
	retention time.Duration
	logger    mylog.Logger
}

// New returns a publisher that records every event in the outbox and logs it.
func New(outbox mystore.Store[myevents.EventEnvelope], nower mytime.Nower, retention time.Duration) *outboxPublisher {
	return &outboxPublisher{
		outbox:    outbox,
		enveloper: newEnveloper(nower),
		retention: retention,
		logger:    mylog.New("publisher"),
	}
}

func (p *outboxPublisher) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/api/events", p.listEventsPage()).Methods("GET")
}

func (p *outboxPublisher) Publish(c context.Context, topic string, event myevents.Event) error {
	envelope, err := p.enveloper.wrap(topic, event)
	if err != nil {
		return fmt.Errorf("error creating envelope: %w", err)
	}

	err = p.outbox.Put(c, envelope.UID, envelope, p.retention)
	if err != nil {
		return fmt.Errorf("error storing envelope: %w", err)
	}

	p.logger.Log(c, envelope.AggregateUID, mylog.SeverityInfo, "Published event %s", envelope.String())

	return nil
}

// Recent returns the retained events, newest first.
func (p *outboxPublisher) Recent(c context.Context) ([]myevents.EventEnvelope, error) {
	envelopes, err := p.outbox.List(c)
	if err != nil {
		return nil, fmt.Errorf("error fetching envelopes: %w", err)
	}

	sort.SliceStable(envelopes, func(i, j int) bool {
		return envelopes[i].CreatedAt.After(envelopes[j].CreatedAt)
	})

	return envelopes, nil
}

func (p *outboxPublisher) listEventsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(p.logger)

		envelopes, err := p.Recent(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, envelopes)
	}
}
