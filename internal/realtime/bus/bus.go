package bus

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Event is one message on the catalog event channel.
type Event struct {
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent stamps an event and marshals data into it.
func NewEvent(eventType string, data any) (Event, error) {
	ev := Event{Type: eventType, At: time.Now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, err
		}
		ev.Data = raw
	}
	return ev, nil
}

const (
	EventCatalogReloaded  = "catalog.reloaded"
	EventCatalogReindexed = "catalog.reindexed"
	EventIntegrityChanged = "catalog.integrity"
	EventJobProgress      = "job.progress"
	EventJobFailed        = "job.failed"
	EventJobDone          = "job.done"
)

// Topic groups event types by their prefix: "catalog.reloaded" is on topic "catalog".
func Topic(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i > 0 {
		return eventType[:i]
	}
	return eventType
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	StartForwarder(ctx context.Context, onMsg func(ev Event)) error
	Close() error
}

type nopBus struct{}

// Nop returns a bus that drops every event.
func Nop() Bus { return nopBus{} }

func (nopBus) Publish(context.Context, Event) error                 { return nil }
func (nopBus) StartForwarder(context.Context, func(ev Event)) error { return nil }
func (nopBus) Close() error                                         { return nil }
