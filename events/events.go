package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeDatasetLoaded EventType = "dataset_loaded"
	EventTypeModelTrained  EventType = "model_trained"
	EventTypeRunCompleted  EventType = "run_completed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// DatasetLoadedEvent is emitted after a pipeline finished ingesting its input
type DatasetLoadedEvent struct {
	Pipeline string
	Source   string
	Rows     int
	Elapsed  time.Duration
}

func (e DatasetLoadedEvent) Type() EventType {
	return EventTypeDatasetLoaded
}

// ModelTrainedEvent is emitted after one model finished fitting. For the
// products pipeline there is one event per product label; for the movies
// pipeline there is a single event.
type ModelTrainedEvent struct {
	Pipeline  string
	Label     string
	Positives int
	Skipped   bool
	Elapsed   time.Duration
}

func (e ModelTrainedEvent) Type() EventType {
	return EventTypeModelTrained
}

// RunCompletedEvent is emitted once a pipeline run finished end to end
type RunCompletedEvent struct {
	Pipeline string
	RunID    uuid.UUID
	Metrics  map[string]interface{}
	Elapsed  time.Duration
}

func (e RunCompletedEvent) Type() EventType {
	return EventTypeRunCompleted
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// synchronously so that progress output stays ordered with pipeline stages.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}
