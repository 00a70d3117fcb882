// Package messaging holds event publisher implementations that do not talk
// to an external broker.
package messaging

import (
	"context"
	"sync"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
)

// RecordingPublisher keeps published events in memory. It backs local runs
// without AWS credentials and lets tests assert on emitted events.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

// Compile-time interface check
var _ ports.EventPublisher = (*RecordingPublisher)(nil)

// NewRecordingPublisher creates an empty recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records a single event.
func (p *RecordingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// PublishBatch records multiple events.
func (p *RecordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, batch...)
	return nil
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.DomainEvent(nil), p.events...)
}

// EventsOfType filters recorded events by type.
func (p *RecordingPublisher) EventsOfType(eventType string) []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []events.DomainEvent
	for _, e := range p.events {
		if e.GetEventType() == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}
