// Package types provides domain models shared across notifeed components.
//
// Zero-dependency design: types.go and errors.go use only the standard
// library so the expression and query packages can depend on them without
// pulling in storage drivers. ID utilities in ids.go import uuid but are
// isolated for selective inclusion.
//
// Separation from storage: database row mappings live in internal/store.
// This package contains hand-written types for concepts that don't belong
// to a particular backend (events, composite events, preferences).
package types

import "time"

// Format identifies the output channel a notification targets.
type Format string

const (
	// FormatAlert is the in-application notification tray.
	FormatAlert Format = "alert"

	// FormatEmail is the periodic email digest.
	FormatEmail Format = "email"
)

// Event is one atomic, timestamped activity record from the backing store.
// Events are produced exclusively by the event store and are read-only to
// the feed engine.
type Event struct {
	// ID is the unique event identifier (UUIDv7, see ids.go).
	ID EventID

	// Type tags the activity kind, e.g. "update" or "addComment".
	Type string

	// Document is an opaque reference to the subject page/entity.
	Document string

	// Date is the instant the event was recorded.
	Date time.Time

	// GroupID correlates events emitted by one user action/transaction.
	GroupID string

	// Wiki identifies the wiki the event originates from.
	Wiki string

	// User is the actor that produced the event.
	User string

	// Hidden marks events attached to hidden content.
	Hidden bool

	// Attributes is an open set of named values available to filters.
	Attributes map[string]any
}

// Attribute returns a named attribute value, or nil when absent.
func (e Event) Attribute(name string) any {
	if e.Attributes == nil {
		return nil
	}
	return e.Attributes[name]
}

// CompositeEvent is an ordered, non-empty group of raw events judged to
// represent one user-visible activity. It is mutated only while the
// similarity grouper scans its input; once returned to a caller it must be
// treated as immutable.
type CompositeEvent struct {
	// Events holds the raw events in first-appearance order.
	Events []Event

	// Type is the representative type (the first event's type).
	Type string

	// Document is the shared document reference.
	Document string

	// EarliestDate and LatestDate bound the dates of the grouped events.
	EarliestDate time.Time
	LatestDate   time.Time
}

// NewCompositeEvent starts a composite event from its first raw event.
func NewCompositeEvent(e Event) *CompositeEvent {
	return &CompositeEvent{
		Events:       []Event{e},
		Type:         e.Type,
		Document:     e.Document,
		EarliestDate: e.Date,
		LatestDate:   e.Date,
	}
}

// Add appends a raw event and updates the derived date bounds.
func (c *CompositeEvent) Add(e Event) {
	c.Events = append(c.Events, e)
	if e.Date.Before(c.EarliestDate) {
		c.EarliestDate = e.Date
	}
	if e.Date.After(c.LatestDate) {
		c.LatestDate = e.Date
	}
}

// Matches reports whether a raw event belongs to this composite event:
// same document, and at least one already-grouped event shares its type
// or its group identifier. Events without a group identifier never link
// by group.
func (c *CompositeEvent) Matches(e Event) bool {
	if e.Document != c.Document {
		return false
	}
	for _, got := range c.Events {
		if got.Type == e.Type {
			return true
		}
		if e.GroupID != "" && got.GroupID == e.GroupID {
			return true
		}
	}
	return false
}

// Preference is a user's subscription to one event type.
type Preference struct {
	// EventType is the subscribed event type.
	EventType string

	// StartDate excludes events dated before it.
	StartDate time.Time

	// Enabled preferences contribute to the query; disabled ones are
	// skipped entirely.
	Enabled bool

	// Format is the output channel this preference targets.
	Format Format
}

// FilterPreference is a user-stored setting for a registered filter, e.g.
// "mute my own events". Properties carry filter-specific values.
type FilterPreference struct {
	ID         string
	FilterName string
	Enabled    bool
	Properties map[string]string
}

// Property returns a named property, or "" when absent.
func (p FilterPreference) Property(name string) string {
	if p.Properties == nil {
		return ""
	}
	return p.Properties[name]
}

// Resource limits enforced by the feed engine.
const (
	// MaxCompositeEvents caps the composite-event count a single request
	// may ask for. Bounds total store round trips per request.
	MaxCompositeEvents = 1000

	// MaxCountedEvents caps the raw events scanned by a count request.
	MaxCountedEvents = 10000
)
