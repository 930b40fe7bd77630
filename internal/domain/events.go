package domain

import "time"

// Event is the base interface for everything the tracker publishes to the UI layer.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

const (
	EventPlayerAppeared    EventType = "player.appeared"
	EventPlayerDisappeared EventType = "player.disappeared"
	EventMetadataUpdated   EventType = "metadata.updated"
	EventQueryFailed       EventType = "query.failed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

type baseEvent struct {
	timestamp time.Time
}

func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PlayerAppearedEvent is published when the tracker binds to a player.
type PlayerAppearedEvent struct {
	baseEvent
	Player     PlayerIdentity
	Connection string
}

func NewPlayerAppearedEvent(player PlayerIdentity, connection string) PlayerAppearedEvent {
	return PlayerAppearedEvent{baseEvent: newBaseEvent(), Player: player, Connection: connection}
}

func (e PlayerAppearedEvent) Type() EventType { return EventPlayerAppeared }

// PlayerDisappearedEvent is published when the bound player leaves the bus.
type PlayerDisappearedEvent struct {
	baseEvent
	Player PlayerIdentity
}

func NewPlayerDisappearedEvent(player PlayerIdentity) PlayerDisappearedEvent {
	return PlayerDisappearedEvent{baseEvent: newBaseEvent(), Player: player}
}

func (e PlayerDisappearedEvent) Type() EventType { return EventPlayerDisappeared }

// MetadataUpdatedEvent carries the full replacement metadata of the bound player,
// so the UI never needs to query the tracker back.
type MetadataUpdatedEvent struct {
	baseEvent
	Player   PlayerIdentity
	Metadata PlaybackMetadata
}

func NewMetadataUpdatedEvent(player PlayerIdentity, meta PlaybackMetadata) MetadataUpdatedEvent {
	return MetadataUpdatedEvent{baseEvent: newBaseEvent(), Player: player, Metadata: meta}
}

func (e MetadataUpdatedEvent) Type() EventType { return EventMetadataUpdated }

// QueryFailedEvent is published when a background refresh fails.
// It is a transient status, the session is left unchanged.
type QueryFailedEvent struct {
	baseEvent
	Player PlayerIdentity
	Err    error
}

func NewQueryFailedEvent(player PlayerIdentity, err error) QueryFailedEvent {
	return QueryFailedEvent{baseEvent: newBaseEvent(), Player: player, Err: err}
}

func (e QueryFailedEvent) Type() EventType { return EventQueryFailed }
