package domain

import (
	"context"
	"time"
)

// OwnerFeed is the bus notification feed consumed by the tracker.
// Implementations should handle D-Bus/MPRIS communication
type OwnerFeed interface {
	// Start connects to the bus and begins delivering notifications.
	// It returns once the feed is live.
	Start(ctx context.Context) error

	// Stop gracefully stops the feed and closes Notifications
	Stop(ctx context.Context) error

	// Notifications returns a read-only channel of bus notifications.
	// The channel is closed when the feed stops or loses the bus.
	Notifications() <-chan Notification

	// Err returns the reason the feed stopped, nil while running or after a clean Stop
	Err() error
}

// PlayerControl is the request/response interface against a specific player.
//
//go:generate mockgen -destination=mocks/player_control_mock.go -package=mocks github.com/genricoloni/musicwidget/internal/domain PlayerControl
type PlayerControl interface {
	// QueryMetadata fetches track metadata and playback status.
	// Failures are returned as *QueryError.
	QueryMetadata(ctx context.Context, player PlayerIdentity) (PlaybackMetadata, error)

	// SendCommand invokes a transport command on the player
	SendCommand(ctx context.Context, player PlayerIdentity, cmd TransportCommand) error

	// ListPlayers enumerates players currently present on the bus
	ListPlayers(ctx context.Context) ([]PlayerInfo, error)
}

// SessionController is what the UI layer needs from the tracker.
type SessionController interface {
	RefreshMetadata(ctx context.Context, owner PlayerIdentity) (PlaybackMetadata, error)
	SendTransportCommand(ctx context.Context, cmd TransportCommand) error
	Snapshot() SessionState
}

// EventSink receives events in publication order.
type EventSink interface {
	Publish(event Event)
}

// EventBus is an EventSink that UI components can subscribe to.
type EventBus interface {
	EventSink

	// Subscribe registers a handler for a single event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// SubscribeAll registers a handler for every event
	SubscribeAll(handler EventHandler) SubscriptionID

	// Unsubscribe removes a handler; unknown IDs are ignored
	Unsubscribe(id SubscriptionID)
}

// Fetcher defines the interface for retrieving album artwork
//
//go:generate mockgen -destination=mocks/art_mock.go -package=mocks github.com/genricoloni/musicwidget/internal/domain Fetcher,ImageProcessor
type Fetcher interface {
	// Fetch downloads or reads image data from a URL or local path
	// Returns the raw image bytes or an error
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ImageProcessor defines the interface for in-memory image processing
// This is OS-agnostic and works purely with byte streams
type ImageProcessor interface {
	// Process turns raw album art into the widget thumbnail
	Process(ctx context.Context, imageData []byte) ([]byte, error)
}

// View renders widget state. Rendering technology is up to the host.
type View interface {
	Render(state ViewState)
}

// Config defines the interface for application configuration
type Config interface {
	GetLogLevel() string
	GetBusPrefix() string
	GetPreferredPlayers() []string
	GetReconcileOnStart() bool
	GetQueryTimeout() time.Duration
	GetCommandTimeout() time.Duration
	GetRefreshDelay() time.Duration
	GetArtSize() int
	GetArtDebounce() time.Duration
}
