package domain

import "time"

// PlayerIdentity is the well-known bus name of a media player service
// (e.g. "org.mpris.MediaPlayer2.vlc").
type PlayerIdentity string

// PlaybackStatus represents the current state of the media player
type PlaybackStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlaybackStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlaybackStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlaybackStatus = "Stopped"
	// StatusUnknown is used when no player is bound or the player reported
	// something we do not recognize
	StatusUnknown PlaybackStatus = "Unknown"
)

// PlaybackMetadata contains information about the currently playing media.
// Empty strings mean the player did not report the field.
type PlaybackMetadata struct {
	// Title of the currently playing track
	Title string
	// Artist names, joined with ", " when the player reports several
	Artist string
	// Album name
	Album string
	// ArtURL is the URI of the album artwork (http(s):// or file://)
	ArtURL string
	// Length of the track, zero when unknown
	Length time.Duration
	// Status is the current playback status
	Status PlaybackStatus
}

// UnknownMetadata returns the empty form of PlaybackMetadata.
func UnknownMetadata() PlaybackMetadata {
	return PlaybackMetadata{Status: StatusUnknown}
}

// IsUnknown reports whether m carries no information at all.
func (m PlaybackMetadata) IsUnknown() bool {
	return m == UnknownMetadata()
}

// SessionState is the tracker's view of the bound player.
// When Owner is empty, Connection is empty and Metadata is UnknownMetadata().
type SessionState struct {
	// Owner is the bound player, empty when idle
	Owner PlayerIdentity
	// Connection is the unique bus name (":1.42") currently owning Owner
	Connection string
	// Metadata is the last applied metadata for Owner
	Metadata PlaybackMetadata
}

// Phase is the tracker state machine position.
type Phase string

const (
	PhaseIdle   Phase = "Idle"
	PhaseActive Phase = "Active"
)

// Phase derives the state machine position from the session.
func (s SessionState) Phase() Phase {
	if s.Owner == "" {
		return PhaseIdle
	}
	return PhaseActive
}

// NotificationKind distinguishes bus feed items.
type NotificationKind int

const (
	// NotifyOwnerChanged mirrors org.freedesktop.DBus.NameOwnerChanged
	NotifyOwnerChanged NotificationKind = iota + 1
	// NotifyPropertiesChanged reports that a player's Player interface
	// properties changed; Name is the well-known name when known, and
	// NewOwner carries the sending connection
	NotifyPropertiesChanged
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyOwnerChanged:
		return "OwnerChanged"
	case NotifyPropertiesChanged:
		return "PropertiesChanged"
	}
	return "Unknown"
}

// Notification is one item of the bus notification feed.
type Notification struct {
	Kind NotificationKind
	// Name is the full service name reported by the bus
	Name string
	// OldOwner and NewOwner are unique connection names; empty means no owner
	OldOwner string
	NewOwner string
}

// PlayerInfo describes a player found on the bus at enumeration time.
type PlayerInfo struct {
	Name       PlayerIdentity
	Connection string
}

// TransportCommand is a playback control instruction. Values are the
// method names of org.mpris.MediaPlayer2.Player.
type TransportCommand string

const (
	CommandPlay      TransportCommand = "Play"
	CommandPause     TransportCommand = "Pause"
	CommandPlayPause TransportCommand = "PlayPause"
	CommandNext      TransportCommand = "Next"
	CommandPrevious  TransportCommand = "Previous"
)

// Valid reports whether c is one of the known transport commands.
func (c TransportCommand) Valid() bool {
	switch c {
	case CommandPlay, CommandPause, CommandPlayPause, CommandNext, CommandPrevious:
		return true
	}
	return false
}

// ViewState is the render-agnostic content of the widget.
type ViewState struct {
	// Active is true while a player is bound
	Active bool
	// Player is the bound player name, empty when idle
	Player PlayerIdentity
	// TrackLabel and ArtistLabel are the two text lines of the widget
	TrackLabel  string
	ArtistLabel string
	// ArtPNG is the encoded album art thumbnail, nil for the placeholder icon
	ArtPNG []byte
	// PlayPauseIcon is the freedesktop icon name shown on the play/pause button
	PlayPauseIcon string
	// StatusLine holds a transient error or info message
	StatusLine string
}
