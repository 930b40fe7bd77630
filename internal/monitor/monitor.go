//go:build linux
// +build linux

package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/musicwidget/internal/domain"
	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	mprisPath           = "/org/mpris/MediaPlayer2"
	mprisPlayerIface    = "org.mpris.MediaPlayer2.Player"
	nameOwnerChanged    = "org.freedesktop.DBus.NameOwnerChanged"
	propertiesChanged   = "org.freedesktop.DBus.Properties.PropertiesChanged"
	notificationBufSize = 16
)

// MprisMonitor is the session bus adapter: it feeds NameOwnerChanged and
// PropertiesChanged notifications to the tracker and answers player queries.
type MprisMonitor struct {
	logger        *zap.Logger
	prefix        string
	notifications chan domain.Notification
	mu            sync.RWMutex
	running       bool
	cancel        context.CancelFunc
	conn          DBusClient // Interface for testability
	newClient     func() (DBusClient, error)
	dropWarning   rate.Sometimes    // Rate limiting for "channel full" warnings
	wg            sync.WaitGroup    // Tracks the signal goroutine
	closeOnce     sync.Once         // Guards close(notifications)
	err           error             // Set when the bus connection is lost
	playerNames   map[string]string // Maps unique bus names (:1.45) to well-known names (org.mpris.MediaPlayer2.spotify)
}

// NewMprisMonitor creates a new MPRIS monitor instance
func NewMprisMonitor(logger *zap.Logger, cfg domain.Config) *MprisMonitor {
	return &MprisMonitor{
		logger:        logger,
		prefix:        cfg.GetBusPrefix(),
		notifications: make(chan domain.Notification, notificationBufSize),
		newClient: func() (DBusClient, error) {
			c, err := NewStdDBusClient()
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		dropWarning: rate.Sometimes{Interval: 5 * time.Second},
		playerNames: make(map[string]string),
	}
}

// Start connects to the session bus, installs the match rules and launches
// the signal goroutine. It does not block.
func (m *MprisMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	// ctx only bounds startup; the feed lives until Stop.
	monitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.mu.Unlock()

	conn, err := m.newClient()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		m.resetAfterFailedStart(cancel)
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	if err := m.addMatchRules(conn); err != nil {
		if cerr := conn.Close(); cerr != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(cerr))
		}
		m.resetAfterFailedStart(cancel)
		return err
	}

	// Protect connection assignment with mutex to avoid race with Stop()
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	signals := make(chan *dbus.Signal, notificationBufSize)
	conn.Signal(signals)

	m.wg.Add(1)
	go m.monitorSignals(monitorCtx, signals)

	m.logger.Info("MPRIS monitor started", zap.String("prefix", m.prefix))
	return nil
}

func (m *MprisMonitor) resetAfterFailedStart(cancel context.CancelFunc) {
	cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.cancel = nil
}

func (m *MprisMonitor) addMatchRules(conn DBusClient) error {
	// NameOwnerChanged is the feed itself, losing it is fatal
	if err := conn.AddMatchSignal(
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg0Namespace(strings.TrimSuffix(m.prefix, ".")),
	); err != nil {
		m.logger.Error("Failed to add NameOwnerChanged match signal", zap.Error(err))
		return fmt.Errorf("failed to add NameOwnerChanged match signal: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		// Non-fatal, metadata is still refreshed on ownership changes and commands
		m.logger.Warn("Failed to add PropertiesChanged match signal", zap.Error(err))
	}
	return nil
}

// Stop gracefully stops the monitor
func (m *MprisMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()

	if !m.running {
		m.mu.Unlock()
		return nil
	}

	if m.cancel != nil {
		m.cancel()
	}

	m.running = false
	m.mu.Unlock()

	// Wait for the producer goroutine before closing the channel
	m.logger.Debug("Waiting for monitoring goroutines to finish")
	m.wg.Wait()
	m.closeNotifications()

	var err error
	m.mu.Lock()
	if m.conn != nil {
		if err = m.conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		m.conn = nil
	}
	m.mu.Unlock()

	m.logger.Info("MPRIS monitor shutdown complete")
	return err
}

// Notifications returns the bus notification feed
func (m *MprisMonitor) Notifications() <-chan domain.Notification {
	return m.notifications
}

// Err returns domain.ErrFeedLost once the bus connection went away
func (m *MprisMonitor) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *MprisMonitor) closeNotifications() {
	m.closeOnce.Do(func() { close(m.notifications) })
}

// monitorSignals listens for D-Bus signals and turns them into notifications
func (m *MprisMonitor) monitorSignals(ctx context.Context, signals <-chan *dbus.Signal) {
	defer m.wg.Done() // Signal completion when goroutine exits

	m.logger.Info("Signal monitoring goroutine started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Signal monitoring goroutine stopped")
			return
		case sig, ok := <-signals:
			if !ok {
				// godbus closes signal channels when the connection dies
				m.logger.Error("D-Bus connection lost, notification feed closed")
				m.mu.Lock()
				m.err = domain.ErrFeedLost
				m.mu.Unlock()
				m.closeNotifications()
				return
			}
			if sig == nil {
				continue
			}
			switch sig.Name {
			case nameOwnerChanged:
				m.handleNameOwnerChanged(ctx, sig)
			case propertiesChanged:
				m.handlePropertiesChanged(sig)
			}
		}
	}
}

// handleNameOwnerChanged processes NameOwnerChanged signals to track player lifecycle
func (m *MprisMonitor) handleNameOwnerChanged(ctx context.Context, sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, m.prefix) {
		return // Not an MPRIS player
	}

	oldOwner, _ := sig.Body[1].(string)
	newOwner, _ := sig.Body[2].(string)

	m.mu.Lock()
	if oldOwner != "" {
		delete(m.playerNames, oldOwner)
	}
	if newOwner != "" {
		m.playerNames[newOwner] = name
	}
	m.mu.Unlock()

	m.logger.Debug("MPRIS ownership changed",
		zap.String("player", name),
		zap.String("oldUnique", oldOwner),
		zap.String("newUnique", newOwner))

	n := domain.Notification{
		Kind:     domain.NotifyOwnerChanged,
		Name:     name,
		OldOwner: oldOwner,
		NewOwner: newOwner,
	}

	// Ownership changes must never be dropped, the tracker state depends on every one
	select {
	case m.notifications <- n:
	case <-ctx.Done():
	}
}

// handlePropertiesChanged processes a PropertiesChanged signal
func (m *MprisMonitor) handlePropertiesChanged(sig *dbus.Signal) {
	// PropertiesChanged signal has 3 arguments:
	// 1. Interface name (string)
	// 2. Changed properties (map[string]Variant)
	// 3. Invalidated properties ([]string)
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != mprisPlayerIface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	_, hasMetadata := changedProps["Metadata"]
	_, hasStatus := changedProps["PlaybackStatus"]
	if !hasMetadata && !hasStatus && !invalidates(sig.Body) {
		return
	}

	playerName := m.getPlayerName(sig.Sender)

	m.logger.Debug("Received PropertiesChanged signal",
		zap.String("sender", sig.Sender),
		zap.String("player", playerName),
		zap.Int("properties", len(changedProps)))

	n := domain.Notification{
		Kind:     domain.NotifyPropertiesChanged,
		Name:     playerName,
		NewOwner: sig.Sender,
	}

	// Property changes are coalescible: the tracker re-queries the full state,
	// so dropping one while the buffer is full loses nothing.
	select {
	case m.notifications <- n:
	default:
		m.dropWarning.Do(func() {
			m.logger.Warn("Notification channel full, dropping PropertiesChanged",
				zap.String("player", playerName))
		})
	}
}

func invalidates(body []interface{}) bool {
	if len(body) < 3 {
		return false
	}
	invalidated, ok := body[2].([]string)
	if !ok {
		return false
	}
	for _, p := range invalidated {
		if p == "Metadata" || p == "PlaybackStatus" {
			return true
		}
	}
	return false
}

// getPlayerName returns the well-known player name for a unique bus name
// Falls back to the unique name if no mapping exists
func (m *MprisMonitor) getPlayerName(uniqueName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if wellKnown, ok := m.playerNames[uniqueName]; ok {
		return wellKnown
	}
	return uniqueName
}

func (m *MprisMonitor) client() DBusClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// QueryMetadata fetches Metadata and PlaybackStatus with a single GetAll call
func (m *MprisMonitor) QueryMetadata(ctx context.Context, player domain.PlayerIdentity) (domain.PlaybackMetadata, error) {
	conn := m.client()
	if conn == nil {
		return domain.PlaybackMetadata{}, domain.NewQueryError(player, domain.ErrUnreachable, errors.New("not connected to session bus"))
	}

	props, err := conn.GetAllProperties(ctx, string(player), mprisPath, mprisPlayerIface)
	if err != nil {
		return domain.PlaybackMetadata{}, classifyError(player, err)
	}

	var metadata map[string]dbus.Variant
	if v, ok := props["Metadata"]; ok {
		metadata, ok = v.Value().(map[string]dbus.Variant)
		if !ok {
			return domain.PlaybackMetadata{}, domain.NewQueryError(player, domain.ErrMalformedResponse,
				fmt.Errorf("metadata has type %T", v.Value()))
		}
	}

	statusVariant, ok := props["PlaybackStatus"]
	if !ok {
		return domain.PlaybackMetadata{}, domain.NewQueryError(player, domain.ErrMalformedResponse,
			errors.New("missing PlaybackStatus"))
	}
	status, ok := statusVariant.Value().(string)
	if !ok {
		return domain.PlaybackMetadata{}, domain.NewQueryError(player, domain.ErrMalformedResponse,
			fmt.Errorf("playback status has type %T", statusVariant.Value()))
	}

	meta := m.parseMetadata(metadata, status)

	m.logger.Debug("Queried player metadata",
		zap.String("player", string(player)),
		zap.String("title", meta.Title),
		zap.String("status", string(meta.Status)))

	return meta, nil
}

// SendCommand invokes a transport method on the player
func (m *MprisMonitor) SendCommand(ctx context.Context, player domain.PlayerIdentity, cmd domain.TransportCommand) error {
	conn := m.client()
	if conn == nil {
		return errors.New("not connected to session bus")
	}

	if err := conn.CallMethod(ctx, string(player), mprisPath, mprisPlayerIface+"."+string(cmd)); err != nil {
		return fmt.Errorf("%s on %s: %w", cmd, player, err)
	}

	m.logger.Debug("Transport command sent",
		zap.String("player", string(player)),
		zap.String("command", string(cmd)))
	return nil
}

// ListPlayers queries D-Bus for currently running MPRIS players
func (m *MprisMonitor) ListPlayers(ctx context.Context) ([]domain.PlayerInfo, error) {
	conn := m.client()
	if conn == nil {
		return nil, errors.New("not connected to session bus")
	}

	names, err := conn.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	var players []domain.PlayerInfo
	for _, name := range names {
		if !strings.HasPrefix(name, m.prefix) {
			continue
		}

		// Get the unique bus name for this well-known name
		uniqueName, err := conn.GetNameOwner(ctx, name)
		if err != nil {
			// The player may have exited between the two calls
			m.logger.Debug("Skipping player without owner",
				zap.String("name", name),
				zap.Error(err))
			continue
		}

		m.mu.Lock()
		m.playerNames[uniqueName] = name
		m.mu.Unlock()

		m.logger.Info("Detected MPRIS player",
			zap.String("name", name),
			zap.String("unique", uniqueName))

		players = append(players, domain.PlayerInfo{
			Name:       domain.PlayerIdentity(name),
			Connection: uniqueName,
		})
	}

	m.logger.Info("Player detection complete", zap.Int("count", len(players)))
	return players, nil
}

// parseMetadata converts MPRIS metadata to domain model
func (m *MprisMonitor) parseMetadata(metadata map[string]dbus.Variant, status string) domain.PlaybackMetadata {
	var meta domain.PlaybackMetadata

	switch types.PlaybackStatus(status) {
	case types.PlaybackStatusPlaying:
		meta.Status = domain.StatusPlaying
	case types.PlaybackStatusPaused:
		meta.Status = domain.StatusPaused
	case types.PlaybackStatusStopped:
		meta.Status = domain.StatusStopped
	default:
		m.logger.Debug("Unrecognized playback status", zap.String("status", status))
		meta.Status = domain.StatusUnknown
	}

	if metadata == nil {
		return meta
	}

	if titleVar, ok := metadata["xesam:title"]; ok {
		if title, ok := titleVar.Value().(string); ok {
			meta.Title = title
		}
	}

	// xesam:artist is a list, some players send a plain string
	if artistVar, ok := metadata["xesam:artist"]; ok {
		switch artists := artistVar.Value().(type) {
		case []string:
			meta.Artist = strings.Join(artists, ", ")
		case string:
			meta.Artist = artists
		default:
			m.logger.Debug("Unexpected artist type in metadata",
				zap.String("type", fmt.Sprintf("%T", artistVar.Value())))
		}
	}

	if albumVar, ok := metadata["xesam:album"]; ok {
		if album, ok := albumVar.Value().(string); ok {
			meta.Album = album
		}
	}

	if artVar, ok := metadata["mpris:artUrl"]; ok {
		if artURL, ok := artVar.Value().(string); ok {
			meta.ArtURL = artURL
		}
	}

	// mpris:length is in microseconds; players disagree on signedness
	if lengthVar, ok := metadata["mpris:length"]; ok {
		switch l := lengthVar.Value().(type) {
		case int64:
			if l > 0 {
				meta.Length = time.Duration(l) * time.Microsecond
			}
		case uint64:
			meta.Length = time.Duration(l) * time.Microsecond
		case int32:
			if l > 0 {
				meta.Length = time.Duration(l) * time.Microsecond
			}
		}
	}

	return meta
}

// classifyError maps a failed bus call to a QueryError kind
func classifyError(player domain.PlayerIdentity, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewQueryError(player, domain.ErrTimeout, err)
	}

	var name string
	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErr):
		name = dbusErr.Name
	case errors.As(err, &dbusErrPtr):
		name = dbusErrPtr.Name
	}

	switch name {
	case "org.freedesktop.DBus.Error.NoReply",
		"org.freedesktop.DBus.Error.Timeout",
		"org.freedesktop.DBus.Error.TimedOut":
		return domain.NewQueryError(player, domain.ErrTimeout, err)
	}
	return domain.NewQueryError(player, domain.ErrUnreachable, err)
}
