// Package tracker keeps the widget's view of the single bound media player.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/musicwidget/internal/domain"
	"go.uber.org/zap"
)

// Tracker is the player session state machine.
//
// It binds to at most one player at a time. Ownership notifications move it
// between Idle and Active; metadata refreshes update the bound session.
// All SessionState mutation happens under mu, and events are published to the
// sink while mu is held so subscribers observe them in transition order.
// Subscribers must not call back into the Tracker from their handler.
type Tracker struct {
	logger  *zap.Logger
	feed    domain.OwnerFeed
	control domain.PlayerControl
	sink    domain.EventSink

	prefix         string
	preferred      []string
	queryTimeout   time.Duration
	commandTimeout time.Duration

	mu    sync.Mutex
	state domain.SessionState
	// epoch changes on every bind/unbind, so results captured under an
	// older binding can be recognized
	epoch      uint64
	nextSeq    uint64
	appliedSeq uint64
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates an Idle tracker.
func NewTracker(
	logger *zap.Logger,
	cfg domain.Config,
	feed domain.OwnerFeed,
	control domain.PlayerControl,
	sink domain.EventSink,
) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		logger:         logger,
		feed:           feed,
		control:        control,
		sink:           sink,
		prefix:         cfg.GetBusPrefix(),
		preferred:      cfg.GetPreferredPlayers(),
		queryTimeout:   cfg.GetQueryTimeout(),
		commandTimeout: cfg.GetCommandTimeout(),
		state:          domain.SessionState{Metadata: domain.UnknownMetadata()},
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Run consumes the notification feed until ctx is done or the feed closes.
// A closed feed means the tracker can no longer follow ownership, so Run
// returns an error wrapping domain.ErrFeedLost. Cancellation returns nil.
func (t *Tracker) Run(ctx context.Context) error {
	notifications := t.feed.Notifications()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return t.feedLost()
			}
			t.handle(n)
		}
	}
}

func (t *Tracker) feedLost() error {
	ferr := t.feed.Err()
	t.logger.Error("Bus notification feed closed", zap.Error(ferr))
	if ferr == nil || errors.Is(ferr, domain.ErrFeedLost) {
		return domain.ErrFeedLost
	}
	return fmt.Errorf("%w: %v", domain.ErrFeedLost, ferr)
}

func (t *Tracker) handle(n domain.Notification) {
	switch n.Kind {
	case domain.NotifyOwnerChanged:
		t.OnOwnerChanged(n)
	case domain.NotifyPropertiesChanged:
		t.onPropertiesChanged(n)
	default:
		t.logger.Debug("Ignoring notification", zap.Stringer("kind", n.Kind))
	}
}

// OnOwnerChanged applies one NameOwnerChanged notification and returns the
// event it produced. Notifications for names outside the player namespace,
// repeats of an already applied transition and players other than the
// bound one produce no event.
func (t *Tracker) OnOwnerChanged(n domain.Notification) (domain.Event, bool) {
	if !t.inNamespace(n.Name) {
		return nil, false
	}
	name := domain.PlayerIdentity(n.Name)

	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case n.NewOwner != "":
		if t.state.Owner != "" {
			if t.state.Owner == name && t.state.Connection == n.NewOwner {
				return nil, false
			}
			if t.state.Owner != name {
				t.logger.Debug("Ignoring player while another is bound",
					zap.String("player", n.Name),
					zap.String("bound", string(t.state.Owner)))
				return nil, false
			}
		}
		t.bindLocked(name, n.NewOwner)
		event := domain.NewPlayerAppearedEvent(name, n.NewOwner)
		t.sink.Publish(event)
		t.refreshAsyncLocked(name)
		return event, true

	case n.OldOwner != "" && t.state.Owner == name:
		t.logger.Info("Player disappeared", zap.String("player", n.Name))
		t.bindLocked("", "")
		event := domain.NewPlayerDisappearedEvent(name)
		t.sink.Publish(event)
		return event, true
	}

	return nil, false
}

// bindLocked replaces the binding and resets metadata. Passing an empty
// owner unbinds.
func (t *Tracker) bindLocked(owner domain.PlayerIdentity, connection string) {
	if owner != "" {
		t.logger.Info("Player bound",
			zap.String("player", string(owner)),
			zap.String("connection", connection))
	}
	t.epoch++
	t.state = domain.SessionState{
		Owner:      owner,
		Connection: connection,
		Metadata:   domain.UnknownMetadata(),
	}
}

func (t *Tracker) onPropertiesChanged(n domain.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Owner == "" {
		return
	}
	fromName := n.Name != "" && domain.PlayerIdentity(n.Name) == t.state.Owner
	fromConn := n.NewOwner != "" && n.NewOwner == t.state.Connection
	if !fromName && !fromConn {
		return
	}
	t.refreshAsyncLocked(t.state.Owner)
}

// refreshAsyncLocked starts a background refresh of owner. A failure is
// published as QueryFailed only while the binding it was started under is
// still current.
func (t *Tracker) refreshAsyncLocked(owner domain.PlayerIdentity) {
	if t.closed {
		return
	}
	epoch := t.epoch
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		_, err := t.RefreshMetadata(t.ctx, owner)
		if err == nil || errors.Is(err, domain.ErrStaleResult) || t.ctx.Err() != nil {
			return
		}

		t.logger.Warn("Metadata refresh failed",
			zap.String("player", string(owner)),
			zap.Error(err))

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.epoch == epoch {
			t.sink.Publish(domain.NewQueryFailedEvent(owner, err))
		}
	}()
}

// RefreshMetadata queries owner and applies the result to the session.
//
// The query itself runs without holding the lock. Its result is applied
// only if owner is still bound under the same binding and no later refresh
// has been applied in the meantime; otherwise domain.ErrStaleResult is
// returned and the session is left alone. Query failures are returned as
// *domain.QueryError and leave the session unchanged.
func (t *Tracker) RefreshMetadata(ctx context.Context, owner domain.PlayerIdentity) (domain.PlaybackMetadata, error) {
	t.mu.Lock()
	if owner == "" || t.state.Owner != owner {
		t.mu.Unlock()
		return domain.PlaybackMetadata{}, fmt.Errorf("refresh %s: %w", owner, domain.ErrStaleResult)
	}
	epoch := t.epoch
	t.nextSeq++
	seq := t.nextSeq
	t.mu.Unlock()

	qctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
	defer cancel()

	meta, err := t.control.QueryMetadata(qctx, owner)
	if err != nil {
		return domain.PlaybackMetadata{}, asQueryError(qctx, owner, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.epoch != epoch || t.state.Owner != owner || seq < t.appliedSeq {
		t.logger.Debug("Discarding stale metadata",
			zap.String("player", string(owner)),
			zap.Uint64("seq", seq))
		return domain.PlaybackMetadata{}, fmt.Errorf("refresh %s: %w", owner, domain.ErrStaleResult)
	}

	t.appliedSeq = seq
	t.state.Metadata = meta
	t.sink.Publish(domain.NewMetadataUpdatedEvent(owner, meta))
	return meta, nil
}

func asQueryError(ctx context.Context, owner domain.PlayerIdentity, err error) error {
	var qerr *domain.QueryError
	if errors.As(err, &qerr) {
		return qerr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewQueryError(owner, domain.ErrTimeout, err)
	}
	return domain.NewQueryError(owner, domain.ErrUnreachable, err)
}

// SendTransportCommand forwards cmd to the bound player. It does not refresh
// metadata; callers follow up with RefreshMetadata.
func (t *Tracker) SendTransportCommand(ctx context.Context, cmd domain.TransportCommand) error {
	if !cmd.Valid() {
		return domain.NewCommandError(cmd, domain.ErrInvalidCommand, nil)
	}

	t.mu.Lock()
	owner := t.state.Owner
	t.mu.Unlock()

	if owner == "" {
		return domain.NewCommandError(cmd, domain.ErrNoActivePlayer, nil)
	}

	cctx, cancel := context.WithTimeout(ctx, t.commandTimeout)
	defer cancel()

	if err := t.control.SendCommand(cctx, owner, cmd); err != nil {
		return domain.NewCommandError(cmd, domain.ErrTransportFailure, err)
	}

	t.logger.Debug("Transport command sent",
		zap.String("player", string(owner)),
		zap.String("command", string(cmd)))
	return nil
}

// Reconcile binds to a player that was already on the bus before the feed
// started. It does nothing when a player is already bound. Players listed in
// the preferred order win; otherwise the first name in sorted order is used.
func (t *Tracker) Reconcile(ctx context.Context) error {
	if t.Phase() == domain.PhaseActive {
		return nil
	}

	players, err := t.control.ListPlayers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}

	candidate, ok := t.pick(players)
	if !ok {
		t.logger.Info("No player present at startup")
		return nil
	}

	t.logger.Info("Reconciling with running player", zap.String("player", string(candidate.Name)))
	t.OnOwnerChanged(domain.Notification{
		Kind:     domain.NotifyOwnerChanged,
		Name:     string(candidate.Name),
		NewOwner: candidate.Connection,
	})
	return nil
}

func (t *Tracker) pick(players []domain.PlayerInfo) (domain.PlayerInfo, bool) {
	var present []domain.PlayerInfo
	for _, p := range players {
		if p.Connection != "" && t.inNamespace(string(p.Name)) {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return domain.PlayerInfo{}, false
	}

	sort.Slice(present, func(i, j int) bool { return present[i].Name < present[j].Name })

	for _, want := range t.preferred {
		for _, p := range present {
			// instances register as <name>.instance<pid>
			if string(p.Name) == want || strings.HasPrefix(string(p.Name), want+".") {
				return p, true
			}
		}
	}
	return present[0], true
}

func (t *Tracker) inNamespace(name string) bool {
	return len(name) > len(t.prefix) && strings.HasPrefix(name, t.prefix)
}

// Snapshot returns a copy of the current session.
func (t *Tracker) Snapshot() domain.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Phase reports whether a player is bound.
func (t *Tracker) Phase() domain.Phase {
	return t.Snapshot().Phase()
}

// Close cancels in-flight background refreshes and waits for them.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}

var _ domain.SessionController = (*Tracker)(nil)
