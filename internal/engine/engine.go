package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/genricoloni/musicwidget/internal/domain"
	"go.uber.org/zap"
)

const (
	labelNoTrack       = "No Track Playing"
	labelUnknownTitle  = "Unknown Title"
	labelUnknownArtist = "Unknown Artist"

	iconPlay  = "media-playback-start"
	iconPause = "media-playback-pause"
)

// Engine is the widget presenter.
// It listens to tracker events, keeps the view state, loads album art and
// forwards button presses to the tracker.
type Engine struct {
	logger    *zap.Logger
	session   domain.SessionController
	bus       domain.EventBus
	fetcher   domain.Fetcher
	processor domain.ImageProcessor
	view      domain.View

	artDebounce  time.Duration
	refreshDelay time.Duration

	events     chan domain.Event
	status     chan string
	artResults chan artResult

	// owned by the Run loop
	state   domain.ViewState
	artURL  string
	artStop context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// closed when Run returns
	done chan struct{}
}

type artResult struct {
	url string
	png []byte
	err error
}

// NewEngine creates the presenter
func NewEngine(
	logger *zap.Logger,
	cfg domain.Config,
	session domain.SessionController,
	bus domain.EventBus,
	fetch domain.Fetcher,
	proc domain.ImageProcessor,
	view domain.View,
) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		logger:       logger,
		session:      session,
		bus:          bus,
		fetcher:      fetch,
		processor:    proc,
		view:         view,
		artDebounce:  cfg.GetArtDebounce(),
		refreshDelay: cfg.GetRefreshDelay(),
		events:       make(chan domain.Event, 32),
		status:       make(chan string, 4),
		artResults:   make(chan artResult, 1),
		state:        idleState(),
		artStop:      func() {},
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Run renders the current session and then follows tracker events until
// ctx is done or Stop is called. It must be called at most once.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Engine starting...")
	defer close(e.done)

	id := e.bus.SubscribeAll(e.enqueue)
	defer e.bus.Unsubscribe(id)

	e.seed(e.session.Snapshot())
	return e.runLoop(ctx)
}

// enqueue runs on the publisher's goroutine, which may hold the tracker
// lock; it only hands the event over and never outlives the loop.
func (e *Engine) enqueue(event domain.Event) {
	select {
	case e.events <- event:
	case <-e.done:
	case <-e.ctx.Done():
	}
}

// runLoop is the main event processing loop.
// Art loading is debounced so skipping through tracks does not fetch every cover.
func (e *Engine) runLoop(ctx context.Context) error {
	timer := time.NewTimer(e.artDebounce)
	timer.Stop()
	defer timer.Stop()
	defer func() { e.artStop() }()

	var pendingArt string

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return nil

		case <-e.ctx.Done():
			e.logger.Info("Engine loop stopped")
			return nil

		case event := <-e.events:
			url, changed := e.apply(event)
			if changed {
				e.artStop()
				e.artStop = func() {}
				pendingArt = url
				if url == "" {
					timer.Stop()
				} else {
					timer.Reset(e.artDebounce)
				}
			}
			e.render()

		case msg := <-e.status:
			e.state.StatusLine = msg
			e.render()

		case <-timer.C:
			if pendingArt != "" {
				e.startArt(pendingArt)
				pendingArt = ""
			}

		case res := <-e.artResults:
			if res.url != e.artURL {
				continue
			}
			if res.err != nil {
				e.logger.Warn("Failed to load album art", zap.String("url", res.url), zap.Error(res.err))
				continue
			}
			e.state.ArtPNG = res.png
			e.render()
		}
	}
}

func (e *Engine) seed(s domain.SessionState) {
	if s.Owner == "" {
		e.render()
		return
	}
	e.apply(domain.NewPlayerAppearedEvent(s.Owner, s.Connection))
	if !s.Metadata.IsUnknown() {
		e.apply(domain.NewMetadataUpdatedEvent(s.Owner, s.Metadata))
		if s.Metadata.ArtURL != "" {
			e.startArt(s.Metadata.ArtURL)
		}
	}
	e.render()
}

// apply updates the view state for event. It reports the art URL the view
// should now show when that differs from the current one.
func (e *Engine) apply(event domain.Event) (string, bool) {
	switch ev := event.(type) {
	case domain.PlayerAppearedEvent:
		e.state = activeState(ev.Player, domain.UnknownMetadata())
		return e.setArtURL("")

	case domain.PlayerDisappearedEvent:
		if e.state.Player != ev.Player {
			return "", false
		}
		e.state = idleState()
		return e.setArtURL("")

	case domain.MetadataUpdatedEvent:
		art := e.state.ArtPNG
		e.state = activeState(ev.Player, ev.Metadata)
		e.state.ArtPNG = art
		return e.setArtURL(ev.Metadata.ArtURL)

	case domain.QueryFailedEvent:
		e.state.StatusLine = "Player not responding"
		if errors.Is(ev.Err, domain.ErrMalformedResponse) {
			e.state.StatusLine = "Player sent invalid data"
		}
	}
	return "", false
}

func (e *Engine) setArtURL(url string) (string, bool) {
	if url == e.artURL {
		return "", false
	}
	e.artURL = url
	e.state.ArtPNG = nil
	return url, true
}

func (e *Engine) startArt(url string) {
	e.artStop()
	ctx, cancel := context.WithCancel(e.ctx)
	e.artStop = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		png, err := e.loadArt(ctx, url)
		select {
		case e.artResults <- artResult{url: url, png: png, err: err}:
		case <-ctx.Done():
		}
	}()
}

// loadArt fetches and thumbnails one cover
func (e *Engine) loadArt(ctx context.Context, url string) ([]byte, error) {
	data, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch artwork: %w", err)
	}
	png, err := e.processor.Process(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("process artwork: %w", err)
	}
	return png, nil
}

func (e *Engine) render() {
	e.view.Render(e.state)
}

// Press sends cmd to the bound player. On success the metadata is refreshed
// once refreshDelay has passed, giving the player time to switch tracks.
func (e *Engine) Press(ctx context.Context, cmd domain.TransportCommand) error {
	if err := e.session.SendTransportCommand(ctx, cmd); err != nil {
		e.logger.Warn("Transport command failed", zap.String("command", string(cmd)), zap.Error(err))
		e.setStatus(commandStatus(err))
		return err
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		timer := time.NewTimer(e.refreshDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-e.ctx.Done():
			return
		}

		owner := e.session.Snapshot().Owner
		if owner == "" {
			return
		}
		if _, err := e.session.RefreshMetadata(e.ctx, owner); err != nil && !errors.Is(err, domain.ErrStaleResult) {
			e.logger.Warn("Refresh after command failed", zap.String("player", string(owner)), zap.Error(err))
			e.setStatus("Player not responding")
		}
	}()
	return nil
}

func (e *Engine) setStatus(msg string) {
	select {
	case e.status <- msg:
	default:
	}
}

func commandStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoActivePlayer):
		return "No player running"
	case errors.Is(err, domain.ErrInvalidCommand):
		return "Unsupported command"
	default:
		return "Command failed"
	}
}

// Stop ends the loop and waits for background art loads and refreshes
func (e *Engine) Stop(ctx context.Context) error {
	e.logger.Info("Engine stopping...")
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine stop: %w", ctx.Err())
	}
}

func idleState() domain.ViewState {
	return domain.ViewState{
		TrackLabel:    labelNoTrack,
		PlayPauseIcon: iconPlay,
	}
}

func activeState(player domain.PlayerIdentity, meta domain.PlaybackMetadata) domain.ViewState {
	s := domain.ViewState{
		Active:        true,
		Player:        player,
		TrackLabel:    meta.Title,
		ArtistLabel:   meta.Artist,
		PlayPauseIcon: iconPlay,
	}
	if s.TrackLabel == "" {
		s.TrackLabel = labelUnknownTitle
	}
	if s.ArtistLabel == "" {
		s.ArtistLabel = labelUnknownArtist
	}
	if meta.Status == domain.StatusPlaying {
		s.PlayPauseIcon = iconPause
	}
	return s
}
