package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/genricoloni/musicwidget/internal/config"
	"github.com/genricoloni/musicwidget/internal/domain"
	"github.com/genricoloni/musicwidget/internal/engine"
	"github.com/genricoloni/musicwidget/internal/eventbus"
	"github.com/genricoloni/musicwidget/internal/fetcher"
	"github.com/genricoloni/musicwidget/internal/monitor"
	"github.com/genricoloni/musicwidget/internal/processor"
	"github.com/genricoloni/musicwidget/internal/tracker"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// AppOptions wires every component of the widget daemon.
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		fx.Annotate(monitor.NewMprisMonitor,
			fx.As(new(domain.OwnerFeed)),
			fx.As(new(domain.PlayerControl)),
		),
		fx.Annotate(eventbus.NewSyncEventBus,
			fx.As(fx.Self()),
			fx.As(new(domain.EventBus)),
			fx.As(new(domain.EventSink)),
		),
		fx.Annotate(tracker.NewTracker,
			fx.As(fx.Self()),
			fx.As(new(domain.SessionController)),
		),
		fx.Annotate(fetcher.NewHTTPFetcher, fx.As(new(domain.Fetcher))),
		fx.Annotate(processor.NewThumbnailProcessor, fx.As(new(domain.ImageProcessor))),
		fx.Annotate(engine.NewLogView, fx.As(new(domain.View))),
		engine.NewEngine,
	),
	fx.Invoke(applyLogLevel, registerHooks),
)

// newLogger builds the production logger. Its level is adjusted from the
// configuration once that is loaded.
func newLogger() (*zap.Logger, zap.AtomicLevel, error) {
	cfg := zap.NewProductionConfig()
	logger, err := cfg.Build()
	if err != nil {
		return nil, cfg.Level, err
	}
	return logger, cfg.Level, nil
}

func applyLogLevel(level zap.AtomicLevel, cfg domain.Config) error {
	lvl, err := zapcore.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	level.SetLevel(lvl)
	return nil
}

type hookParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *zap.Logger
	Config     domain.Config
	Feed       domain.OwnerFeed
	Bus        *eventbus.SyncEventBus
	Tracker    *tracker.Tracker
	Engine     *engine.Engine
}

// registerHooks sets up application lifecycle hooks
func registerHooks(p hookParams) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Feed.Start(ctx); err != nil {
				return fmt.Errorf("failed to start bus feed: %w", err)
			}

			if p.Config.GetReconcileOnStart() {
				if err := p.Tracker.Reconcile(ctx); err != nil {
					p.Logger.Warn("Startup reconciliation failed", zap.Error(err))
				}
			}

			buttons := newButtonWatcher(p.Logger, p.Engine.Press)

			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error { return p.Tracker.Run(gctx) })
			g.Go(func() error { return p.Engine.Run(gctx) })
			g.Go(func() error { return buttons.Run(gctx) })

			done = make(chan struct{})
			go func() {
				defer close(done)
				err := g.Wait()
				if errors.Is(err, domain.ErrFeedLost) {
					p.Logger.Error("Lost the session bus, shutting down", zap.Error(err))
					if serr := p.Shutdowner.Shutdown(fx.ExitCode(1)); serr != nil {
						p.Logger.Error("Shutdown request failed", zap.Error(serr))
					}
				}
			}()

			p.Logger.Info("Music widget started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("Shutting down")
			if cancel != nil {
				cancel()
				<-done
			}
			// the engine goes first: tracker refreshes publish into it
			engineErr := p.Engine.Stop(ctx)
			p.Tracker.Close()

			return multierr.Combine(
				engineErr,
				p.Feed.Stop(ctx),
				p.Bus.Close(),
			)
		},
	})
}
