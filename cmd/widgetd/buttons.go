package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/genricoloni/musicwidget/internal/domain"
	"go.uber.org/zap"
)

// buttonWatcher turns process signals into widget button presses so a bar
// or key binding can drive the player, e.g. `pkill -USR1 widgetd`.
type buttonWatcher struct {
	logger  *zap.Logger
	press   func(context.Context, domain.TransportCommand) error
	signals chan os.Signal
}

// newButtonWatcher subscribes to the button signals right away, so a signal
// sent after it returns is never handled with the default action.
func newButtonWatcher(logger *zap.Logger, press func(context.Context, domain.TransportCommand) error) *buttonWatcher {
	w := &buttonWatcher{
		logger:  logger,
		press:   press,
		signals: make(chan os.Signal, 4),
	}
	if len(buttonSignals) == 0 {
		return w
	}

	sigs := make([]os.Signal, 0, len(buttonSignals))
	for sig := range buttonSignals {
		sigs = append(sigs, sig)
	}
	signal.Notify(w.signals, sigs...)
	return w
}

// Run presses the mapped button for every received signal until ctx is done.
func (w *buttonWatcher) Run(ctx context.Context) error {
	defer signal.Stop(w.signals)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-w.signals:
			cmd, ok := buttonSignals[sig]
			if !ok {
				continue
			}
			w.logger.Debug("Button pressed", zap.String("command", string(cmd)), zap.Stringer("signal", sig))
			// failures already surface on the status line
			_ = w.press(ctx, cmd)
		}
	}
}
