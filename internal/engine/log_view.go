package engine

import (
	"bytes"
	"sync"

	"github.com/genricoloni/musicwidget/internal/domain"
	"go.uber.org/zap"
)

// LogView is the headless renderer: it logs every change of the widget state.
type LogView struct {
	logger *zap.Logger

	mu   sync.Mutex
	last domain.ViewState
	seen bool
}

// NewLogView creates a View that writes to logger
func NewLogView(logger *zap.Logger) *LogView {
	return &LogView{logger: logger}
}

// Render logs state unless it equals the previous one
func (v *LogView) Render(state domain.ViewState) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.seen && sameView(v.last, state) {
		return
	}
	v.last, v.seen = state, true

	v.logger.Info("Widget updated",
		zap.Bool("active", state.Active),
		zap.String("player", string(state.Player)),
		zap.String("track", state.TrackLabel),
		zap.String("artist", state.ArtistLabel),
		zap.String("icon", state.PlayPauseIcon),
		zap.Int("artBytes", len(state.ArtPNG)),
		zap.String("status", state.StatusLine))
}

func sameView(a, b domain.ViewState) bool {
	return a.Active == b.Active &&
		a.Player == b.Player &&
		a.TrackLabel == b.TrackLabel &&
		a.ArtistLabel == b.ArtistLabel &&
		a.PlayPauseIcon == b.PlayPauseIcon &&
		a.StatusLine == b.StatusLine &&
		bytes.Equal(a.ArtPNG, b.ArtPNG)
}

var _ domain.View = (*LogView)(nil)
