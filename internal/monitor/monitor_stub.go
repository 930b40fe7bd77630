//go:build !linux
// +build !linux

package monitor

import (
	"context"
	"errors"

	"github.com/genricoloni/musicwidget/internal/domain"
	"go.uber.org/zap"
)

var errUnsupported = errors.New("MPRIS monitoring is only supported on Linux systems")

// MprisMonitor stub for non-Linux platforms
type MprisMonitor struct {
	logger        *zap.Logger
	notifications chan domain.Notification
}

// NewMprisMonitor creates a stub monitor that returns an error on non-Linux platforms
func NewMprisMonitor(logger *zap.Logger, cfg domain.Config) *MprisMonitor {
	ch := make(chan domain.Notification)
	close(ch)
	return &MprisMonitor{logger: logger, notifications: ch}
}

// Start returns an error indicating MPRIS monitoring is not supported on this platform
func (m *MprisMonitor) Start(ctx context.Context) error {
	return errUnsupported
}

// Stop is a no-op on non-Linux platforms
func (m *MprisMonitor) Stop(ctx context.Context) error {
	return nil
}

// Notifications returns a closed channel since monitoring is not available
func (m *MprisMonitor) Notifications() <-chan domain.Notification {
	return m.notifications
}

func (m *MprisMonitor) Err() error {
	return errUnsupported
}

func (m *MprisMonitor) QueryMetadata(ctx context.Context, player domain.PlayerIdentity) (domain.PlaybackMetadata, error) {
	return domain.PlaybackMetadata{}, domain.NewQueryError(player, domain.ErrUnreachable, errUnsupported)
}

func (m *MprisMonitor) SendCommand(ctx context.Context, player domain.PlayerIdentity, cmd domain.TransportCommand) error {
	return errUnsupported
}

func (m *MprisMonitor) ListPlayers(ctx context.Context) ([]domain.PlayerInfo, error) {
	return nil, errUnsupported
}
