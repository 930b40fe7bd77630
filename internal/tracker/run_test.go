package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/genricoloni/musicwidget/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func startRun(t *testing.T, f *fixture) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.tracker.Run(ctx)
	}()
	return cancel, done
}

func TestRunAppliesFeedInOrder(t *testing.T) {
	f := newFixture(t)
	f.control.EXPECT().QueryMetadata(gomock.Any(), gomock.Any()).Return(trackMeta("Song"), nil).AnyTimes()

	cancel, done := startRun(t, f)

	f.feed.ch <- ownerChanged(playerX, "", ":1.1")
	f.feed.ch <- ownerChanged("org.freedesktop.Notifications", "", ":1.3")
	f.feed.ch <- ownerChanged(playerX, ":1.1", "")

	require.Eventually(t, func() bool {
		return f.sink.count(domain.EventPlayerDisappeared) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
	assertIdle(t, f.tracker)
	assert.Equal(t, 1, f.sink.count(domain.EventPlayerAppeared))
}

func TestRunRefreshesOnPropertiesChanged(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.control.EXPECT().QueryMetadata(gomock.Any(), domain.PlayerIdentity(playerX)).Return(trackMeta("First"), nil),
		f.control.EXPECT().QueryMetadata(gomock.Any(), domain.PlayerIdentity(playerX)).Return(trackMeta("Second"), nil),
		f.control.EXPECT().QueryMetadata(gomock.Any(), domain.PlayerIdentity(playerX)).Return(trackMeta("Third"), nil),
	)

	cancel, done := startRun(t, f)
	defer func() {
		cancel()
		<-done
	}()

	f.feed.ch <- ownerChanged(playerX, "", ":1.1")
	require.Eventually(t, func() bool {
		return f.sink.count(domain.EventMetadataUpdated) == 1
	}, time.Second, 5*time.Millisecond)

	// attributed by connection only
	f.feed.ch <- propsChanged("", ":1.1")
	require.Eventually(t, func() bool {
		return f.sink.count(domain.EventMetadataUpdated) == 2
	}, time.Second, 5*time.Millisecond)

	// attributed by well-known name
	f.feed.ch <- propsChanged(playerX, ":1.1")
	require.Eventually(t, func() bool {
		return f.sink.count(domain.EventMetadataUpdated) == 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Third", f.tracker.Snapshot().Metadata.Title)
}

func TestRunIgnoresForeignPropertiesChanged(t *testing.T) {
	f := newFixture(t)
	f.control.EXPECT().QueryMetadata(gomock.Any(), gomock.Any()).Return(trackMeta("Song"), nil).Times(1)

	cancel, done := startRun(t, f)

	// nothing bound yet
	f.feed.ch <- propsChanged(playerX, ":1.1")
	f.feed.ch <- ownerChanged(playerX, "", ":1.1")
	f.feed.ch <- propsChanged(playerY, ":1.2")
	f.feed.ch <- propsChanged("", ":1.9")

	require.Eventually(t, func() bool {
		return len(f.feed.ch) == 0 && f.sink.count(domain.EventMetadataUpdated) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	f.tracker.Close()
	assert.Equal(t, 1, f.sink.count(domain.EventMetadataUpdated))
}

func TestRunFeedLost(t *testing.T) {
	tests := []struct {
		name    string
		feedErr error
	}{
		{name: "reported as feed lost", feedErr: domain.ErrFeedLost},
		{name: "other reason", feedErr: errors.New("connection reset by peer")},
		{name: "no reason", feedErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, done := startRun(t, f)

			f.feed.lose(tt.feedErr)

			select {
			case err := <-done:
				assert.ErrorIs(t, err, domain.ErrFeedLost)
				if tt.feedErr != nil {
					assert.ErrorContains(t, err, tt.feedErr.Error())
				}
			case <-time.After(time.Second):
				t.Fatal("Run did not return after the feed closed")
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		players []domain.PlayerInfo
		want    domain.PlayerIdentity
	}{
		{
			name: "preferred order wins over sort order",
			players: []domain.PlayerInfo{
				{Name: "org.mpris.MediaPlayer2.vlc", Connection: ":1.10"},
				{Name: "org.mpris.MediaPlayer2.spotify", Connection: ":1.11"},
			},
			want: "org.mpris.MediaPlayer2.spotify",
		},
		{
			name: "preferred instance name",
			players: []domain.PlayerInfo{
				{Name: "org.mpris.MediaPlayer2.amarok", Connection: ":1.10"},
				{Name: "org.mpris.MediaPlayer2.vlc.instance4242", Connection: ":1.11"},
			},
			want: "org.mpris.MediaPlayer2.vlc.instance4242",
		},
		{
			name: "falls back to first sorted name",
			players: []domain.PlayerInfo{
				{Name: "org.mpris.MediaPlayer2.zplayer", Connection: ":1.10"},
				{Name: "org.mpris.MediaPlayer2.amarok", Connection: ":1.11"},
			},
			want: "org.mpris.MediaPlayer2.amarok",
		},
		{
			name: "skips names without owner or outside namespace",
			players: []domain.PlayerInfo{
				{Name: "org.mpris.MediaPlayer2.spotify", Connection: ""},
				{Name: "org.gnome.Shell", Connection: ":1.2"},
				{Name: "org.mpris.MediaPlayer2.mpv", Connection: ":1.12"},
			},
			want: "org.mpris.MediaPlayer2.mpv",
		},
		{
			name:    "nothing running",
			players: nil,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.control.EXPECT().ListPlayers(gomock.Any()).Return(tt.players, nil)
			f.control.EXPECT().QueryMetadata(gomock.Any(), gomock.Any()).Return(trackMeta("Song"), nil).AnyTimes()

			require.NoError(t, f.tracker.Reconcile(context.Background()))

			s := f.tracker.Snapshot()
			assert.Equal(t, tt.want, s.Owner)
			if tt.want == "" {
				assert.Empty(t, f.sink.types())
				return
			}
			assert.Equal(t, 1, f.sink.count(domain.EventPlayerAppeared))
		})
	}
}

func TestReconcileWhileActive(t *testing.T) {
	f := newFixture(t)
	f.control.EXPECT().QueryMetadata(gomock.Any(), gomock.Any()).Return(trackMeta("Song"), nil).AnyTimes()
	// no ListPlayers expectation: Reconcile must not enumerate

	f.tracker.OnOwnerChanged(ownerChanged(playerX, "", ":1.1"))
	require.NoError(t, f.tracker.Reconcile(context.Background()))
	assert.Equal(t, domain.PlayerIdentity(playerX), f.tracker.Snapshot().Owner)
}

func TestReconcileListFailure(t *testing.T) {
	f := newFixture(t)
	listErr := errors.New("org.freedesktop.DBus.Error.NoReply")
	f.control.EXPECT().ListPlayers(gomock.Any()).Return(nil, listErr)

	err := f.tracker.Reconcile(context.Background())
	assert.ErrorIs(t, err, listErr)
	assertIdle(t, f.tracker)
}
