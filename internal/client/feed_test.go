package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/enjoysite/friendmap/internal/client/geo"
	"github.com/enjoysite/friendmap/internal/mapview"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond)
}

func newFastFeed(sess *Session, backend *fakeBackend) *Feed {
	f := NewFeed(sess, backend, nil)
	f.limiter = rate.NewLimiter(rate.Inf, 1)
	return f
}

func TestFeed_RequiresSession(t *testing.T) {
	backend := newFakeBackend()
	sess, _ := newTestSession(t, backend)

	f := NewFeed(sess, backend, nil)
	assert.ErrorIs(t, f.Start(context.Background()), ErrNoSession)
	assert.False(t, f.Running())
	assert.Zero(t, backend.watcherCount())
}

func TestFeed_ReplacesListAndSortsViewerFirst(t *testing.T) {
	backend := newFakeBackend()
	sess, _ := newTestSession(t, backend)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "오스틴"))
	me, _ := sess.Current()

	f := newFastFeed(sess, backend)
	lists := make(chan []domain.Record, 16)
	f.OnChange(func(records []domain.Record) { lists <- records })

	require.NoError(t, f.Start(ctx))
	require.NoError(t, f.Start(ctx), "second start is a no-op")
	defer f.Stop()

	<-lists

	old := time.Now().Add(-time.Hour)
	newer := time.Now()
	backend.put(domain.Record{UID: "friend-old", Timestamp: &old})
	backend.put(domain.Record{UID: "friend-new", Timestamp: &newer})
	backend.put(domain.Record{UID: "friend-none"})

	pub := NewPublisher(sess, geo.NewStaticLocator(37.5, 127.0), backend, nil)
	_, err := pub.Publish(ctx)
	require.NoError(t, err)

	waitFor(t, func() bool { return len(f.List()) == 4 })
	list := f.List()
	assert.Equal(t, me.UID, list[0].UID)
	assert.Equal(t, "friend-new", list[1].UID)
	assert.Equal(t, "friend-old", list[2].UID)
	assert.Equal(t, "friend-none", list[3].UID)
}

func TestFeed_StopReleasesSubscription(t *testing.T) {
	backend := newFakeBackend()
	sess, _ := newTestSession(t, backend)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "류짱"))

	f := newFastFeed(sess, backend)
	require.NoError(t, f.Start(ctx))
	waitFor(t, func() bool { return backend.watcherCount() == 1 })

	f.Stop()
	assert.False(t, f.Running())
	assert.Zero(t, backend.watcherCount())
	f.Stop()
}

func TestFeed_ResubscribesAndExposesError(t *testing.T) {
	backend := newFakeBackend()
	sess, _ := newTestSession(t, backend)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "이진누"))

	dropped := errors.New("connection reset")
	backend.watchErrs = []error{dropped}

	f := NewFeed(sess, backend, nil)
	f.limiter = rate.NewLimiter(rate.Every(300*time.Millisecond), 1)

	require.NoError(t, f.Start(ctx))
	defer f.Stop()

	waitFor(t, func() bool { return errors.Is(f.Err(), dropped) })
	waitFor(t, func() bool { return backend.watcherCount() == 1 })
	waitFor(t, func() bool { return f.Err() == nil })
	assert.True(t, f.Running())
}

func TestFeed_StopsWhenSessionEnds(t *testing.T) {
	backend := newFakeBackend()
	sess, _ := newTestSession(t, backend)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "전시기"))

	backend.watchErrs = []error{errBackendDown}
	f := NewFeed(sess, backend, nil)
	f.limiter = rate.NewLimiter(rate.Every(300*time.Millisecond), 1)

	require.NoError(t, f.Start(ctx))
	waitFor(t, func() bool { return f.Err() != nil })
	require.NoError(t, sess.Logout())

	waitFor(t, func() bool { return !f.Running() })
	assert.Zero(t, backend.watcherCount())
	f.Stop()
}

func TestFeed_PublishToMarkers(t *testing.T) {
	backend := newFakeBackend()
	sess, _ := newTestSession(t, backend)
	ctx := context.Background()
	require.NoError(t, sess.Login(ctx, "오스틴"))
	me, _ := sess.Current()

	board := mapview.NewBoard()
	renderer := mapview.NewRenderer(board)

	f := newFastFeed(sess, backend)
	rendered := make(chan struct{}, 16)
	f.OnChange(func(records []domain.Record) {
		renderer.Render(records)
		rendered <- struct{}{}
	})
	require.NoError(t, f.Start(ctx))
	defer f.Stop()
	<-rendered

	loc := geo.NewStaticLocator(37.50, 127.02)
	pub := NewPublisher(sess, loc, backend, nil)
	_, err := pub.Publish(ctx)
	require.NoError(t, err)

	waitFor(t, func() bool { return len(board.Markers()) == 1 })
	m, ok := board.Marker(me.UID)
	require.True(t, ok)
	assert.Equal(t, mapview.LatLng{Lat: 37.50, Lng: 127.02}, m.Position)

	loc.Lat, loc.Lng = 37.60, 127.10
	_, err = pub.Publish(ctx)
	require.NoError(t, err)

	waitFor(t, func() bool {
		m, _ := board.Marker(me.UID)
		return m.Position == mapview.LatLng{Lat: 37.60, Lng: 127.10}
	})
	assert.Len(t, board.Markers(), 1)
}
