package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enjoysite/friendmap/internal/client/geo"
	"github.com/enjoysite/friendmap/internal/client/storage"
	"github.com/enjoysite/friendmap/internal/identity"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

func TestSession_Login(t *testing.T) {
	backend := newFakeBackend()
	sess, state := newTestSession(t, backend)
	ctx := context.Background()

	t.Run("rejected name leaves no trace", func(t *testing.T) {
		for _, name := range []string{"", "   ", "오스", "Austin"} {
			assert.ErrorIs(t, sess.Login(ctx, name), identity.ErrNameRejected)
		}
		assert.False(t, sess.Ready())
		st, err := state.Load()
		require.NoError(t, err)
		assert.Empty(t, st.DisplayName)
	})

	t.Run("accepted name is stored trimmed", func(t *testing.T) {
		require.NoError(t, sess.Login(ctx, "  전시기 "))
		assert.True(t, sess.Ready())

		ident, ok := sess.Current()
		require.True(t, ok)
		assert.Equal(t, "전시기", ident.DisplayName)
		assert.Equal(t, domain.DefaultEmoji, ident.Emoji)
		assert.NotEmpty(t, ident.Token)

		st, err := state.Load()
		require.NoError(t, err)
		assert.Equal(t, "전시기", st.DisplayName)
	})
}

func TestSession_LoginSignInFails(t *testing.T) {
	backend := newFakeBackend()
	backend.sessionErr = errBackendDown
	sess, state := newTestSession(t, backend)

	err := sess.Login(context.Background(), "류짱")
	assert.ErrorIs(t, err, errBackendDown)
	assert.False(t, sess.Ready())

	st, err := state.Load()
	require.NoError(t, err)
	assert.Equal(t, "류짱", st.DisplayName, "name is persisted before signing in")
}

func TestSession_Restore(t *testing.T) {
	backend := newFakeBackend()
	ctx := context.Background()

	t.Run("nothing stored", func(t *testing.T) {
		sess, _ := newTestSession(t, backend)
		ok, err := sess.Restore(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, sess.Ready())
	})

	t.Run("stored name signs in silently with a new session", func(t *testing.T) {
		sess, state := newTestSession(t, backend)
		require.NoError(t, state.Save(storage.State{DisplayName: "오스틴", Emoji: "🐵"}))

		ok, err := sess.Restore(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		ident, _ := sess.Current()
		assert.Equal(t, "오스틴", ident.DisplayName)
		assert.Equal(t, "🐵", ident.Emoji)
	})

	t.Run("stored name that no longer verifies is cleared", func(t *testing.T) {
		sess, state := newTestSession(t, backend)
		require.NoError(t, state.Save(storage.State{DisplayName: "intruder"}))

		ok, err := sess.Restore(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		st, err := state.Load()
		require.NoError(t, err)
		assert.Empty(t, st.DisplayName)
	})
}

func TestSession_LogoutAndEmoji(t *testing.T) {
	backend := newFakeBackend()
	sess, state := newTestSession(t, backend)
	ctx := context.Background()

	require.NoError(t, sess.Login(ctx, "이진누"))
	assert.ErrorIs(t, sess.SetEmoji("🚀"), domain.ErrUnknownEmoji)
	require.NoError(t, sess.SetEmoji("🐱"))

	st, err := state.Load()
	require.NoError(t, err)
	assert.Equal(t, "🐱", st.Emoji)

	require.NoError(t, sess.Logout())
	assert.False(t, sess.Ready())
	_, ok := sess.Current()
	assert.False(t, ok)

	st, err = state.Load()
	require.NoError(t, err)
	assert.Empty(t, st.DisplayName)
	assert.Empty(t, st.Emoji)
	assert.NotEmpty(t, st.UID, "the device keeps its principal")

	require.NoError(t, sess.Login(ctx, "이진누"))
	ident, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, st.UID, ident.UID)
}

func TestSession_RelaunchKeepsPrincipal(t *testing.T) {
	backend := newFakeBackend()
	first, state := newTestSession(t, backend)
	ctx := context.Background()

	require.NoError(t, first.Login(ctx, "오스틴"))
	loc := geo.NewStaticLocator(37.50, 127.02)
	_, err := NewPublisher(first, loc, backend, nil).Publish(ctx)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		relaunched := newSessionOn(t, backend, state)
		ok, err := relaunched.Restore(ctx)
		require.NoError(t, err)
		require.True(t, ok)

		loc.Lat += 0.05
		_, err = NewPublisher(relaunched, loc, backend, nil).Publish(ctx)
		require.NoError(t, err)
	}

	records := backend.snapshot()
	require.Len(t, records, 1)
	assert.InDelta(t, 37.60, *records[0].Latitude, 1e-9)
}

func TestSession_RestoreOfflineTrustsStoredName(t *testing.T) {
	backend := newFakeBackend()
	sess, state := newTestSession(t, backend)
	ctx := context.Background()
	require.NoError(t, state.Save(storage.State{DisplayName: "홍박사", Emoji: "🐼"}))

	backend.setSessionErr(errBackendDown)
	ok, err := sess.Restore(ctx)
	assert.True(t, ok, "a stored verified name is not re-prompted")
	assert.ErrorIs(t, err, errBackendDown)
	assert.True(t, sess.Verified())
	assert.False(t, sess.Ready())

	assert.ErrorIs(t, sess.Reconnect(ctx), errBackendDown)

	backend.setSessionErr(nil)
	require.NoError(t, sess.Reconnect(ctx))
	assert.True(t, sess.Ready())
	ident, _ := sess.Current()
	assert.Equal(t, "홍박사", ident.DisplayName)
	assert.Equal(t, "🐼", ident.Emoji)

	calls := backend.sessionCalls
	require.NoError(t, sess.Reconnect(ctx))
	assert.Equal(t, calls, backend.sessionCalls, "reconnect with a live session is a no-op")
}

func TestSession_ReconnectWithoutIdentity(t *testing.T) {
	sess, _ := newTestSession(t, newFakeBackend())
	assert.ErrorIs(t, sess.Reconnect(context.Background()), ErrNoSession)
}
