package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	authdomain "github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/client/api"
	"github.com/enjoysite/friendmap/internal/client/storage"
	"github.com/enjoysite/friendmap/internal/identity"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// fakeBackend is an in-memory stand-in for the friendmap API.
type fakeBackend struct {
	mu       sync.Mutex
	records  map[string]domain.Record
	tokens   map[string]string
	watchers map[int]chan struct{}
	nextID   int
	watchSeq int
	writes   int

	sessionCalls int

	sessionErr error
	publishErr error
	watchErrs  []error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		records:  map[string]domain.Record{},
		tokens:   map[string]string{},
		watchers: map[int]chan struct{}{},
	}
}

func (b *fakeBackend) StartSession(_ context.Context, name, resumeToken string) (*authdomain.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionCalls++
	if b.sessionErr != nil {
		return nil, b.sessionErr
	}
	b.nextID++
	uid, ok := b.tokens[resumeToken]
	if !ok {
		uid = fmt.Sprintf("uid-%d", b.nextID)
	}
	token := fmt.Sprintf("token-%d", b.nextID)
	b.tokens[token] = uid
	return &authdomain.Session{UID: uid, DisplayName: identity.Normalize(name), Token: token}, nil
}

func (b *fakeBackend) PublishPresence(_ context.Context, token string, body api.PublishBody) (*domain.Record, error) {
	b.mu.Lock()
	if b.publishErr != nil {
		b.mu.Unlock()
		return nil, b.publishErr
	}
	uid, ok := b.tokens[token]
	if !ok {
		b.mu.Unlock()
		return nil, api.ErrUnauthorized
	}
	now := time.Now()
	rec := domain.Patch{
		Latitude:      domain.Float(body.Latitude),
		Longitude:     domain.Float(body.Longitude),
		DisplayName:   domain.String(body.DisplayName),
		Emoji:         domain.String(body.Emoji),
		StatusMessage: domain.String(body.StatusMessage),
	}.Apply(b.records[uid])
	rec.UID = uid
	rec.Timestamp = &now
	b.records[uid] = rec
	b.writes++
	b.notifyLocked()
	b.mu.Unlock()
	return &rec, nil
}

// put stores a record directly, as another member's write would.
func (b *fakeBackend) put(rec domain.Record) {
	b.mu.Lock()
	b.records[rec.UID] = rec
	b.notifyLocked()
	b.mu.Unlock()
}

func (b *fakeBackend) notifyLocked() {
	for _, ch := range b.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *fakeBackend) snapshot() []domain.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Record, 0, len(b.records))
	for _, r := range b.records {
		out = append(out, r)
	}
	return out
}

func (b *fakeBackend) WatchPresence(ctx context.Context, token string, handler domain.SnapshotHandler) error {
	b.mu.Lock()
	if len(b.watchErrs) > 0 {
		err := b.watchErrs[0]
		b.watchErrs = b.watchErrs[1:]
		b.mu.Unlock()
		return err
	}
	if _, ok := b.tokens[token]; !ok {
		b.mu.Unlock()
		return api.ErrUnauthorized
	}
	b.watchSeq++
	id := b.watchSeq
	ch := make(chan struct{}, 1)
	b.watchers[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
	}()

	handler(b.snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			handler(b.snapshot())
		}
	}
}

func (b *fakeBackend) watcherCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}

func (b *fakeBackend) setSessionErr(err error) {
	b.mu.Lock()
	b.sessionErr = err
	b.mu.Unlock()
}

func (b *fakeBackend) writeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

var errBackendDown = errors.New("backend unreachable")

func newTestSession(t *testing.T, backend *fakeBackend) (*Session, *storage.StateFile) {
	t.Helper()
	state := storage.NewStateFile(filepath.Join(t.TempDir(), "state.yaml"))
	return newSessionOn(t, backend, state), state
}

// newSessionOn starts a client against an existing state file, as a relaunch
// would.
func newSessionOn(t *testing.T, backend *fakeBackend, state *storage.StateFile) *Session {
	t.Helper()
	gate, err := identity.NewAllowList(identity.DefaultMembers)
	require.NoError(t, err)
	return NewSession(gate, backend, state, nil)
}
