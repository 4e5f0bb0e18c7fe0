package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// ErrSubscriptionClosed is recorded when a watch ends without an error.
var ErrSubscriptionClosed = errors.New("presence subscription closed")

const resubscribeInterval = 2 * time.Second

// SnapshotSource delivers full snapshots until ctx is done or it fails.
type SnapshotSource interface {
	WatchPresence(ctx context.Context, token string, handler domain.SnapshotHandler) error
}

// Feed keeps the last-known presence list and hands every new list to one
// registered handler. A dropped subscription is retried at most once per
// resubscribeInterval; the failure stays visible through Err until the next
// snapshot arrives.
type Feed struct {
	session *Session
	source  SnapshotSource
	logger  *zap.Logger
	limiter *rate.Limiter

	mu      sync.RWMutex
	list    []domain.Record
	err     error
	handler domain.SnapshotHandler
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewFeed(session *Session, source SnapshotSource, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		session: session,
		source:  source,
		logger:  logger.Named("feed"),
		limiter: rate.NewLimiter(rate.Every(resubscribeInterval), 1),
	}
}

// OnChange registers the handler, replacing any previous one.
func (f *Feed) OnChange(handler domain.SnapshotHandler) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
}

// Start subscribes when the session is ready. Starting a running feed is a
// no-op; a feed whose loop ended with its session can be started again.
func (f *Feed) Start(ctx context.Context) error {
	if !f.session.Ready() {
		return ErrNoSession
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done != nil {
		select {
		case <-f.done:
			f.cancel()
		default:
			return nil
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	f.cancel = cancel
	f.done = done

	go func() {
		defer close(done)
		f.run(ctx)
	}()
	return nil
}

// Stop tears the subscription down and waits for it to finish. The last list
// is kept.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a subscription loop is active.
func (f *Feed) Running() bool {
	f.mu.RLock()
	done := f.done
	f.mu.RUnlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// List returns a copy of the current presence list.
func (f *Feed) List() []domain.Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.Record, len(f.list))
	copy(out, f.list)
	return out
}

// Err returns the last subscription failure, nil once a snapshot arrives.
func (f *Feed) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// Reset drops the list, used on logout.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.list = nil
	f.err = nil
	f.mu.Unlock()
}

func (f *Feed) run(ctx context.Context) {
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return
		}

		ident, ok := f.session.Current()
		if !ok {
			f.logger.Debug("session gone, feed stopping")
			return
		}

		err := f.source.WatchPresence(ctx, ident.Token, func(records []domain.Record) {
			f.apply(ident.UID, records)
		})
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = ErrSubscriptionClosed
		}

		f.logger.Warn("presence subscription failed", zap.Error(err))
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
	}
}

func (f *Feed) apply(viewerUID string, records []domain.Record) {
	sorted := domain.SortForViewer(records, viewerUID)

	f.mu.Lock()
	f.list = sorted
	f.err = nil
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		out := make([]domain.Record, len(sorted))
		copy(out, sorted)
		handler(out)
	}
}
