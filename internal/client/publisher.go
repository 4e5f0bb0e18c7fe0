package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/client/api"
	"github.com/enjoysite/friendmap/internal/client/geo"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// PresenceAPI writes the caller's presence record.
type PresenceAPI interface {
	PublishPresence(ctx context.Context, token string, body api.PublishBody) (*domain.Record, error)
}

// Publisher sends one location fix per explicit request.
type Publisher struct {
	session *Session
	locator geo.Locator
	api     PresenceAPI
	logger  *zap.Logger

	loading atomic.Bool

	mu     sync.RWMutex
	status string
}

func NewPublisher(session *Session, locator geo.Locator, presence PresenceAPI, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locator == nil {
		locator = geo.Unavailable{}
	}
	return &Publisher{
		session: session,
		locator: locator,
		api:     presence,
		logger:  logger.Named("publisher"),
	}
}

// SetStatus sets the free-text status sent with the next publish.
func (p *Publisher) SetStatus(status string) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
}

func (p *Publisher) Status() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Loading reports whether a publish is in flight.
func (p *Publisher) Loading() bool {
	return p.loading.Load()
}

// Publish takes one fix and merge-writes the caller's record. Without a
// verified session it returns ErrNoSession and does nothing else. A failed
// fix returns an error wrapping geo.ErrLocationUnavailable and nothing is
// written.
func (p *Publisher) Publish(ctx context.Context) (*domain.Record, error) {
	ident, ok := p.session.Current()
	if !ok {
		return nil, ErrNoSession
	}

	p.loading.Store(true)
	defer p.loading.Store(false)

	loc, err := p.locator.CurrentLocation(ctx)
	if err != nil {
		if !errors.Is(err, geo.ErrLocationUnavailable) {
			err = fmt.Errorf("%w: %v", geo.ErrLocationUnavailable, err)
		}
		return nil, err
	}

	status := p.Status()
	if status == "" {
		status = domain.DefaultStatus
	}

	rec, err := p.api.PublishPresence(ctx, ident.Token, api.PublishBody{
		Latitude:      loc.Latitude,
		Longitude:     loc.Longitude,
		DisplayName:   ident.DisplayName,
		Emoji:         ident.Emoji,
		StatusMessage: status,
	})
	if err != nil {
		p.logger.Error("presence write failed", zap.String("uid", ident.UID), zap.Error(err))
		return nil, err
	}

	p.logger.Debug("presence published", zap.Float64("lat", loc.Latitude), zap.Float64("lng", loc.Longitude))
	return rec, nil
}
