package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/enjoysite/friendmap/internal/presence/domain"
	"github.com/enjoysite/friendmap/internal/presence/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const announceTimeout = 5 * time.Second

// Announcer is told about every successful publish. Failures are logged only.
type Announcer interface {
	PresencePublished(ctx context.Context, rec domain.Record) error
}

// PublishRequest carries one member's location update.
type PublishRequest struct {
	UID           string
	DisplayName   string
	Fix           domain.Fix
	Emoji         string
	StatusMessage string
}

// PresenceService handles business logic for presence records
type PresenceService struct {
	store     repository.Store
	announcer Announcer
	limits    *publishLimits
	logger    *zap.Logger
}

// NewPresenceService creates a new PresenceService. perMinute bounds how
// often one member may publish; announcer may be nil.
func NewPresenceService(store repository.Store, announcer Announcer, perMinute int, logger *zap.Logger) *PresenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceService{
		store:     store,
		announcer: announcer,
		limits:    newPublishLimits(perMinute),
		logger:    logger.Named("presence"),
	}
}

// Publish merge-writes the caller's record. The key is always req.UID.
func (s *PresenceService) Publish(ctx context.Context, req PublishRequest) (*domain.Record, error) {
	if req.UID == "" {
		return nil, domain.ErrEmptyUID
	}
	if err := req.Fix.Validate(); err != nil {
		return nil, err
	}

	if req.Emoji != "" && !domain.InPalette(req.Emoji) {
		return nil, domain.ErrUnknownEmoji
	}

	if !s.limits.allow(req.UID) {
		return nil, domain.ErrRateLimited
	}

	patch := domain.Patch{
		Latitude:      domain.Float(req.Fix.Latitude),
		Longitude:     domain.Float(req.Fix.Longitude),
		DisplayName:   domain.String(strings.TrimSpace(req.DisplayName)),
		StatusMessage: domain.String(NormalizeStatus(req.StatusMessage)),
	}
	// An empty emoji keeps the member's avatar; first writes get the default.
	if req.Emoji != "" {
		patch.Emoji = domain.String(req.Emoji)
	} else {
		patch.EmojiIfUnset = domain.String(domain.DefaultEmoji)
	}

	rec, err := s.store.Merge(ctx, req.UID, patch)
	if err != nil {
		s.logger.Error("presence write failed", zap.String("uid", req.UID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("presence published",
		zap.String("uid", rec.UID),
		zap.Float64("lat", req.Fix.Latitude),
		zap.Float64("lng", req.Fix.Longitude),
	)

	if s.announcer != nil {
		go s.announce(context.WithoutCancel(ctx), *rec)
	}

	return rec, nil
}

func (s *PresenceService) announce(ctx context.Context, rec domain.Record) {
	ctx, cancel := context.WithTimeout(ctx, announceTimeout)
	defer cancel()
	if err := s.announcer.PresencePublished(ctx, rec); err != nil {
		s.logger.Warn("presence announcement failed", zap.String("uid", rec.UID), zap.Error(err))
	}
}

// Snapshot returns the whole collection ordered for viewerUID.
func (s *PresenceService) Snapshot(ctx context.Context, viewerUID string) ([]domain.Record, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return domain.SortForViewer(records, viewerUID), nil
}

// Watch streams viewer-ordered snapshots until ctx is done or the store fails.
func (s *PresenceService) Watch(ctx context.Context, viewerUID string, handler domain.SnapshotHandler) error {
	return s.store.Watch(ctx, func(records []domain.Record) {
		handler(domain.SortForViewer(records, viewerUID))
	})
}

// NormalizeStatus trims the status, substitutes the default for an empty one
// and caps its length.
func NormalizeStatus(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return domain.DefaultStatus
	}
	if utf8.RuneCountInString(status) > domain.MaxStatusLength {
		status = string([]rune(status)[:domain.MaxStatusLength])
	}
	return status
}

// publishLimits keeps one token bucket per member.
type publishLimits struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newPublishLimits(perMinute int) *publishLimits {
	if perMinute <= 0 {
		perMinute = 30
	}
	burst := perMinute
	if burst > 5 {
		burst = 5
	}
	return &publishLimits{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *publishLimits) allow(uid string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[uid]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[uid] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
