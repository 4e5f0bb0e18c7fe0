package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/enjoysite/friendmap/internal/presence/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix       = "friendmap:" // friendmap:{app_id}:...
	maxMergeRetries = 5
)

// RedisStore keeps one JSON document per member plus an index set of uids,
// and announces every write on a pub/sub channel.
type RedisStore struct {
	client *redis.Client
	appID  string
	logger *zap.Logger
}

// NewRedisStore creates a store scoped to one deployment namespace.
func NewRedisStore(client *redis.Client, appID string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		appID:  appID,
		logger: logger.Named("presence.redis"),
	}
}

// Merge applies patch to the member's record inside a WATCH transaction.
// Only the member's own key is watched, so writers never contend.
func (s *RedisStore) Merge(ctx context.Context, uid string, patch domain.Patch) (*domain.Record, error) {
	if uid == "" {
		return nil, domain.ErrEmptyUID
	}

	recordKey := s.recordKey(uid)
	var merged domain.Record

	txf := func(tx *redis.Tx) error {
		current := domain.Record{UID: uid}

		raw, err := tx.Get(ctx, recordKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &current); err != nil {
				s.logger.Warn("discarding unreadable presence record", zap.String("uid", uid), zap.Error(err))
				current = domain.Record{UID: uid}
			}
		}

		merged = patch.Apply(current)
		merged.UID = uid
		ts := s.serverTime(ctx)
		merged.Timestamp = &ts

		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal presence record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, recordKey, data, 0)
			pipe.SAdd(ctx, s.indexKey(), uid)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxMergeRetries; attempt++ {
		err := s.client.Watch(ctx, txf, recordKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to merge presence record: %w", err)
		}

		if err := s.client.Publish(ctx, s.changesChannel(), uid).Err(); err != nil {
			s.logger.Warn("presence change not announced", zap.String("uid", uid), zap.Error(err))
		}
		return &merged, nil
	}

	return nil, fmt.Errorf("failed to merge presence record: %w", redis.TxFailedErr)
}

// List returns every stored record in no particular order.
func (s *RedisStore) List(ctx context.Context) ([]domain.Record, error) {
	uids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence index: %w", err)
	}
	if len(uids) == 0 {
		return []domain.Record{}, nil
	}

	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = s.recordKey(uid)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load presence records: %w", err)
	}

	records := make([]domain.Record, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			s.logger.Warn("skipping unreadable presence record", zap.String("uid", uids[i]), zap.Error(err))
			continue
		}
		rec.UID = uids[i]
		records = append(records, rec)
	}

	return records, nil
}

// Watch subscribes to the change channel, then delivers the current snapshot
// and one fresh snapshot per announced write.
func (s *RedisStore) Watch(ctx context.Context, handler domain.SnapshotHandler) error {
	pubsub := s.client.Subscribe(ctx, s.changesChannel())
	defer pubsub.Close()

	// Confirm the subscription before the first read so no write slips between.
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to presence changes: %w", err)
	}

	if err := s.deliver(ctx, handler); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return ErrWatchClosed
			}
			if err := s.deliver(ctx, handler); err != nil {
				return err
			}
		}
	}
}

func (s *RedisStore) deliver(ctx context.Context, handler domain.SnapshotHandler) error {
	records, err := s.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	handler(records)
	return nil
}

// serverTime reads the redis clock so every writer shares one time source.
func (s *RedisStore) serverTime(ctx context.Context) time.Time {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		s.logger.Debug("redis TIME unavailable, using local clock", zap.Error(err))
		return time.Now().UTC()
	}
	return t.UTC()
}

// Helper methods for key generation
func (s *RedisStore) recordKey(uid string) string {
	return fmt.Sprintf("%s%s:user_locations:%s", keyPrefix, s.appID, uid)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s%s:user_locations", keyPrefix, s.appID)
}

func (s *RedisStore) changesChannel() string {
	return fmt.Sprintf("%s%s:user_locations:changes", keyPrefix, s.appID)
}
