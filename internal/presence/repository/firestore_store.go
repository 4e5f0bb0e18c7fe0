package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/enjoysite/friendmap/internal/presence/domain"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps presence documents under
// artifacts/{app_id}/public/data/user_locations/{uid}.
type FirestoreStore struct {
	client *firestore.Client
	appID  string
	logger *zap.Logger
}

func NewFirestoreStore(client *firestore.Client, appID string, logger *zap.Logger) *FirestoreStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreStore{
		client: client,
		appID:  appID,
		logger: logger.Named("presence.firestore"),
	}
}

func (s *FirestoreStore) collection() *firestore.CollectionRef {
	return s.client.Collection("artifacts").Doc(s.appID).
		Collection("public").Doc("data").
		Collection("user_locations")
}

// Merge writes the patch with MergeAll and a server timestamp, then reads the
// merged document back. A patch with EmojiIfUnset reads the document first in
// the same transaction.
func (s *FirestoreStore) Merge(ctx context.Context, uid string, patch domain.Patch) (*domain.Record, error) {
	if uid == "" {
		return nil, domain.ErrEmptyUID
	}

	ref := s.collection().Doc(uid)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fields := patch.Fields()
		fields["uid"] = uid
		fields["timestamp"] = firestore.ServerTimestamp

		if patch.EmojiIfUnset != nil && patch.Emoji == nil {
			snap, err := tx.Get(ref)
			if err != nil && status.Code(err) != codes.NotFound {
				return err
			}
			var current domain.Record
			if snap != nil && snap.Exists() {
				if err := snap.DataTo(&current); err != nil {
					s.logger.Warn("overwriting unreadable presence document", zap.String("uid", uid), zap.Error(err))
				}
			}
			if current.Emoji == "" {
				fields["emoji"] = *patch.EmojiIfUnset
			}
		}

		return tx.Set(ref, fields, firestore.MergeAll)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge presence document: %w", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged presence document: %w", err)
	}

	rec, err := decodeDocument(snap)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *FirestoreStore) List(ctx context.Context) ([]domain.Record, error) {
	docs, err := s.collection().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence documents: %w", err)
	}
	return s.decodeAll(docs), nil
}

// Watch streams query snapshots of the whole collection.
func (s *FirestoreStore) Watch(ctx context.Context, handler domain.SnapshotHandler) error {
	it := s.collection().Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("presence snapshot listener: %w", err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read presence snapshot: %w", err)
		}
		handler(s.decodeAll(docs))
	}
}

func (s *FirestoreStore) decodeAll(docs []*firestore.DocumentSnapshot) []domain.Record {
	records := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		rec, err := decodeDocument(d)
		if err != nil {
			s.logger.Warn("skipping unreadable presence document", zap.String("id", d.Ref.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records
}

func decodeDocument(d *firestore.DocumentSnapshot) (domain.Record, error) {
	var rec domain.Record
	if err := d.DataTo(&rec); err != nil {
		return domain.Record{}, fmt.Errorf("failed to decode presence document %s: %w", d.Ref.ID, err)
	}
	// The document id is the storage key; it wins over the stored uid field.
	rec.UID = d.Ref.ID
	return rec, nil
}
