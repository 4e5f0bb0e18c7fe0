package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/identity"
)

// TokenSigner issues session tokens and recovers the uid of an earlier one.
type TokenSigner interface {
	Sign(uid, displayName string) (string, time.Time, error)
	Resume(token string) (string, error)
}

// Directory remembers members that passed the gate. Optional.
type Directory interface {
	Upsert(ctx context.Context, m *domain.Member) error
	List(ctx context.Context) ([]domain.Member, error)
}

// SessionService runs the identity gate and hands out anonymous sessions.
type SessionService struct {
	gate      *identity.AllowList
	signer    TokenSigner
	directory Directory
	logger    *zap.Logger
	newUID    func() string
}

func NewSessionService(gate *identity.AllowList, signer TokenSigner, directory Directory, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		gate:      gate,
		signer:    signer,
		directory: directory,
		logger:    logger.Named("session"),
		newUID:    func() string { return uuid.New().String() },
	}
}

// Start verifies name and, on success, establishes an anonymous session.
// A resumeToken from an earlier session keeps that principal's uid; without
// one, or when it does not verify, a new principal is minted.
func (s *SessionService) Start(ctx context.Context, name, resumeToken string) (*domain.Session, error) {
	if !s.gate.Verify(name) {
		s.logger.Info("name rejected")
		return nil, identity.ErrNameRejected
	}
	displayName := identity.Normalize(name)

	uid := s.resumeUID(resumeToken)
	token, expiresAt, err := s.signer.Sign(uid, displayName)
	if err != nil {
		return nil, err
	}

	if s.directory != nil {
		m := &domain.Member{UID: uid, DisplayName: displayName}
		if err := s.directory.Upsert(ctx, m); err != nil {
			s.logger.Warn("member directory write failed", zap.String("uid", uid), zap.Error(err))
		}
	}

	s.logger.Info("session started", zap.String("uid", uid))
	return &domain.Session{
		UID:         uid,
		DisplayName: displayName,
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *SessionService) resumeUID(token string) string {
	if token == "" {
		return s.newUID()
	}
	uid, err := s.signer.Resume(token)
	if err != nil {
		s.logger.Info("resume token not accepted, minting a new principal", zap.Error(err))
		return s.newUID()
	}
	return uid
}

// VerifyName checks a self-declared display name, used for Firebase principals.
func (s *SessionService) VerifyName(name string) error {
	return s.gate.Check(name)
}

// Members lists the directory, or nothing when no directory is configured.
func (s *SessionService) Members(ctx context.Context) ([]domain.Member, error) {
	if s.directory == nil {
		return []domain.Member{}, nil
	}
	return s.directory.List(ctx)
}
