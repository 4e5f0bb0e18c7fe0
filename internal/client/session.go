// Package client is the synchronization core of the friendmap client: the
// identity gate caller, the location publisher and the presence feed.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	authdomain "github.com/enjoysite/friendmap/internal/auth/domain"
	"github.com/enjoysite/friendmap/internal/client/storage"
	"github.com/enjoysite/friendmap/internal/identity"
	"github.com/enjoysite/friendmap/internal/presence/domain"
)

// ErrNoSession is returned by operations that need a verified identity.
var ErrNoSession = errors.New("no verified session")

// SessionAPI establishes anonymous sessions.
type SessionAPI interface {
	StartSession(ctx context.Context, name, resumeToken string) (*authdomain.Session, error)
}

// StateStore is the local slot holding the verified name and last session.
type StateStore interface {
	Load() (storage.State, error)
	Save(st storage.State) error
	Clear() error
}

// Identity is the verified principal the client acts as.
type Identity struct {
	UID         string
	DisplayName string
	Token       string
	Emoji       string
}

// Session tracks the verified identity and its anonymous session.
type Session struct {
	gate   *identity.AllowList
	api    SessionAPI
	state  StateStore
	logger *zap.Logger

	mu       sync.RWMutex
	current  *authdomain.Session
	emoji    string
	verified bool
	epoch    int
}

func NewSession(gate *identity.AllowList, api SessionAPI, state StateStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		gate:   gate,
		api:    api,
		state:  state,
		logger: logger.Named("session"),
		emoji:  domain.DefaultEmoji,
	}
}

// Login checks name against the allow-list, stores it locally, signs in
// anonymously and marks the session verified, in that order.
func (s *Session) Login(ctx context.Context, name string) error {
	if err := s.gate.Check(name); err != nil {
		return err
	}
	name = identity.Normalize(name)

	st := s.loadState()
	st.DisplayName = name
	if err := s.state.Save(st); err != nil {
		return err
	}

	return s.signIn(ctx, st, s.currentEpoch())
}

// Restore re-validates a stored name and signs in silently. It reports false
// when there is nothing to restore; a stored name that no longer passes the
// gate is forgotten. A name that passes is trusted even when the sign-in
// fails: Restore then reports true with the error and Reconnect retries.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	st, err := s.state.Load()
	if err != nil {
		return false, err
	}
	if st.DisplayName == "" {
		return false, nil
	}
	if !s.gate.Verify(st.DisplayName) {
		s.logger.Info("stored name no longer permitted, clearing")
		return false, s.forgetName(st)
	}

	s.mu.Lock()
	s.verified = true
	if domain.InPalette(st.Emoji) {
		s.emoji = st.Emoji
	}
	epoch := s.epoch
	s.mu.Unlock()

	if err := s.signIn(ctx, st, epoch); err != nil {
		return true, err
	}
	return true, nil
}

// Reconnect retries the anonymous sign-in of a verified identity that has no
// session yet. It is a no-op once a session exists.
func (s *Session) Reconnect(ctx context.Context) error {
	s.mu.RLock()
	verified, ready, epoch := s.verified, s.current != nil, s.epoch
	s.mu.RUnlock()
	if !verified {
		return ErrNoSession
	}
	if ready {
		return nil
	}

	st, err := s.state.Load()
	if err != nil {
		return err
	}
	if st.DisplayName == "" {
		return ErrNoSession
	}
	return s.signIn(ctx, st, epoch)
}

func (s *Session) signIn(ctx context.Context, st storage.State, epoch int) error {
	sess, err := s.api.StartSession(ctx, st.DisplayName, st.ResumeToken)
	if err != nil {
		return fmt.Errorf("anonymous sign-in failed: %w", err)
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.current = sess
	if domain.InPalette(st.Emoji) {
		s.emoji = st.Emoji
	}
	s.verified = true
	s.mu.Unlock()

	latest := s.loadState()
	latest.UID = sess.UID
	latest.ResumeToken = sess.Token
	if err := s.state.Save(latest); err != nil {
		s.logger.Warn("failed to remember session", zap.Error(err))
	}

	s.logger.Info("signed in", zap.String("uid", sess.UID))
	return nil
}

// Logout drops the session and forgets the name. The principal is kept for
// the next login on this device.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.current = nil
	s.verified = false
	s.emoji = domain.DefaultEmoji
	s.epoch++
	s.mu.Unlock()

	return s.forgetName(s.loadState())
}

func (s *Session) forgetName(st storage.State) error {
	if st.ResumeToken == "" {
		return s.state.Clear()
	}
	return s.state.Save(storage.State{UID: st.UID, ResumeToken: st.ResumeToken})
}

func (s *Session) loadState() storage.State {
	st, err := s.state.Load()
	if err != nil {
		s.logger.Warn("ignoring unreadable local state", zap.Error(err))
		return storage.State{}
	}
	return st
}

func (s *Session) currentEpoch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Verified reports whether the identity passed the gate, with or without a
// session.
func (s *Session) Verified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified
}

// Ready reports whether the identity is verified and a session exists.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verified && s.current != nil
}

// Current returns the active identity.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.verified || s.current == nil {
		return Identity{}, false
	}
	return Identity{
		UID:         s.current.UID,
		DisplayName: s.current.DisplayName,
		Token:       s.current.Token,
		Emoji:       s.emoji,
	}, true
}

// SetEmoji picks a palette avatar and remembers it locally.
func (s *Session) SetEmoji(emoji string) error {
	if !domain.InPalette(emoji) {
		return domain.ErrUnknownEmoji
	}

	s.mu.Lock()
	s.emoji = emoji
	s.mu.Unlock()

	st, err := s.state.Load()
	if err != nil {
		return err
	}
	if st.DisplayName == "" {
		return nil
	}
	st.Emoji = emoji
	return s.state.Save(st)
}
