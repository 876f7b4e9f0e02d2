// Package sessionservice ties the ledger lifecycle to the signed-in user.
//
// A ledger is built when a user signs in and disposed when the user signs
// out or stays idle for too long. Signing in again always starts from the
// initial state produced by the backend factory.
package sessionservice

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
)

// Factory builds the ledger backend of owner.
type Factory func(ctx context.Context, owner string) (ledgerservice.Backend, error)

// FeedCleaner drops the notifications of a signed-out user.
type FeedCleaner interface {
	Clear(owner string)
}

// Option configures a Service.
type Option func(*Service)

// WithIdleTimeout sets how long a ledger may stay unused before ReapIdle
// disposes it. Zero disables reaping.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.idleTimeout = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithFeed clears the notification feed of users whose ledger is disposed.
func WithFeed(f FeedCleaner) Option {
	return func(s *Service) {
		s.feed = f
	}
}

type session struct {
	ledger   *ledgerservice.Service
	lastUsed time.Time
}

// Service keeps the active ledger of every signed-in user.
type Service struct {
	factory     Factory
	notifier    ledgerservice.Notifier
	feed        FeedCleaner
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New returns session service.
func New(factory Factory, notifier ledgerservice.Notifier, opts ...Option) *Service {
	s := &Service{
		factory:  factory,
		notifier: notifier,
		now:      time.Now,
		sessions: make(map[string]*session),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Activate builds a fresh ledger for username, replacing the previous one.
func (s *Service) Activate(ctx context.Context, username string) error {
	l := zerolog.Ctx(ctx)

	backend, err := s.factory(ctx, username)
	if err != nil {
		l.Error().Err(err).Str("username", username).Msg("ledger backend not created")
		return err
	}

	lg := ledgerservice.New(username, backend, s.notifier)

	s.mu.Lock()
	prev := s.sessions[username]
	s.sessions[username] = &session{ledger: lg, lastUsed: s.now()}
	s.mu.Unlock()

	if prev != nil {
		s.dispose(ctx, username, prev, false)
	}

	l.Info().Str("username", username).Msg("ledger activated")

	return nil
}

// Deactivate disposes the ledger of username. It is a no-op for users
// without an active ledger.
func (s *Service) Deactivate(ctx context.Context, username string) error {
	s.mu.Lock()
	sess := s.sessions[username]
	delete(s.sessions, username)
	s.mu.Unlock()

	if sess == nil {
		return nil
	}

	s.dispose(ctx, username, sess, true)
	zerolog.Ctx(ctx).Info().Str("username", username).Msg("ledger deactivated")

	return nil
}

// Ledger returns the active ledger of username.
func (s *Service) Ledger(username string) (*ledgerservice.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[username]
	if !ok {
		return nil, domain.ErrNoActiveUser
	}

	sess.lastUsed = s.now()

	return sess.ledger, nil
}

// Active returns the number of active ledgers.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// ReapIdle disposes ledgers unused since before now minus the idle timeout
// and returns how many were disposed.
func (s *Service) ReapIdle(ctx context.Context, now time.Time) int {
	if s.idleTimeout <= 0 {
		return 0
	}

	deadline := now.Add(-s.idleTimeout)
	idle := make(map[string]*session)

	s.mu.Lock()
	for username, sess := range s.sessions {
		if sess.lastUsed.Before(deadline) {
			idle[username] = sess
			delete(s.sessions, username)
		}
	}
	s.mu.Unlock()

	for username, sess := range idle {
		s.dispose(ctx, username, sess, true)
		zerolog.Ctx(ctx).Info().Str("username", username).Msg("idle ledger reaped")
	}

	return len(idle)
}

// Close disposes every active ledger.
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for username, sess := range sessions {
		s.dispose(ctx, username, sess, true)
	}
}

func (s *Service) dispose(ctx context.Context, username string, sess *session, clearFeed bool) {
	if err := sess.ledger.Close(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("username", username).Msg("ledger not closed")
	}

	if clearFeed && s.feed != nil {
		s.feed.Clear(username)
	}
}
