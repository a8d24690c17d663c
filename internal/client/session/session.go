// Package session tracks the signed-in identity of the client.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// State is the current identity, nil when signed out. Settled stays false
// until the first auth-state notification arrives.
type State struct {
	Identity *model.Identity
	Settled  bool
}

// Store follows auth-state notifications and keeps the profile record fresh.
type Store struct {
	auth           client.AuthProvider
	records        client.RecordStore
	bootstrapToken string
	logger         *slog.Logger

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	pending  sync.WaitGroup
	watchers client.Notifier[State]
}

// New creates a store over conns. bootstrapToken is the optional one-time
// sign-in credential used by Bootstrap.
func New(conns *client.Connections, bootstrapToken string, logger *slog.Logger) *Store {
	s := &Store{
		auth:           conns.Auth,
		records:        conns.Records,
		bootstrapToken: bootstrapToken,
		logger:         logger,
	}
	s.watchers.Publish(State{})
	return s
}

// Start subscribes to auth-state notifications. Calling Start again while
// running is a no-op.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	states := s.auth.WatchAuthState(ctx)
	go s.listen(ctx, states, s.done)
}

func (s *Store) listen(ctx context.Context, states <-chan *model.Identity, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case identity, ok := <-states:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.OnIdentityChanged(ctx, identity)
		}
	}
}

// Stop unsubscribes and waits for in-flight background calls. No state
// changes happen afterwards.
func (s *Store) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.pending.Wait()
}

// OnIdentityChanged stores identity and settles the store. A present identity
// triggers a profile upsert whose failure is only logged.
func (s *Store) OnIdentityChanged(ctx context.Context, identity *model.Identity) {
	var current *model.Identity
	if identity != nil {
		copied := *identity
		current = &copied
	}

	s.mu.Lock()
	s.state = State{Identity: current, Settled: true}
	s.watchers.Publish(s.state)
	s.mu.Unlock()

	if current == nil {
		return
	}
	s.background(func() {
		if err := s.records.UpsertProfile(ctx, *current); err != nil {
			s.logger.Warn("profile upsert failed", slog.String("uid", current.UID), slog.Any("error", err))
		}
	})
}

// Bootstrap signs in with the one-time credential when one was configured,
// anonymously otherwise. It does not wait for the result; failures are logged.
func (s *Store) Bootstrap(ctx context.Context) {
	s.background(func() {
		var err error
		method := "anonymous"
		if s.bootstrapToken != "" {
			method = "custom token"
			_, err = s.auth.SignInWithCustomToken(ctx, s.bootstrapToken)
		} else {
			_, err = s.auth.SignInAnonymously(ctx)
		}
		if err != nil {
			s.logger.Warn("bootstrap sign-in failed", slog.String("method", method), slog.Any("error", err))
		}
	})
}

func (s *Store) background(fn func()) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		fn()
	}()
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	if state.Identity != nil {
		copied := *state.Identity
		state.Identity = &copied
	}
	return state
}

// Watch delivers the current state and every change until ctx is done.
func (s *Store) Watch(ctx context.Context) <-chan State {
	ch, unsubscribe := s.watchers.Subscribe()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

// SignIn signs in with email and password. The new identity arrives through
// the auth-state subscription.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	_, err := s.auth.SignIn(ctx, email, password)
	return err
}

// SignUp creates an account and signs it in.
func (s *Store) SignUp(ctx context.Context, email, password string) error {
	_, err := s.auth.SignUp(ctx, email, password)
	return err
}

func (s *Store) SignOut(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}
