// internal/session/manager.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/infonomu/bni/internal/models"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// refreshWindow is how close to expiry a session may get before a
// visibility transition triggers a proactive refresh.
const refreshWindow = 5 * time.Minute

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is the locally held view of an authenticated identity.
type Session struct {
	IdentityID   uuid.UUID
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Change is delivered to subscribers whenever the manager's auth state
// moves.
type Change struct {
	State   State
	Session *Session
	Profile *models.Profile
}

// Backend is the remote auth + profile surface the manager drives. The
// auth service implements it against the database and token store.
type Backend interface {
	// LoadPersisted returns any previously persisted session, or nil.
	LoadPersisted(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, s *Session) error
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	FetchProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Profile, error)
}

// AuthEvent is an auth-state change observed outside this manager:
// another client of the same identity signing in, rotating its session,
// or signing out. Session is nil on sign-out.
type AuthEvent struct {
	IdentityID uuid.UUID
	Session    *Session
}

// Notifier delivers external auth-state changes. Subscribe returns a
// deterministic cancel handle; the manager mirrors only events for its
// own identity.
type Notifier interface {
	Subscribe(fn func(AuthEvent)) (cancel func())
}

// Manager owns the current session and linked profile for one logical
// client. It is an explicit instance handed to consumers, never global
// state; one manager per logical session.
type Manager struct {
	backend  Backend
	notifier Notifier

	mu       sync.Mutex
	state    State
	session  *Session
	profile  *models.Profile
	nextSub  int
	subs     map[int]func(Change)
	unhook   func() // notifier deregistration; nil once Cleanup ran
	hookOnce bool
}

func NewManager(backend Backend, notifier Notifier) *Manager {
	return &Manager{
		backend:  backend,
		notifier: notifier,
		subs:     make(map[int]func(Change)),
	}
}

// Initialize restores any persisted session and registers the external
// auth-change listener. Safe to call once per manager lifetime.
func (m *Manager) Initialize(ctx context.Context) error {
	persisted, err := m.backend.LoadPersisted(ctx)
	if err != nil {
		logrus.WithError(err).Warn("failed to load persisted session")
	}
	if persisted != nil {
		m.adopt(ctx, persisted)
	}

	m.mu.Lock()
	if m.notifier != nil && !m.hookOnce {
		m.unhook = m.notifier.Subscribe(func(ev AuthEvent) {
			m.onAuthEvent(context.Background(), ev)
		})
		m.hookOnce = true
	}
	m.mu.Unlock()
	return err
}

// Cleanup deregisters the external listener. Idempotent; called when the
// consuming context is torn down.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	unhook := m.unhook
	m.unhook = nil
	m.mu.Unlock()
	if unhook != nil {
		unhook()
	}
}

// onAuthEvent mirrors a session change for this manager's own identity.
// Other identities' sign-ins and sign-outs belong to other clients and
// must not disturb this one.
func (m *Manager) onAuthEvent(ctx context.Context, ev AuthEvent) {
	m.mu.Lock()
	current := m.session
	m.mu.Unlock()
	if current == nil || current.IdentityID != ev.IdentityID {
		return
	}
	if ev.Session != nil {
		m.adopt(ctx, ev.Session)
		return
	}
	m.clear()
}

// adopt moves the manager to Authenticated with the given session and
// loads the linked profile.
func (m *Manager) adopt(ctx context.Context, s *Session) {
	m.mu.Lock()
	m.state = StateAuthenticated
	m.session = s
	m.mu.Unlock()

	profile, err := m.backend.FetchProfile(ctx, s.IdentityID)
	if err != nil {
		logrus.WithError(err).WithField("identity_id", s.IdentityID).Warn("profile fetch failed")
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.state = StateAnonymous
	m.session = nil
	m.profile = nil
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	m.mu.Lock()
	m.state = StateAuthenticating
	m.mu.Unlock()

	s, err := m.backend.SignIn(ctx, email, password)
	if err != nil {
		m.clear()
		return err
	}
	m.adopt(ctx, s)
	return nil
}

// SignOut clears local state unconditionally once the remote call returns,
// whether or not it succeeded.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	var err error
	if s != nil {
		err = m.backend.SignOut(ctx, s)
	}
	m.clear()
	return err
}

func (m *Manager) UpdateProfile(ctx context.Context, updates map[string]interface{}) (*models.Profile, error) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil, ErrNotAuthenticated
	}

	profile, err := m.backend.UpdateProfile(ctx, s.IdentityID, updates)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()
	m.notify()
	return profile, nil
}

// RefreshSession rotates the current session in place. Satisfies
// query.SessionRefresher.
func (m *Manager) RefreshSession(ctx context.Context) error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return ErrNotAuthenticated
	}

	fresh, err := m.backend.Refresh(ctx, s.RefreshToken)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.session = fresh
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.notify()
	return nil
}

// HandleVisible is signalled when the consuming surface becomes visible
// again. A session within refreshWindow of expiry is refreshed proactively
// so it does not expire silently while backgrounded.
func (m *Manager) HandleVisible(ctx context.Context) {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return
	}
	if time.Until(s.ExpiresAt) > refreshWindow {
		return
	}
	if err := m.RefreshSession(ctx); err != nil {
		logrus.WithError(err).Warn("proactive session refresh failed")
	}
}

// Subscribe registers a state-change listener and returns its handle.
func (m *Manager) Subscribe(fn func(Change)) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return &Subscription{id: id, m: m}
}

func (m *Manager) notify() {
	m.mu.Lock()
	change := Change{State: m.state, Session: m.session, Profile: m.profile}
	fns := make([]func(Change), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) Profile() *models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// Subscription is a deterministic teardown handle for a listener.
// Unsubscribe may be called more than once.
type Subscription struct {
	id   int
	m    *Manager
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.m.mu.Lock()
		delete(s.m.subs, s.id)
		s.m.mu.Unlock()
	})
}
