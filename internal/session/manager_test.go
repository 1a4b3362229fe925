// internal/session/manager_test.go
package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/infonomu/bni/internal/models"
)

type fakeBackend struct {
	persisted    *Session
	signInErr    error
	signOutErr   error
	refreshErr   error
	signOutCalls int
	refreshCalls int
	profile      *models.Profile
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		profile: &models.Profile{Name: "김회원", Email: "member@example.com"},
	}
}

func (b *fakeBackend) LoadPersisted(ctx context.Context) (*Session, error) {
	return b.persisted, nil
}

func (b *fakeBackend) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if b.signInErr != nil {
		return nil, b.signInErr
	}
	return &Session{
		IdentityID:   uuid.New(),
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (b *fakeBackend) SignOut(ctx context.Context, s *Session) error {
	b.signOutCalls++
	return b.signOutErr
}

func (b *fakeBackend) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	b.refreshCalls++
	if b.refreshErr != nil {
		return nil, b.refreshErr
	}
	return &Session{
		IdentityID:   uuid.New(),
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (b *fakeBackend) FetchProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return b.profile, nil
}

func (b *fakeBackend) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Profile, error) {
	return b.profile, nil
}

type fakeNotifier struct {
	fn          func(AuthEvent)
	cancelCalls int
}

func (n *fakeNotifier) Subscribe(fn func(AuthEvent)) (cancel func()) {
	n.fn = fn
	return func() { n.cancelCalls++ }
}

func (n *fakeNotifier) emit(ev AuthEvent) {
	if n.fn != nil {
		n.fn(ev)
	}
}

func TestInitializeWithoutPersistedSession(t *testing.T) {
	m := NewManager(newFakeBackend(), &fakeNotifier{})

	assert.NoError(t, m.Initialize(context.Background()))
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.Session())
}

func TestInitializeRestoresPersistedSession(t *testing.T) {
	backend := newFakeBackend()
	backend.persisted = &Session{
		IdentityID:  uuid.New(),
		AccessToken: "persisted",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	m := NewManager(backend, &fakeNotifier{})

	assert.NoError(t, m.Initialize(context.Background()))
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "persisted", m.Session().AccessToken)
	assert.Equal(t, "김회원", m.Profile().Name)
}

func TestSignInMovesToAuthenticated(t *testing.T) {
	m := NewManager(newFakeBackend(), &fakeNotifier{})

	assert.NoError(t, m.SignIn(context.Background(), "member@example.com", "secret"))
	assert.Equal(t, StateAuthenticated, m.State())
	assert.NotNil(t, m.Session())
	assert.NotNil(t, m.Profile())
}

func TestFailedSignInClearsState(t *testing.T) {
	backend := newFakeBackend()
	backend.signInErr = ErrInvalidCredentials
	m := NewManager(backend, &fakeNotifier{})

	err := m.SignIn(context.Background(), "member@example.com", "wrong")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.Session())
}

// Local state is cleared even when the remote sign-out call fails.
func TestSignOutClearsStateOnRemoteFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.signOutErr = errors.New("network down")
	m := NewManager(backend, &fakeNotifier{})
	assert.NoError(t, m.SignIn(context.Background(), "member@example.com", "secret"))

	err := m.SignOut(context.Background())

	assert.Error(t, err)
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.Session())
	assert.Nil(t, m.Profile())
	assert.Equal(t, 1, backend.signOutCalls)
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	m := NewManager(newFakeBackend(), &fakeNotifier{})

	_, err := m.UpdateProfile(context.Background(), map[string]interface{}{"name": "새이름"})

	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRefreshSessionRotatesTokens(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, &fakeNotifier{})
	assert.NoError(t, m.SignIn(context.Background(), "member@example.com", "secret"))

	assert.NoError(t, m.RefreshSession(context.Background()))
	assert.Equal(t, "access-2", m.Session().AccessToken)
	assert.Equal(t, 1, backend.refreshCalls)
}

func TestHandleVisibleRefreshesNearExpiry(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, &fakeNotifier{})
	assert.NoError(t, m.SignIn(context.Background(), "member@example.com", "secret"))

	// Far from expiry: no refresh.
	m.HandleVisible(context.Background())
	assert.Zero(t, backend.refreshCalls)

	// Within the proactive window: refresh fires.
	m.mu.Lock()
	m.session.ExpiresAt = time.Now().Add(2 * time.Minute)
	m.mu.Unlock()
	m.HandleVisible(context.Background())
	assert.Equal(t, 1, backend.refreshCalls)
}

func TestExternalAuthEventsMirrorOwnIdentity(t *testing.T) {
	identity := uuid.New()
	backend := newFakeBackend()
	backend.persisted = &Session{
		IdentityID:  identity,
		AccessToken: "persisted",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	notifier := &fakeNotifier{}
	m := NewManager(backend, notifier)
	assert.NoError(t, m.Initialize(context.Background()))

	rotated := &Session{
		IdentityID:  identity,
		AccessToken: "rotated",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	notifier.emit(AuthEvent{IdentityID: identity, Session: rotated})
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "rotated", m.Session().AccessToken)

	notifier.emit(AuthEvent{IdentityID: identity})
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.Session())
}

// Another member's sign-in or sign-out must not disturb this manager.
func TestExternalAuthEventsIgnoreOtherIdentities(t *testing.T) {
	identity := uuid.New()
	backend := newFakeBackend()
	backend.persisted = &Session{
		IdentityID:  identity,
		AccessToken: "persisted",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	notifier := &fakeNotifier{}
	m := NewManager(backend, notifier)
	assert.NoError(t, m.Initialize(context.Background()))

	other := uuid.New()
	notifier.emit(AuthEvent{IdentityID: other, Session: &Session{
		IdentityID:  other,
		AccessToken: "foreign",
		ExpiresAt:   time.Now().Add(time.Hour),
	}})
	assert.Equal(t, "persisted", m.Session().AccessToken)

	notifier.emit(AuthEvent{IdentityID: other})
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "persisted", m.Session().AccessToken)
}

// An anonymous manager has no identity to mirror.
func TestExternalAuthEventsIgnoredWhileAnonymous(t *testing.T) {
	notifier := &fakeNotifier{}
	m := NewManager(newFakeBackend(), notifier)
	assert.NoError(t, m.Initialize(context.Background()))

	other := uuid.New()
	notifier.emit(AuthEvent{IdentityID: other, Session: &Session{
		IdentityID:  other,
		AccessToken: "foreign",
		ExpiresAt:   time.Now().Add(time.Hour),
	}})
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.Session())
}

func TestCleanupIsIdempotent(t *testing.T) {
	notifier := &fakeNotifier{}
	m := NewManager(newFakeBackend(), notifier)
	assert.NoError(t, m.Initialize(context.Background()))

	m.Cleanup()
	m.Cleanup()

	assert.Equal(t, 1, notifier.cancelCalls)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	m := NewManager(newFakeBackend(), &fakeNotifier{})

	var changes []Change
	sub := m.Subscribe(func(c Change) {
		changes = append(changes, c)
	})

	assert.NoError(t, m.SignIn(context.Background(), "member@example.com", "secret"))
	seen := len(changes)
	assert.Greater(t, seen, 0)
	assert.Equal(t, StateAuthenticated, changes[len(changes)-1].State)

	sub.Unsubscribe()
	sub.Unsubscribe() // second call is a no-op

	assert.NoError(t, m.SignOut(context.Background()))
	assert.Len(t, changes, seen)
}
