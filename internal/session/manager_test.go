package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/events"
	"github.com/wolfman30/prescription-ai-portal/internal/identity"
	"github.com/wolfman30/prescription-ai-portal/internal/notify"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

type harness struct {
	backend *identity.LocalBackend
	store   documents.Store
	feed    *notify.MemoryFeed
}

func newHarness() *harness {
	return &harness{
		backend: identity.NewLocalBackend(bcrypt.MinCost),
		store:   documents.NewMemoryStore(),
		feed:    notify.NewMemoryFeed(0),
	}
}

func (h *harness) manager(t *testing.T, opts ...func(*Options)) *Manager {
	t.Helper()
	o := Options{Store: h.store, Feed: h.feed, Logger: logging.New("error")}
	for _, fn := range opts {
		fn(&o)
	}
	client := identity.NewClient(h.backend)
	m := NewManager("sess-"+t.Name(), client, o)
	m.Start(context.Background())
	t.Cleanup(m.Close)
	settle(t, m)
	return m
}

func settle(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, m.Settled(ctx))
}

func (h *harness) drainTitles(t *testing.T, m *Manager) []string {
	t.Helper()
	notices, err := h.feed.Drain(context.Background(), m.ID())
	require.NoError(t, err)
	titles := make([]string, 0, len(notices))
	for _, n := range notices {
		titles = append(titles, n.Title)
	}
	return titles
}

type flakyStore struct {
	documents.Store
	getErr error
	setErr error
}

func (f *flakyStore) Get(ctx context.Context, collection, id string) (documents.Record, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, collection, id)
}

func (f *flakyStore) Set(ctx context.Context, collection, id string, fields documents.Record) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, collection, id, fields)
}

func TestManager_ResolvesToAnonymous(t *testing.T) {
	h := newHarness()
	client := identity.NewClient(h.backend)
	m := NewManager("s1", client, Options{Store: h.store, Feed: h.feed})
	assert.Equal(t, Unresolved, m.State())
	assert.True(t, m.Snapshot().Loading)

	m.Start(context.Background())
	defer m.Close()
	settle(t, m)

	assert.Equal(t, Anonymous, m.State())
	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Identity)
	assert.Nil(t, snap.Profile)
}

func TestManager_SignupYieldsPatientProfile(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	require.NoError(t, m.Signup(context.Background(), "new@x.com", "secret-pw", "Alice"))
	settle(t, m)

	assert.Equal(t, ProfileReady, m.State())
	snap := m.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "Alice", snap.Profile.Name)
	assert.Equal(t, RolePatient, snap.Profile.Role)
	assert.Equal(t, "new@x.com", snap.Profile.Email)
	assert.Equal(t, snap.Identity.ID, snap.Profile.ID)
	_, err := time.Parse(time.RFC3339, snap.Profile.CreatedAt)
	assert.NoError(t, err)
	assert.Equal(t, "Alice", snap.DisplayName())

	stored, err := h.store.Get(context.Background(), documents.CollectionUsers, snap.Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "patient", stored.String("role"))

	assert.Equal(t, []string{"Account created"}, h.drainTitles(t, m))
}

func TestManager_SignupDuplicateEmailLeavesSessionUnchanged(t *testing.T) {
	h := newHarness()
	first := h.manager(t)
	require.NoError(t, first.Signup(context.Background(), "dup@x.com", "secret-pw", "First"))

	second := h.manager(t)
	before := second.Snapshot()
	err := second.Signup(context.Background(), "dup@x.com", "other-pw", "Second")
	settle(t, second)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "signup", authErr.Op)
	assert.ErrorIs(t, err, identity.ErrEmailInUse)
	assert.Equal(t, before, second.Snapshot())
	assert.Equal(t, Anonymous, second.State())
	assert.Equal(t, []string{"Registration failed"}, h.drainTitles(t, second))
}

func TestManager_SignupRejectsBlankName(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	err := m.Signup(context.Background(), "blank@x.com", "secret-pw", "  <b></b> ")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, _, authErr := h.backend.Authenticate(context.Background(), "blank@x.com", "secret-pw")
	assert.ErrorIs(t, authErr, identity.ErrInvalidCredentials, "no account should be created")
}

func TestManager_SignupSanitizesName(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	require.NoError(t, m.Signup(context.Background(), "bob@x.com", "secret-pw", "<b>Bob</b> & Co"))
	settle(t, m)
	assert.Equal(t, "Bob & Co", m.Snapshot().Profile.Name)
}

func TestManager_SignupProfileWriteFailureKeepsIdentity(t *testing.T) {
	h := newHarness()
	h.store = &flakyStore{Store: documents.NewMemoryStore(), setErr: errors.New("write refused")}
	m := h.manager(t)

	err := m.Signup(context.Background(), "orphan@x.com", "secret-pw", "Orphan")
	settle(t, m)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	// The provider account is not rolled back.
	assert.Equal(t, ProfilePending, m.State())
	assert.Equal(t, []string{"Registration failed"}, h.drainTitles(t, m))
}

func TestManager_LoginWrongPassword(t *testing.T) {
	h := newHarness()
	_, _, err := h.backend.CreateAccount(context.Background(), "doctor@example.com", "right-password")
	require.NoError(t, err)
	m := h.manager(t)

	err = m.Login(context.Background(), "doctor@example.com", "wrong-password")
	settle(t, m)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "login", authErr.Op)
	assert.Nil(t, m.Snapshot().Identity)

	notices, _ := h.feed.Drain(context.Background(), m.ID())
	require.Len(t, notices, 1)
	assert.Equal(t, "Login failed", notices[0].Title)
	assert.Equal(t, notify.VariantDestructive, notices[0].Variant)
	assert.Equal(t, "Invalid email or password.", notices[0].Description)
}

func TestManager_LoginLogoutSequence(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user, _, err := h.backend.CreateAccount(ctx, "doctor@example.com", "right-password")
	require.NoError(t, err)
	require.NoError(t, h.store.Set(ctx, documents.CollectionUsers, user.ID, documents.Record{
		"name": "Dr. House", "email": user.Email, "role": "doctor",
	}))
	m := h.manager(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Login(ctx, "doctor@example.com", "right-password"))
		settle(t, m)
		assert.Equal(t, ProfileReady, m.State())
		assert.Equal(t, RoleDoctor, m.Snapshot().Profile.Role)

		require.NoError(t, m.Logout(ctx))
		settle(t, m)
		assert.Equal(t, Anonymous, m.State())
		assert.Nil(t, m.Snapshot().Profile)
	}
	titles := h.drainTitles(t, m)
	assert.Len(t, titles, 6)
	assert.Equal(t, "Login successful", titles[0])
	assert.Equal(t, "Logged out", titles[1])
}

func TestManager_LoginWithoutProfileIsPending(t *testing.T) {
	h := newHarness()
	_, _, err := h.backend.CreateAccount(context.Background(), "noprofile@x.com", "secret-pw")
	require.NoError(t, err)
	m := h.manager(t)

	require.NoError(t, m.Login(context.Background(), "noprofile@x.com", "secret-pw"))
	settle(t, m)
	assert.Equal(t, ProfilePending, m.State())
	assert.False(t, m.Snapshot().Loading)
}

func TestManager_ProfileFetchFailureSettles(t *testing.T) {
	h := newHarness()
	_, _, err := h.backend.CreateAccount(context.Background(), "p@x.com", "secret-pw")
	require.NoError(t, err)
	h.store = &flakyStore{Store: documents.NewMemoryStore(), getErr: errors.New("store offline")}
	m := h.manager(t)

	require.NoError(t, m.Login(context.Background(), "p@x.com", "secret-pw"))
	settle(t, m)

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.NotNil(t, snap.Identity)
	assert.Nil(t, snap.Profile)
	assert.Contains(t, h.drainTitles(t, m), "Profile unavailable")
}

type failingSignOut struct {
	*identity.LocalBackend
}

func (failingSignOut) SignOut(ctx context.Context, creds identity.Credentials) error {
	return errors.New("network down")
}

func TestManager_LogoutFailureKeepsSession(t *testing.T) {
	h := newHarness()
	backend := failingSignOut{LocalBackend: h.backend}
	client := identity.NewClient(backend)
	m := NewManager("s-logout", client, Options{Store: h.store, Feed: h.feed, Logger: logging.New("error")})
	m.Start(context.Background())
	defer m.Close()

	require.NoError(t, m.Signup(context.Background(), "stay@x.com", "secret-pw", "Stay"))
	settle(t, m)

	err := m.Logout(context.Background())
	settle(t, m)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "logout", authErr.Op)
	assert.Equal(t, ProfileReady, m.State())
	assert.Equal(t, []string{"Account created", "Logout failed"}, h.drainTitles(t, m))
}

type recordingObserver struct {
	mu         sync.Mutex
	registered []events.PatientRegisteredV1
	signedIn   []events.PatientSignedInV1
}

func (r *recordingObserver) PatientRegistered(ctx context.Context, evt events.PatientRegisteredV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, evt)
	return nil
}

func (r *recordingObserver) PatientSignedIn(ctx context.Context, evt events.PatientSignedInV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signedIn = append(r.signedIn, evt)
	return errors.New("observer failures are not fatal")
}

func TestManager_NotifiesObserver(t *testing.T) {
	h := newHarness()
	obs := &recordingObserver{}
	m := h.manager(t, func(o *Options) { o.Observer = obs })
	ctx := context.Background()

	require.NoError(t, m.Signup(ctx, "obs@x.com", "secret-pw", "Obs"))
	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Login(ctx, "obs@x.com", "secret-pw"))
	settle(t, m)
	m.followups.Wait()

	require.Len(t, obs.registered, 1)
	assert.Equal(t, "Obs", obs.registered[0].Name)
	require.Len(t, obs.signedIn, 1)
	assert.Equal(t, m.ID(), obs.signedIn[0].SessionID)
}

type blockingObserver struct {
	release chan struct{}
	done    chan struct{}
}

func (b *blockingObserver) PatientRegistered(ctx context.Context, evt events.PatientRegisteredV1) error {
	defer close(b.done)
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingObserver) PatientSignedIn(context.Context, events.PatientSignedInV1) error {
	return nil
}

func TestManager_SlowObserverDoesNotBlockSignup(t *testing.T) {
	h := newHarness()
	obs := &blockingObserver{release: make(chan struct{}), done: make(chan struct{})}
	m := h.manager(t, func(o *Options) { o.Observer = obs })

	returned := make(chan error, 1)
	go func() { returned <- m.Signup(context.Background(), "slow@x.com", "secret-pw", "Slow") }()

	select {
	case err := <-returned:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("signup waited on the welcome follow-up")
	}

	close(obs.release)
	select {
	case <-obs.done:
	case <-time.After(2 * time.Second):
		t.Fatal("follow-up never ran")
	}
}

func TestManager_CloseWaitsForFollowUps(t *testing.T) {
	h := newHarness()
	obs := &blockingObserver{release: make(chan struct{}), done: make(chan struct{})}
	m := h.manager(t, func(o *Options) { o.Observer = obs })
	require.NoError(t, m.Signup(context.Background(), "wait@x.com", "secret-pw", "Wait"))

	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while a follow-up was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(obs.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the follow-up finished")
	}
}

func TestManager_ShortPasswordIsRejected(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	err := m.Signup(context.Background(), "new@x.com", "pw", "Alice")
	settle(t, m)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "signup", authErr.Op)
	assert.ErrorIs(t, err, identity.ErrWeakPassword)
	assert.Equal(t, Anonymous, m.State())
	assert.Nil(t, m.Snapshot().Profile)
	assert.Equal(t, []string{"Registration failed"}, h.drainTitles(t, m))
}

func TestManager_ReportFetchError(t *testing.T) {
	h := newHarness()
	m := h.manager(t)

	m.ReportFetchError(context.Background(), &FetchError{Collection: documents.CollectionMedications, Err: errors.New("timeout")})

	notices, err := h.feed.Drain(context.Background(), m.ID())
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "Unable to load medications", notices[0].Title)
	assert.Equal(t, notify.VariantDestructive, notices[0].Variant)
	assert.Equal(t, "We couldn't load your records. Please try again.", notices[0].Description)
}

func TestManager_ChangesFiresOnResolve(t *testing.T) {
	h := newHarness()
	m := h.manager(t)
	changes := m.Changes()

	require.NoError(t, m.Signup(context.Background(), "watch@x.com", "secret-pw", "Watch"))
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestManager_ClosedManagerRejectsSignup(t *testing.T) {
	h := newHarness()
	client := identity.NewClient(h.backend)
	m := NewManager("s-closed", client, Options{Store: h.store, Feed: h.feed, Logger: logging.New("error")})
	m.Start(context.Background())
	settle(t, m)
	m.Close()
	m.Close()

	err := m.Signup(context.Background(), "late@x.com", "secret-pw", "Late")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Settled(context.Background()), ErrClosed)
}
