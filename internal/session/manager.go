// Package session implements the portal's session manager: it tracks the
// signed-in identity and profile of one browser session and runs signup,
// login and logout against the identity provider and document store.
package session

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/events"
	"github.com/wolfman30/prescription-ai-portal/internal/identity"
	"github.com/wolfman30/prescription-ai-portal/internal/notify"
	"github.com/wolfman30/prescription-ai-portal/internal/observability/metrics"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

var sessionTracer = otel.Tracer("portal.internal.session")

// FollowUpTimeout bounds the welcome email and event publish that run after
// signup and login.
var FollowUpTimeout = 15 * time.Second

// IdentityClient is the per-session view of the identity provider.
type IdentityClient interface {
	Subscribe() *identity.Subscription
	Current() (identity.User, bool)
	CreateAccount(ctx context.Context, email, password string) (identity.User, error)
	Authenticate(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	UpdateDisplayName(ctx context.Context, user identity.User, name string) error
}

// LifecycleObserver hears about completed signups and logins.
type LifecycleObserver interface {
	PatientRegistered(ctx context.Context, evt events.PatientRegisteredV1) error
	PatientSignedIn(ctx context.Context, evt events.PatientSignedInV1) error
}

// Options carries a manager's collaborators. Store and Feed are required.
type Options struct {
	Store    documents.Store
	Feed     notify.Feed
	Observer LifecycleObserver
	Metrics  *metrics.PortalMetrics
	Logger   *logging.Logger
	Now      func() time.Time
}

// Manager owns one session. All state changes are applied by a single loop
// goroutine in arrival order; readers get copies.
type Manager struct {
	id       string
	idp      IdentityClient
	store    documents.Store
	feed     notify.Feed
	observer LifecycleObserver
	metrics  *metrics.PortalMetrics
	logger   *logging.Logger
	now      func() time.Time
	policy   *bluemonday.Policy

	mu       sync.RWMutex
	session  Session
	resolved bool
	handled  int64
	pending  int
	staged   *Profile
	changed  chan struct{}

	cmds      chan func(context.Context)
	sub       *identity.Subscription
	cancel    context.CancelFunc
	done      chan struct{}
	followups sync.WaitGroup
	started   bool
	closed    bool
}

// NewManager builds a manager for session id. Call Start before use.
func NewManager(id string, idp IdentityClient, opts Options) *Manager {
	if idp == nil {
		panic("session: identity client required")
	}
	if opts.Store == nil {
		panic("session: document store required")
	}
	if opts.Feed == nil {
		panic("session: notification feed required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		id:       id,
		idp:      idp,
		store:    opts.Store,
		feed:     opts.Feed,
		observer: opts.Observer,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("session_id", id),
		now:      opts.Now,
		policy:   bluemonday.StrictPolicy(),
		session:  Session{Loading: true},
		changed:  make(chan struct{}),
		cmds:     make(chan func(context.Context)),
		done:     make(chan struct{}),
	}
}

// ID returns the session id.
func (m *Manager) ID() string { return m.id }

// Start subscribes to the provider and launches the loop. The first
// provider event resolves the session.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.sub = m.idp.Subscribe()
	m.mu.Unlock()

	m.metrics.SessionStarted()
	go m.loop(ctx)
}

// Close stops the loop and detaches from the provider.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	started := m.started
	m.mu.Unlock()

	if !started {
		close(m.done)
		return
	}
	m.sub.Unsubscribe()
	m.cancel()
	<-m.done
	m.followups.Wait()
	m.metrics.SessionEnded()
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySession(m.session)
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return deriveState(m.resolved, m.session)
}

// Changes returns a channel closed on the next state change.
func (m *Manager) Changes() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.changed
}

// Done is closed once the manager has shut down.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Settled blocks until every provider notification emitted so far and
// every queued profile update has been applied and loading is false.
func (m *Manager) Settled(ctx context.Context) error {
	for {
		m.mu.RLock()
		if m.closed {
			m.mu.RUnlock()
			return ErrClosed
		}
		settled := m.resolved && m.sub != nil && m.handled >= m.sub.Emitted() && m.pending == 0 && !m.session.Loading
		ch := m.changed
		m.mu.RUnlock()
		if settled {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		}
	}
}

// Signup creates an account, names it, and writes a patient profile. If the
// profile write fails the provider account is left in place.
func (m *Manager) Signup(ctx context.Context, email, password, name string) error {
	ctx, span := sessionTracer.Start(ctx, "session.signup")
	defer span.End()
	start := m.now()

	err := m.signup(ctx, email, password, name)
	m.metrics.ObserveAuth("signup", err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		m.logger.Error("signup failed", "error", err)
		m.announce(ctx, failureNotice(titleSignupFailed, err))
		return err
	}
	m.announce(ctx, noticeSignupOK)
	return nil
}

func (m *Manager) signup(ctx context.Context, email, password, name string) error {
	name = m.sanitizeName(name)
	if name == "" {
		return &AuthError{Op: "signup", Err: ErrNameRequired}
	}

	user, err := m.idp.CreateAccount(ctx, email, password)
	if err != nil {
		return &AuthError{Op: "signup", Err: err}
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("portal.user_id", user.ID))

	if err := m.idp.UpdateDisplayName(ctx, user, name); err != nil {
		return &AuthError{Op: "signup", Err: err}
	}
	user.DisplayName = name

	profile := newPatientProfile(user, name, m.now())
	rec, err := documents.Encode(profile)
	if err != nil {
		return &AuthError{Op: "signup", Err: err}
	}
	if err := m.store.Set(ctx, documents.CollectionUsers, user.ID, rec); err != nil {
		return &AuthError{Op: "signup", Err: err}
	}

	if err := m.enqueue(ctx, func(context.Context) { m.applySignupProfile(user, profile) }); err != nil {
		return err
	}

	if m.observer != nil {
		evt := events.PatientRegisteredV1{
			EventID:      uuid.NewString(),
			PatientID:    user.ID,
			Email:        user.Email,
			Name:         name,
			RegisteredAt: m.now().UTC(),
		}
		m.followUp(ctx, "registration", user.ID, func(ctx context.Context) error {
			return m.observer.PatientRegistered(ctx, evt)
		})
	}
	m.logger.Info("patient registered", "user_id", user.ID)
	return nil
}

// Login authenticates against the provider. The session picks up the new
// identity from the provider notification.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	ctx, span := sessionTracer.Start(ctx, "session.login")
	defer span.End()
	start := m.now()

	err := m.idp.Authenticate(ctx, email, password)
	m.metrics.ObserveAuth("login", err, time.Since(start).Seconds())
	if err != nil {
		authErr := &AuthError{Op: "login", Err: err}
		span.RecordError(authErr)
		m.logger.Warn("login failed", "error", err)
		m.announce(ctx, failureNotice(titleLoginFailed, err))
		return authErr
	}

	if user, ok := m.idp.Current(); ok {
		span.SetAttributes(attribute.String("portal.user_id", user.ID))
		if m.observer != nil {
			evt := events.PatientSignedInV1{EventID: uuid.NewString(), PatientID: user.ID, SessionID: m.id, SignedInAt: m.now().UTC()}
			m.followUp(ctx, "sign-in", user.ID, func(ctx context.Context) error {
				return m.observer.PatientSignedIn(ctx, evt)
			})
		}
	}
	m.announce(ctx, noticeLoginOK)
	return nil
}

// Logout signs out. On failure the local session is left as it was.
func (m *Manager) Logout(ctx context.Context) error {
	ctx, span := sessionTracer.Start(ctx, "session.logout")
	defer span.End()
	start := m.now()

	err := m.idp.SignOut(ctx)
	m.metrics.ObserveAuth("logout", err, time.Since(start).Seconds())
	if err != nil {
		authErr := &AuthError{Op: "logout", Err: err}
		span.RecordError(authErr)
		m.logger.Error("logout failed", "error", err)
		m.announce(ctx, failureNotice(titleLogoutFailed, err))
		return authErr
	}
	m.announce(ctx, noticeLogoutOK)
	return nil
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case ev, ok := <-m.sub.C:
			if !ok {
				return
			}
			m.resolve(ctx, ev.User)
		case cmd := <-m.cmds:
			cmd(ctx)
			m.update(func() { m.pending-- })
		case <-ctx.Done():
			return
		}
	}
}

// resolve replaces the identity and loads its profile.
func (m *Manager) resolve(ctx context.Context, user *identity.User) {
	ctx, span := sessionTracer.Start(ctx, "session.resolve")
	defer span.End()

	m.update(func() {
		prev := m.session.Identity
		m.session.Loading = true
		m.session.Identity = user
		if user == nil || prev == nil || prev.ID != user.ID {
			m.session.Profile = nil
		}
	})

	var profile *Profile
	if user != nil {
		span.SetAttributes(attribute.String("portal.user_id", user.ID))
		profile = m.fetchProfile(ctx, *user)
	}

	m.update(func() {
		if user != nil {
			if profile == nil && m.staged != nil && m.staged.ID == user.ID {
				profile = m.staged
			}
			m.session.Profile = profile
		}
		if m.staged != nil && (user == nil || m.staged.ID == user.ID) {
			m.staged = nil
		}
		m.session.Loading = false
		m.resolved = true
		m.handled++
	})
	m.logger.Debug("session resolved", "state", m.State().String())
}

func (m *Manager) fetchProfile(ctx context.Context, user identity.User) *Profile {
	rec, err := m.store.Get(ctx, documents.CollectionUsers, user.ID)
	switch {
	case errors.Is(err, documents.ErrNotFound):
		m.metrics.ObserveProfileFetch("missing")
		return nil
	case err != nil:
		fetchErr := &FetchError{Collection: documents.CollectionUsers, Err: err}
		m.metrics.ObserveProfileFetch("error")
		m.logger.Error("error fetching user profile", "error", fetchErr, "user_id", user.ID)
		m.announce(ctx, failureNotice(titleProfileFailed, fetchErr))
		return nil
	}
	profile, err := profileFromRecord(rec)
	if err != nil {
		m.metrics.ObserveProfileFetch("error")
		m.logger.Error("malformed user profile", "error", err, "user_id", user.ID)
		m.announce(ctx, failureNotice(titleProfileFailed, &FetchError{Collection: documents.CollectionUsers, Err: err}))
		return nil
	}
	m.metrics.ObserveProfileFetch("found")
	return profile
}

// applySignupProfile runs on the loop after a successful signup write.
func (m *Manager) applySignupProfile(user identity.User, profile Profile) {
	m.update(func() {
		if m.session.Identity != nil && m.session.Identity.ID == user.ID {
			m.session.Profile = &profile
			m.session.Identity.DisplayName = user.DisplayName
			return
		}
		m.staged = &profile
	})
}

func (m *Manager) enqueue(ctx context.Context, cmd func(context.Context)) error {
	m.mu.Lock()
	if m.closed || !m.started {
		m.mu.Unlock()
		return ErrClosed
	}
	m.pending++
	m.mu.Unlock()

	select {
	case m.cmds <- cmd:
		return nil
	case <-m.done:
		m.update(func() { m.pending-- })
		return ErrClosed
	case <-ctx.Done():
		m.update(func() { m.pending-- })
		return ctx.Err()
	}
}

// update applies fn under the write lock and wakes Changes/Settled waiters.
func (m *Manager) update(fn func()) {
	m.mu.Lock()
	fn()
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()
}

// ReportFetchError pushes a destructive notice for a failed view read.
func (m *Manager) ReportFetchError(ctx context.Context, err *FetchError) {
	m.announce(ctx, failureNotice(titleFetchFailed+" "+err.Collection, err))
}

// followUp runs observer work off the request path, bounded by
// FollowUpTimeout. Close waits for in-flight follow-ups.
func (m *Manager) followUp(ctx context.Context, kind, userID string, fn func(context.Context) error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Warn("follow-up skipped: session closed", "kind", kind, "user_id", userID)
		return
	}
	m.followups.Add(1)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FollowUpTimeout)
	go func() {
		defer m.followups.Done()
		defer cancel()
		if err := fn(ctx); err != nil {
			m.logger.Warn(kind+" follow-up failed", "error", err, "user_id", userID)
		}
	}()
}

func (m *Manager) announce(ctx context.Context, n notify.Notice) {
	if err := m.feed.Push(context.WithoutCancel(ctx), m.id, n); err != nil {
		m.logger.Warn("notification dropped", "error", err, "title", n.Title)
	}
}

func (m *Manager) sanitizeName(name string) string {
	return strings.TrimSpace(html.UnescapeString(m.policy.Sanitize(name)))
}

func copySession(s Session) Session {
	out := Session{Loading: s.Loading}
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	return out
}

// UserMessage turns an operation error into text fit for a toast or form.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrEmailInUse):
		return "An account with this email already exists."
	case errors.Is(err, identity.ErrWeakPassword):
		return "Please choose a stronger password."
	case errors.Is(err, identity.ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrNameRequired):
		return "Please enter your name."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "The request timed out. Please try again."
	case errors.As(err, new(*FetchError)):
		return "We couldn't load your records. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
