package identity

import (
	"context"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LocalBackend is an in-process account directory with bcrypt password
// hashes. Accounts do not survive a restart.
type LocalBackend struct {
	mu       sync.RWMutex
	cost     int
	byEmail  map[string]*localAccount
	sessions map[string]string // access token -> user id
}

type localAccount struct {
	user User
	hash []byte
}

// NewLocalBackend returns an empty directory. cost <= 0 uses bcrypt.DefaultCost.
func NewLocalBackend(cost int) *LocalBackend {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &LocalBackend{
		cost:     cost,
		byEmail:  make(map[string]*localAccount),
		sessions: make(map[string]string),
	}
}

var _ Backend = (*LocalBackend)(nil)

func (b *LocalBackend) CreateAccount(ctx context.Context, email, password string) (User, Credentials, error) {
	if err := ctx.Err(); err != nil {
		return User{}, Credentials{}, err
	}
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return User{}, Credentials{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return User{}, Credentials{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return User{}, Credentials{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.byEmail[email]; exists {
		return User{}, Credentials{}, ErrEmailInUse
	}
	acct := &localAccount{user: User{ID: uuid.NewString(), Email: email}, hash: hash}
	b.byEmail[email] = acct
	return acct.user, b.issueLocked(acct.user.ID), nil
}

func (b *LocalBackend) Authenticate(ctx context.Context, email, password string) (User, Credentials, error) {
	if err := ctx.Err(); err != nil {
		return User{}, Credentials{}, err
	}
	b.mu.RLock()
	acct, ok := b.byEmail[normalizeEmail(email)]
	b.mu.RUnlock()
	if !ok {
		return User{}, Credentials{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return User{}, Credentials{}, ErrInvalidCredentials
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return acct.user, b.issueLocked(acct.user.ID), nil
}

func (b *LocalBackend) SignOut(ctx context.Context, creds Credentials) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[creds.AccessToken]; !ok {
		return ErrNotSignedIn
	}
	delete(b.sessions, creds.AccessToken)
	return nil
}

func (b *LocalBackend) UpdateDisplayName(ctx context.Context, creds Credentials, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	userID, ok := b.sessions[creds.AccessToken]
	if !ok {
		return ErrNotSignedIn
	}
	for _, acct := range b.byEmail {
		if acct.user.ID == userID {
			acct.user.DisplayName = name
			return nil
		}
	}
	return ErrNotSignedIn
}

func (b *LocalBackend) issueLocked(userID string) Credentials {
	token := uuid.NewString()
	b.sessions[token] = userID
	return Credentials{AccessToken: token}
}
