// Package identity adapts an external identity provider (AWS Cognito, or a
// local bcrypt directory for development) into a per-session client that
// reports auth-state changes through subscriptions.
package identity

import (
	"context"
	"errors"
)

var (
	ErrEmailInUse         = errors.New("identity: email already in use")
	ErrWeakPassword       = errors.New("identity: password too weak")
	ErrInvalidEmail       = errors.New("identity: invalid email")
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrNotSignedIn        = errors.New("identity: not signed in")
)

// MinPasswordLength is the shortest password the local backend accepts.
const MinPasswordLength = 6

// User is the provider's view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Credentials are the provider tokens for a signed-in user.
type Credentials struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
}

// Backend is the account directory behind a Client.
type Backend interface {
	CreateAccount(ctx context.Context, email, password string) (User, Credentials, error)
	Authenticate(ctx context.Context, email, password string) (User, Credentials, error)
	SignOut(ctx context.Context, creds Credentials) error
	UpdateDisplayName(ctx context.Context, creds Credentials, name string) error
}
