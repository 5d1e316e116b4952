package identity

import (
	"context"
	"strings"
	"sync"
)

// Client holds one browser session's provider state: the signed-in user,
// their tokens, and the subscribers watching for changes.
type Client struct {
	backend Backend

	mu    sync.Mutex
	user  *User
	creds Credentials
	subs  map[*Subscription]struct{}
}

// NewClient creates a signed-out client.
func NewClient(backend Backend) *Client {
	if backend == nil {
		panic("identity: backend required")
	}
	return &Client{backend: backend, subs: make(map[*Subscription]struct{})}
}

// Current returns the signed-in user, if any.
func (c *Client) Current() (User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return User{}, false
	}
	return *c.user, true
}

// Subscribe registers for auth-state events. The current state is
// delivered first.
func (c *Client) Subscribe() *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sub *Subscription
	sub = newSubscription(func() {
		c.mu.Lock()
		delete(c.subs, sub)
		c.mu.Unlock()
	})
	c.subs[sub] = struct{}{}
	sub.push(Event{User: cloneUser(c.user)})
	return sub
}

// CreateAccount registers a new account and signs it in. Subscribers are
// notified before CreateAccount returns.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (User, error) {
	user, creds, err := c.backend.CreateAccount(ctx, normalizeEmail(email), password)
	if err != nil {
		return User{}, err
	}
	c.setUser(&user, creds)
	return user, nil
}

// Authenticate signs in an existing account.
func (c *Client) Authenticate(ctx context.Context, email, password string) error {
	user, creds, err := c.backend.Authenticate(ctx, normalizeEmail(email), password)
	if err != nil {
		return err
	}
	c.setUser(&user, creds)
	return nil
}

// SignOut ends the provider session.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	creds := c.creds
	signedIn := c.user != nil
	c.mu.Unlock()
	if !signedIn {
		return nil
	}
	if err := c.backend.SignOut(ctx, creds); err != nil {
		return err
	}
	c.setUser(nil, Credentials{})
	return nil
}

// UpdateDisplayName changes the display name of user, who must be the
// signed-in user. It does not emit an auth-state event.
func (c *Client) UpdateDisplayName(ctx context.Context, user User, name string) error {
	c.mu.Lock()
	if c.user == nil || c.user.ID != user.ID {
		c.mu.Unlock()
		return ErrNotSignedIn
	}
	creds := c.creds
	c.mu.Unlock()

	if err := c.backend.UpdateDisplayName(ctx, creds, name); err != nil {
		return err
	}

	c.mu.Lock()
	if c.user != nil && c.user.ID == user.ID {
		c.user.DisplayName = name
	}
	c.mu.Unlock()
	return nil
}

// Close detaches every subscriber.
func (c *Client) Close() {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (c *Client) setUser(user *User, creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := !sameUser(c.user, user)
	c.user = cloneUser(user)
	c.creds = creds
	if !changed {
		return
	}
	for sub := range c.subs {
		sub.push(Event{User: cloneUser(user)})
	}
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
