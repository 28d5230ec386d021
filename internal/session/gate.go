// Package session tracks who is signed in on one client connection and tells
// subscribers when that changes.
package session

import (
	"context"
	"sync"

	"github.com/Vasu1712/algonomic-backend/internal/auth"
	"github.com/Vasu1712/algonomic-backend/internal/models"
)

// Identity is the signed-in principal.
type Identity = auth.Identity

// Authenticator is the subset of auth.Service the gate needs.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Verify(token string) (Identity, error)
}

// Gate holds the current identity. Subscribers are called, in subscription
// order and with the gate lock held, only when the identity changes; they
// must not call back into the gate.
type Gate struct {
	auth Authenticator

	mu      sync.Mutex
	current *Identity
	token   string
	subs    map[uint64]func(*Identity)
	nextID  uint64
	order   []uint64
}

// NewGate creates a gate with no identity.
func NewGate(a Authenticator) *Gate {
	return &Gate{
		auth: a,
		subs: make(map[uint64]func(*Identity)),
	}
}

// Current returns the identity, or nil when signed out.
func (g *Gate) Current() *Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil
	}
	id := *g.current
	return &id
}

// Token returns the bearer token of the current identity.
func (g *Gate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Subscribe registers fn for identity changes and returns its cancel func.
func (g *Gate) Subscribe(fn func(*Identity)) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subscribeLocked(fn)
}

// Watch reports the signed-in user id, empty when signed out: once
// immediately, then on every change of user.
func (g *Gate) Watch(fn func(userID string)) (stop func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(userID(g.current))
	return g.subscribeLocked(func(id *Identity) { fn(userID(id)) })
}

func userID(id *Identity) string {
	if id == nil {
		return ""
	}
	return id.UserID
}

func (g *Gate) subscribeLocked(fn func(*Identity)) func() {
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	g.order = append(g.order, id)
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs, id)
		for i, o := range g.order {
			if o == id {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
	}
}

// SignUp registers an account and signs it in.
func (g *Gate) SignUp(ctx context.Context, email, password string) error {
	if _, err := g.auth.SignUp(ctx, email, password); err != nil {
		return err
	}
	return g.SignIn(ctx, email, password)
}

// SignIn logs in with credentials.
func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	token, err := g.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return g.Authenticate(token)
}

// Authenticate signs in with an existing bearer token.
func (g *Gate) Authenticate(token string) error {
	id, err := g.auth.Verify(token)
	if err != nil {
		return err
	}
	g.set(&id, token)
	return nil
}

// SignOut clears the identity.
func (g *Gate) SignOut() {
	g.set(nil, "")
}

func (g *Gate) set(id *Identity, token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	changed := !sameIdentity(g.current, id)
	g.current = id
	g.token = token
	if !changed {
		return
	}
	for _, o := range g.order {
		var cp *Identity
		if id != nil {
			v := *id
			cp = &v
		}
		g.subs[o](cp)
	}
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
